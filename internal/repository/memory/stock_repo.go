package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

// stockRow carries its own mutex so that units of one variant move independently of others.
type stockRow struct {
	mu   sync.Mutex
	item domain.StockItem
}

type stockRepo struct {
	// mu guards the rows map itself, never the row contents.
	mu   sync.RWMutex
	rows map[string]*stockRow

	resMu        sync.Mutex
	reservations map[uuid.UUID]domain.Reservation
}

func NewStockRepository() repository.StockRepository {
	return &stockRepo{
		rows:         make(map[string]*stockRow),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
}

func (r *stockRepo) Reserve(_ context.Context, res domain.Reservation) error {
	row := r.row(res.VariantID)
	if row == nil {
		return fmt.Errorf("variant[%s]: %w", res.VariantID, repository.ErrInsufficientStock)
	}

	row.mu.Lock()
	if row.item.Available() < res.Quantity {
		row.mu.Unlock()
		return fmt.Errorf("variant[%s]: %w", res.VariantID, repository.ErrInsufficientStock)
	}
	row.item.Reserved += res.Quantity
	row.mu.Unlock()

	r.resMu.Lock()
	r.reservations[res.ID] = res
	r.resMu.Unlock()

	return nil
}

func (r *stockRepo) Commit(_ context.Context, id uuid.UUID) (bool, error) {
	res, ok, err := r.claim(id, domain.ReservationStatusReserved, domain.ReservationStatusCommitted)
	if err != nil || !ok {
		return false, err
	}

	r.adjust(res.VariantID, func(item *domain.StockItem) {
		item.Stock -= res.Quantity
		item.Reserved -= res.Quantity
	})

	return true, nil
}

func (r *stockRepo) Release(_ context.Context, id uuid.UUID, status domain.ReservationStatus) (bool, error) {
	res, ok, err := r.claim(id, domain.ReservationStatusReserved, status)
	if err != nil || !ok {
		return false, err
	}

	r.adjust(res.VariantID, func(item *domain.StockItem) {
		item.Reserved -= res.Quantity
	})

	return true, nil
}

func (r *stockRepo) Return(_ context.Context, id uuid.UUID) (bool, error) {
	res, ok, err := r.claim(id, domain.ReservationStatusCommitted, domain.ReservationStatusReturned)
	if err != nil || !ok {
		return false, err
	}

	r.adjust(res.VariantID, func(item *domain.StockItem) {
		item.Stock += res.Quantity
	})

	return true, nil
}

func (r *stockRepo) FindReservations(_ context.Context, orderID uuid.UUID) ([]domain.Reservation, error) {
	r.resMu.Lock()
	result := lo.Filter(lo.Values(r.reservations), func(res domain.Reservation, _ int) bool {
		return res.OrderID == orderID
	})
	r.resMu.Unlock()

	sortReservations(result)
	return result, nil
}

func (r *stockRepo) FindExpired(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	r.resMu.Lock()
	result := lo.Filter(lo.Values(r.reservations), func(res domain.Reservation, _ int) bool {
		return res.IsLive() && !res.ExpiresAt.After(now)
	})
	r.resMu.Unlock()

	sortReservations(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *stockRepo) GetStock(_ context.Context, variantID string) (*domain.StockItem, error) {
	row := r.row(variantID)
	if row == nil {
		return nil, fmt.Errorf("variant[%s]: %w", variantID, repository.ErrNotFound)
	}

	row.mu.Lock()
	item := row.item
	row.mu.Unlock()

	return &item, nil
}

func (r *stockRepo) ListStock(_ context.Context) ([]domain.StockItem, error) {
	r.mu.RLock()
	rows := lo.Values(r.rows)
	r.mu.RUnlock()

	items := lo.Map(rows, func(row *stockRow, _ int) domain.StockItem {
		row.mu.Lock()
		defer row.mu.Unlock()
		return row.item
	})

	slices.SortFunc(items, func(a, b domain.StockItem) int {
		return cmp.Or(
			cmp.Compare(a.ProductName, b.ProductName),
			cmp.Compare(a.VariantName, b.VariantName),
			cmp.Compare(a.VariantID, b.VariantID),
		)
	})
	return items, nil
}

func (r *stockRepo) SetStock(_ context.Context, item domain.StockItem) error {
	if item.Stock < 0 {
		return fmt.Errorf("variant[%s]: stock is negative", item.VariantID)
	}

	r.mu.Lock()
	row, ok := r.rows[item.VariantID]
	if !ok {
		row = &stockRow{item: domain.StockItem{VariantID: item.VariantID}}
		r.rows[item.VariantID] = row
	}
	r.mu.Unlock()

	row.mu.Lock()
	defer row.mu.Unlock()

	if item.Stock < row.item.Reserved {
		return fmt.Errorf("variant[%s] has %d reserved: %w", item.VariantID, row.item.Reserved, repository.ErrInsufficientStock)
	}

	row.item.ProductID = lo.CoalesceOrEmpty(item.ProductID, row.item.ProductID)
	row.item.ProductName = lo.CoalesceOrEmpty(item.ProductName, row.item.ProductName)
	row.item.VariantName = lo.CoalesceOrEmpty(item.VariantName, row.item.VariantName)
	row.item.Weight = lo.CoalesceOrEmpty(item.Weight, row.item.Weight)
	row.item.SKU = lo.CoalesceOrEmpty(item.SKU, row.item.SKU)
	row.item.Stock = item.Stock
	row.item.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *stockRepo) CountLowStock(_ context.Context, threshold int) (int, error) {
	r.mu.RLock()
	rows := lo.Values(r.rows)
	r.mu.RUnlock()

	return lo.CountBy(rows, func(row *stockRow) bool {
		row.mu.Lock()
		defer row.mu.Unlock()
		return row.item.Stock < threshold
	}), nil
}

func (r *stockRepo) row(variantID string) *stockRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rows[variantID]
}

// claim moves a reservation from one status to another and reports whether it did.
func (r *stockRepo) claim(id uuid.UUID, from, to domain.ReservationStatus) (domain.Reservation, bool, error) {
	r.resMu.Lock()
	defer r.resMu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return res, false, fmt.Errorf("reservation[%s]: %w", id, repository.ErrNotFound)
	}
	if res.Status != from {
		return res, false, nil
	}

	res.Status = to
	res.UpdatedAt = time.Now().UTC()
	r.reservations[id] = res

	return res, true, nil
}

func (r *stockRepo) adjust(variantID string, fn func(item *domain.StockItem)) {
	row := r.row(variantID)
	if row == nil {
		return
	}

	row.mu.Lock()
	fn(&row.item)
	row.item.UpdatedAt = time.Now().UTC()
	row.mu.Unlock()
}

func sortReservations(rs []domain.Reservation) {
	slices.SortFunc(rs, func(a, b domain.Reservation) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.VariantID, b.VariantID),
		)
	})
}
