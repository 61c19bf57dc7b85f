package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

// InventoryLedger is the only writer of stock. Units move through reservations:
// reserve holds them, commit takes them from stock, release hands them back.
type InventoryLedger struct {
	repo    repository.StockRepository
	catalog infra.CatalogInterface
	now     func() time.Time
}

func NewInventoryLedger(repo repository.StockRepository, catalog infra.CatalogInterface) *InventoryLedger {
	return &InventoryLedger{
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
	}
}

func (l *InventoryLedger) Reserve(ctx context.Context, orderID uuid.UUID, productID, variantID string, quantity int, ttl time.Duration) (uuid.UUID, error) {
	if quantity < 1 {
		return uuid.Nil, domain.NewError(domain.KindInvalidInput, "quantity must be at least 1")
	}

	res := domain.NewReservation(orderID, productID, variantID, quantity, l.now().UTC(), ttl)

	if err := l.repo.Reserve(ctx, res); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return uuid.Nil, domain.NewError(domain.KindInsufficientStock, "not enough stock for variant %s", variantID)
		}
		return uuid.Nil, fmt.Errorf("repo.Reserve: %w", err)
	}

	return res.ID, nil
}

// ReserveAll reserves every line for orderID or none of them.
func (l *InventoryLedger) ReserveAll(ctx context.Context, orderID uuid.UUID, lines []domain.CartLine, ttl time.Duration) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(lines))

	for _, line := range lines {
		id, err := l.Reserve(ctx, orderID, line.ProductID, line.VariantID, line.Quantity, ttl)
		if err != nil {
			l.releaseAll(ids)
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Commit makes a live reservation permanent. It reports false when the reservation was
// already committed, released or expired.
func (l *InventoryLedger) Commit(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := l.repo.Commit(ctx, id)
	if err != nil {
		return false, fmt.Errorf("repo.Commit: %w", err)
	}
	return ok, nil
}

// Release hands the units of a live reservation back. Releasing twice, or releasing an
// unknown reservation, is a no-op.
func (l *InventoryLedger) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	return l.release(ctx, id, domain.ReservationStatusReleased)
}

func (l *InventoryLedger) release(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) (bool, error) {
	ok, err := l.repo.Release(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repo.Release: %w", err)
	}
	return ok, nil
}

// CommitOrder takes the units of items out of stock for orderID.
// Units whose reservation lapsed are reserved again first; if they are gone the whole
// commit fails with InsufficientStock and nothing is taken.
func (l *InventoryLedger) CommitOrder(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem, ttl time.Duration) error {
	reservations, err := l.repo.FindReservations(ctx, orderID)
	if err != nil {
		return fmt.Errorf("repo.FindReservations: %w", err)
	}

	held := make(map[string]int, len(items))
	var live []uuid.UUID
	for _, r := range reservations {
		if r.Holds() {
			held[r.VariantID] += r.Quantity
		}
		if r.IsLive() {
			live = append(live, r.ID)
		}
	}

	var topUp []uuid.UUID
	for _, item := range items {
		missing := item.Quantity - held[item.VariantID]
		if missing <= 0 {
			continue
		}

		logger.Warn().Str("order_id", orderID.String()).Str("variant_id", item.VariantID).Int("missing", missing).
			Msg("reservation lapsed, reserving again")

		id, err := l.Reserve(ctx, orderID, item.ProductID, item.VariantID, missing, ttl)
		if err != nil {
			l.releaseAll(topUp)
			return err
		}
		topUp = append(topUp, id)
	}

	for _, id := range append(live, topUp...) {
		if _, err := l.Commit(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// ReleaseOrder releases every live reservation of orderID, marking them with status.
func (l *InventoryLedger) ReleaseOrder(ctx context.Context, orderID uuid.UUID, status domain.ReservationStatus) (int, error) {
	reservations, err := l.repo.FindReservations(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("repo.FindReservations: %w", err)
	}

	released := 0
	for _, r := range reservations {
		if !r.IsLive() {
			continue
		}
		ok, err := l.release(ctx, r.ID, status)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}

	return released, nil
}

// CancelOrder releases the live reservations of orderID and puts committed units back into stock.
func (l *InventoryLedger) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	reservations, err := l.repo.FindReservations(ctx, orderID)
	if err != nil {
		return fmt.Errorf("repo.FindReservations: %w", err)
	}

	for _, r := range reservations {
		switch r.Status {
		case domain.ReservationStatusReserved:
			if _, err := l.release(ctx, r.ID, domain.ReservationStatusReleased); err != nil {
				return err
			}
		case domain.ReservationStatusCommitted:
			if _, err := l.repo.Return(ctx, r.ID); err != nil {
				return fmt.Errorf("repo.Return: %w", err)
			}
		}
	}

	return nil
}

// ExpiredReservations lists live reservations whose ttl has run out.
func (l *InventoryLedger) ExpiredReservations(ctx context.Context, limit int) ([]domain.Reservation, error) {
	expired, err := l.repo.FindExpired(ctx, l.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("repo.FindExpired: %w", err)
	}
	return expired, nil
}

// ExpireReservation releases one reservation as expired.
func (l *InventoryLedger) ExpireReservation(ctx context.Context, id uuid.UUID) (bool, error) {
	return l.release(ctx, id, domain.ReservationStatusExpired)
}

func (l *InventoryLedger) LowStock(ctx context.Context, variantID string) (bool, error) {
	item, err := l.repo.GetStock(ctx, variantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, domain.NewError(domain.KindNotFound, "variant %s has no stock record", variantID)
		}
		return false, fmt.Errorf("repo.GetStock: %w", err)
	}
	return item.LowStock(), nil
}

func (l *InventoryLedger) LowStockCount(ctx context.Context) (int, error) {
	n, err := l.repo.CountLowStock(ctx, domain.LowStockThreshold)
	if err != nil {
		return 0, fmt.Errorf("repo.CountLowStock: %w", err)
	}
	return n, nil
}

func (l *InventoryLedger) List(ctx context.Context) ([]domain.StockItem, error) {
	items, err := l.repo.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.ListStock: %w", err)
	}
	return items, nil
}

// SetStock sets the absolute stock of a variant, creating its ledger row on first use.
// Descriptive fields are taken from the catalog.
func (l *InventoryLedger) SetStock(ctx context.Context, productID, variantID string, stock int) (*domain.StockItem, error) {
	if stock < 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "stock must not be negative")
	}

	variant, err := l.catalog.GetVariant(ctx, productID, variantID)
	if err != nil {
		return nil, fmt.Errorf("catalog.GetVariant: %w", err)
	}
	if variant == nil {
		return nil, domain.NewError(domain.KindNotFound, "variant %s of product %s not found", variantID, productID)
	}

	item := domain.StockItem{
		ProductID:   productID,
		VariantID:   variantID,
		ProductName: variant.ProductName,
		VariantName: variant.VariantName,
		Weight:      variant.Weight,
		SKU:         variant.SKU,
		Stock:       stock,
	}

	if err := l.repo.SetStock(ctx, item); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, domain.NewError(domain.KindInsufficientStock, "stock of variant %s cannot go below the units reserved for open orders", variantID)
		}
		return nil, fmt.Errorf("repo.SetStock: %w", err)
	}

	saved, err := l.repo.GetStock(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("repo.GetStock: %w", err)
	}

	return saved, nil
}

// releaseAll undoes reservations on a failure path; it must finish even if ctx was cancelled.
func (l *InventoryLedger) releaseAll(ids []uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, id := range ids {
		if _, err := l.Release(ctx, id); err != nil {
			logger.Error().Err(err).Str("reservation_id", id.String()).Msg("failed to release reservation")
		}
	}
}
