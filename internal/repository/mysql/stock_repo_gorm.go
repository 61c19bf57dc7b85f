package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) repository.StockRepository {
	return &stockRepo{db: db}
}

func (r *stockRepo) Reserve(ctx context.Context, res domain.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// guarded update: the row is only touched while enough units are available
		upd := tx.Model(&stockItemRow{}).
			Where("variant_id = ? AND stock - reserved >= ?", res.VariantID, res.Quantity).
			Updates(map[string]any{
				"reserved":   gorm.Expr("reserved + ?", res.Quantity),
				"updated_at": time.Now().UTC(),
			})
		if upd.Error != nil {
			return fmt.Errorf("tx.Updates reserved: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			return fmt.Errorf("variant[%s]: %w", res.VariantID, repository.ErrInsufficientStock)
		}

		row := mapDomainReservationToRow(res)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("tx.Create reservation: %w", err)
		}

		return nil
	})
}

func (r *stockRepo) Commit(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, domain.ReservationStatusReserved, domain.ReservationStatusCommitted, func(q int) map[string]any {
		return map[string]any{
			"stock":    gorm.Expr("stock - ?", q),
			"reserved": gorm.Expr("reserved - ?", q),
		}
	})
}

func (r *stockRepo) Release(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) (bool, error) {
	return r.transition(ctx, id, domain.ReservationStatusReserved, status, func(q int) map[string]any {
		return map[string]any{
			"reserved": gorm.Expr("reserved - ?", q),
		}
	})
}

func (r *stockRepo) Return(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, domain.ReservationStatusCommitted, domain.ReservationStatusReturned, func(q int) map[string]any {
		return map[string]any{
			"stock": gorm.Expr("stock + ?", q),
		}
	})
}

// transition locks the reservation row, moves it from one status to another and applies the
// matching stock adjustment in the same transaction. It reports false when the reservation
// was not in the from status.
func (r *stockRepo) transition(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.ReservationStatus,
	adjust func(quantity int) map[string]any,
) (bool, error) {
	moved := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row reservationRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "id = ?", id.String()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("reservation[%s]: %w", id, repository.ErrNotFound)
			}
			return fmt.Errorf("tx.First reservation: %w", err)
		}

		if row.Status != string(from) {
			return nil
		}

		now := time.Now().UTC()

		if err := tx.Model(&reservationRow{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{"status": string(to), "updated_at": now}).Error; err != nil {
			return fmt.Errorf("tx.Updates reservation: %w", err)
		}

		changes := adjust(row.Quantity)
		changes["updated_at"] = now

		if err := tx.Model(&stockItemRow{}).
			Where("variant_id = ?", row.VariantID).
			Updates(changes).Error; err != nil {
			return fmt.Errorf("tx.Updates stock: %w", err)
		}

		moved = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return moved, nil
}

func (r *stockRepo) FindReservations(ctx context.Context, orderID uuid.UUID) ([]domain.Reservation, error) {
	var rows []reservationRow

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID.String()).
		Order("created_at").Order("variant_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("db.Find: %w", err)
	}

	return mapReservationRows(rows)
}

func (r *stockRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", string(domain.ReservationStatusReserved), now).
		Order("created_at").Order("variant_id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []reservationRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("db.Find: %w", err)
	}

	return mapReservationRows(rows)
}

func (r *stockRepo) GetStock(ctx context.Context, variantID string) (*domain.StockItem, error) {
	var row stockItemRow

	if err := r.db.WithContext(ctx).First(&row, "variant_id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("variant[%s]: %w", variantID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db.First: %w", err)
	}

	item := mapStockRowToDomain(row)
	return &item, nil
}

func (r *stockRepo) ListStock(ctx context.Context) ([]domain.StockItem, error) {
	var rows []stockItemRow

	if err := r.db.WithContext(ctx).
		Order("product_name").Order("variant_name").Order("variant_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("db.Find: %w", err)
	}

	return lo.Map(rows, func(row stockItemRow, _ int) domain.StockItem {
		return mapStockRowToDomain(row)
	}), nil
}

func (r *stockRepo) SetStock(ctx context.Context, item domain.StockItem) error {
	if item.Stock < 0 {
		return fmt.Errorf("variant[%s]: stock is negative", item.VariantID)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row stockItemRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "variant_id = ?", item.VariantID).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = stockItemRow{VariantID: item.VariantID}
		case err != nil:
			return fmt.Errorf("tx.First stock: %w", err)
		}

		if item.Stock < row.Reserved {
			return fmt.Errorf("variant[%s] has %d reserved: %w", item.VariantID, row.Reserved, repository.ErrInsufficientStock)
		}

		row.ProductID = lo.CoalesceOrEmpty(item.ProductID, row.ProductID)
		row.ProductName = lo.CoalesceOrEmpty(item.ProductName, row.ProductName)
		row.VariantName = lo.CoalesceOrEmpty(item.VariantName, row.VariantName)
		row.Weight = lo.CoalesceOrEmpty(item.Weight, row.Weight)
		row.SKU = lo.CoalesceOrEmpty(item.SKU, row.SKU)
		row.Stock = item.Stock
		row.UpdatedAt = time.Now().UTC()

		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("tx.Save stock: %w", err)
		}
		return nil
	})
}

func (r *stockRepo) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&stockItemRow{}).Where("stock < ?", threshold).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("db.Count: %w", err)
	}

	return int(count), nil
}

func mapDomainReservationToRow(r domain.Reservation) reservationRow {
	return reservationRow{
		ID:        r.ID.String(),
		OrderID:   r.OrderID.String(),
		ProductID: r.ProductID,
		VariantID: r.VariantID,
		Quantity:  r.Quantity,
		Status:    string(r.Status),
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func mapReservationRows(rows []reservationRow) ([]domain.Reservation, error) {
	result := make([]domain.Reservation, 0, len(rows))

	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("uuid.Parse[%s]: %w", row.ID, err)
		}
		orderID, err := uuid.Parse(row.OrderID)
		if err != nil {
			return nil, fmt.Errorf("uuid.Parse[%s]: %w", row.OrderID, err)
		}

		result = append(result, domain.Reservation{
			ID:        id,
			OrderID:   orderID,
			ProductID: row.ProductID,
			VariantID: row.VariantID,
			Quantity:  row.Quantity,
			Status:    domain.ReservationStatus(row.Status),
			ExpiresAt: row.ExpiresAt,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}

	return result, nil
}

func mapStockRowToDomain(row stockItemRow) domain.StockItem {
	return domain.StockItem{
		ProductID:   row.ProductID,
		VariantID:   row.VariantID,
		ProductName: row.ProductName,
		VariantName: row.VariantName,
		Weight:      row.Weight,
		SKU:         row.SKU,
		Stock:       row.Stock,
		Reserved:    row.Reserved,
		UpdatedAt:   row.UpdatedAt,
	}
}
