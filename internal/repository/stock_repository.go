package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

// StockRepository is the storage behind the inventory ledger. Every method that moves units
// is atomic per variant: implementations must never let Stock or Stock-Reserved go negative.
type StockRepository interface {
	// Reserve holds r.Quantity units of r.VariantID and stores r.
	// Returns ErrInsufficientStock when fewer units are available.
	Reserve(ctx context.Context, r domain.Reservation) error
	// Commit turns a live reservation into a permanent decrement.
	// Returns false when the reservation is not live anymore.
	Commit(ctx context.Context, id uuid.UUID) (bool, error)
	// Release gives the units of a live reservation back, marking it with status
	// (released or expired). Returns false when the reservation is not live anymore.
	Release(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) (bool, error)
	// Return puts the units of a committed reservation back into stock.
	// Returns false when the reservation is not committed.
	Return(ctx context.Context, id uuid.UUID) (bool, error)

	FindReservations(ctx context.Context, orderID uuid.UUID) ([]domain.Reservation, error)
	// FindExpired returns live reservations whose expiry is not after now, oldest first.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)

	GetStock(ctx context.Context, variantID string) (*domain.StockItem, error)
	ListStock(ctx context.Context) ([]domain.StockItem, error)
	// SetStock upserts item descriptors and sets Stock. Returns ErrInsufficientStock when
	// item.Stock is below the units currently reserved.
	SetStock(ctx context.Context, item domain.StockItem) error
	CountLowStock(ctx context.Context, threshold int) (int, error)
}
