package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConcurrentUpdate  = errors.New("concurrent update")
	ErrDuplicate         = errors.New("duplicate")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
)

type OrderRepository interface {
	// Save inserts a new order and sets its Version to 1.
	Save(ctx context.Context, order *domain.Order) error
	// Update persists the mutable fields of order if its Version still matches storage,
	// then bumps order.Version. Returns ErrConcurrentUpdate on a lost race.
	Update(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// Search returns matching orders, newest first.
	Search(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	Stats(ctx context.Context) (domain.OrderStats, error)
}
