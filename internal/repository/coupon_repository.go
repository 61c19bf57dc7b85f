package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Delete(ctx context.Context, id string) error
	// Redeem counts one use of code for orderID. It returns false without counting when the
	// order already redeemed, and ErrCouponExhausted when the limit would be exceeded.
	Redeem(ctx context.Context, code string, orderID uuid.UUID) (bool, error)
}
