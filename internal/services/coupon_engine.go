package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

// CouponEngine validates coupon codes and counts their use.
// Validation never touches usage_count; only Redeem does, once per order.
type CouponEngine struct {
	repo repository.CouponRepository
	now  func() time.Time
}

func NewCouponEngine(repo repository.CouponRepository) *CouponEngine {
	return &CouponEngine{
		repo: repo,
		now:  time.Now,
	}
}

func (e *CouponEngine) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*domain.CouponResult, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, domain.NewError(domain.KindInvalidCoupon, "coupon code is required")
	}
	if subtotal.IsNegative() {
		return nil, domain.NewError(domain.KindInvalidInput, "subtotal must not be negative")
	}

	coupon, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindInvalidCoupon, "invalid coupon code")
		}
		return nil, fmt.Errorf("repo.FindByCode: %w", err)
	}

	if err := coupon.Check(e.now(), subtotal); err != nil {
		return nil, err
	}

	return &domain.CouponResult{
		Discount: coupon.DiscountFor(subtotal),
		Coupon:   *coupon,
	}, nil
}

// Redeem counts one use of code for orderID. It reports whether this call did the counting.
// When the limit filled up between validation and redemption the order keeps its discount
// and the count stays at the limit.
func (e *CouponEngine) Redeem(ctx context.Context, code string, orderID uuid.UUID) (bool, error) {
	redeemed, err := e.repo.Redeem(ctx, domain.NormalizeCouponCode(code), orderID)
	switch {
	case errors.Is(err, repository.ErrCouponExhausted), errors.Is(err, repository.ErrNotFound):
		logger.Warn().Err(err).Str("coupon", code).Str("order_id", orderID.String()).
			Msg("coupon could not be counted, discount honored")
		return false, nil
	case err != nil:
		return false, fmt.Errorf("repo.Redeem: %w", err)
	}

	return redeemed, nil
}

func (e *CouponEngine) Create(ctx context.Context, coupon domain.Coupon) (*domain.Coupon, error) {
	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	coupon.UsageCount = 0

	if err := coupon.Validate(); err != nil {
		return nil, err
	}

	if err := e.repo.Create(ctx, &coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewError(domain.KindConflict, "coupon code %s already exists", coupon.Code)
		}
		return nil, fmt.Errorf("repo.Create: %w", err)
	}

	return &coupon, nil
}

func (e *CouponEngine) List(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := e.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.List: %w", err)
	}
	return coupons, nil
}

func (e *CouponEngine) Delete(ctx context.Context, id string) error {
	if err := e.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewError(domain.KindNotFound, "coupon not found")
		}
		return fmt.Errorf("repo.Delete: %w", err)
	}
	return nil
}
