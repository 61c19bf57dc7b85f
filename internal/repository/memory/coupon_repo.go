package memory

import (
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

type couponRepo struct {
	mu          sync.Mutex
	coupons     map[string]domain.Coupon // by code
	redemptions map[uuid.UUID]string     // order id -> code
}

func NewCouponRepository() repository.CouponRepository {
	return &couponRepo{
		coupons:     make(map[string]domain.Coupon),
		redemptions: make(map[uuid.UUID]string),
	}
}

func (r *couponRepo) Create(_ context.Context, coupon *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.coupons[coupon.Code]; exists {
		return fmt.Errorf("coupon[%s]: %w", coupon.Code, repository.ErrDuplicate)
	}

	if coupon.ID == "" {
		coupon.ID = uuid.NewString()
	}
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = time.Now().UTC()
	}

	r.coupons[coupon.Code] = cloneCoupon(*coupon)
	return nil
}

func (r *couponRepo) FindByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, fmt.Errorf("coupon[%s]: %w", code, repository.ErrNotFound)
	}

	c = cloneCoupon(c)
	return &c, nil
}

func (r *couponRepo) List(_ context.Context) ([]domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := lo.Map(lo.Values(r.coupons), func(c domain.Coupon, _ int) domain.Coupon {
		return cloneCoupon(c)
	})
	slices.SortFunc(result, func(a, b domain.Coupon) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return result, nil
}

func (r *couponRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, c := range r.coupons {
		if c.ID == id {
			delete(r.coupons, code)
			return nil
		}
	}

	return fmt.Errorf("coupon id[%s]: %w", id, repository.ErrNotFound)
}

func (r *couponRepo) Redeem(_ context.Context, code string, orderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.redemptions[orderID]; done {
		return false, nil
	}

	c, ok := r.coupons[code]
	if !ok {
		return false, fmt.Errorf("coupon[%s]: %w", code, repository.ErrNotFound)
	}
	if c.Exhausted() {
		return false, fmt.Errorf("coupon[%s]: %w", code, repository.ErrCouponExhausted)
	}

	c.UsageCount++
	r.coupons[code] = c
	r.redemptions[orderID] = code

	return true, nil
}

func cloneCoupon(c domain.Coupon) domain.Coupon {
	if c.MaxDiscount != nil {
		c.MaxDiscount = lo.ToPtr(*c.MaxDiscount)
	}
	if c.UsageLimit != nil {
		c.UsageLimit = lo.ToPtr(*c.UsageLimit)
	}
	return c
}
