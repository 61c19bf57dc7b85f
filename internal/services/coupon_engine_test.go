package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

func TestCouponEngine_Validate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	limit := 1

	f := newFixture(t)
	f.addCoupon(t, welcome20())
	f.addCoupon(t, domain.Coupon{
		Code:          "FLAT50",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(50),
		MinOrderValue: decimal.NewFromInt(300),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	})
	f.addCoupon(t, domain.Coupon{
		Code:          "OLD",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     now.Add(-48 * time.Hour),
		ValidUntil:    now.Add(-24 * time.Hour),
		IsActive:      true,
	})
	f.addCoupon(t, domain.Coupon{
		Code:          "OFF",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      false,
	})
	f.addCoupon(t, domain.Coupon{
		Code:          "ONCE",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(10),
		UsageLimit:    &limit,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	})
	_, err := f.engine.Redeem(ctx, "ONCE", uuid.New())
	require.NoError(t, err)

	tests := []struct {
		name     string
		code     string
		subtotal int64
		discount string
		kind     domain.ErrorKind
	}{
		{name: "percentage capped", code: "WELCOME20", subtotal: 1000, discount: "100"},
		{name: "percentage under cap", code: "welcome20", subtotal: 300, discount: "60"},
		{name: "fixed", code: " flat50 ", subtotal: 300, discount: "50"},
		{name: "below minimum", code: "FLAT50", subtotal: 299, kind: domain.KindInvalidCoupon},
		{name: "expired", code: "OLD", subtotal: 100, kind: domain.KindInvalidCoupon},
		{name: "inactive", code: "OFF", subtotal: 100, kind: domain.KindInvalidCoupon},
		{name: "exhausted", code: "ONCE", subtotal: 100, kind: domain.KindInvalidCoupon},
		{name: "unknown", code: "NOPE", subtotal: 100, kind: domain.KindInvalidCoupon},
		{name: "empty", code: "", subtotal: 100, kind: domain.KindInvalidCoupon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.engine.Validate(ctx, tt.code, decimal.NewFromInt(tt.subtotal))

			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, domain.KindOf(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.discount, result.Discount.String())
		})
	}
}

func TestCouponEngine_ValidateDoesNotCountUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCoupon(t, welcome20())

	for range 3 {
		_, err := f.engine.Validate(ctx, "WELCOME20", decimal.NewFromInt(500))
		require.NoError(t, err)
	}

	coupon, err := f.coupons.FindByCode(ctx, "WELCOME20")
	require.NoError(t, err)
	assert.Equal(t, 0, coupon.UsageCount)
}

func TestCouponEngine_RedeemOncePerOrder(t *testing.T) {
	ctx := context.Background()
	limit := 1

	f := newFixture(t)
	c := welcome20()
	c.UsageLimit = &limit
	f.addCoupon(t, c)

	orderID := uuid.New()

	redeemed, err := f.engine.Redeem(ctx, "WELCOME20", orderID)
	require.NoError(t, err)
	assert.True(t, redeemed)

	redeemed, err = f.engine.Redeem(ctx, "WELCOME20", orderID)
	require.NoError(t, err)
	assert.False(t, redeemed)

	// limit reached by a racing order: the order keeps its discount, the count stays put
	redeemed, err = f.engine.Redeem(ctx, "WELCOME20", uuid.New())
	require.NoError(t, err)
	assert.False(t, redeemed)

	coupon, err := f.coupons.FindByCode(ctx, "WELCOME20")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.UsageCount)
}

func TestCouponEngine_Admin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.engine.Create(ctx, welcome20())
	require.NoError(t, err)
	assert.Equal(t, "WELCOME20", created.Code)
	assert.NotEmpty(t, created.ID)

	_, err = f.engine.Create(ctx, welcome20())
	assert.ErrorIs(t, err, domain.ErrConflict)

	bad := welcome20()
	bad.Code = "BAD"
	bad.DiscountValue = decimal.Zero
	_, err = f.engine.Create(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	list, err := f.engine.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.engine.Delete(ctx, created.ID))
	assert.ErrorIs(t, f.engine.Delete(ctx, created.ID), domain.ErrNotFound)
}
