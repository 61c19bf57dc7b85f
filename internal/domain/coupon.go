package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MinOrderValue decimal.Decimal  `json:"min_order_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	UsageLimit    *int             `json:"usage_limit,omitempty"`
	UsageCount    int              `json:"usage_count"`
	ValidFrom     time.Time        `json:"valid_from"`
	ValidUntil    time.Time        `json:"valid_until"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
}

// CouponResult is the outcome of a successful validation.
type CouponResult struct {
	Discount decimal.Decimal `json:"discount"`
	Coupon   Coupon          `json:"coupon"`
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c Coupon) Validate() error {
	if c.Code == "" {
		return NewError(KindInvalidInput, "coupon code is empty")
	}
	if c.DiscountType != DiscountTypePercentage && c.DiscountType != DiscountTypeFixed {
		return NewError(KindInvalidInput, "unknown discount type %q", c.DiscountType)
	}
	if !c.DiscountValue.IsPositive() {
		return NewError(KindInvalidInput, "discount value must be positive")
	}
	if c.MinOrderValue.IsNegative() {
		return NewError(KindInvalidInput, "min order value must not be negative")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return NewError(KindInvalidInput, "usage limit must not be negative")
	}
	if !c.ValidUntil.After(c.ValidFrom) {
		return NewError(KindInvalidInput, "valid_until must be after valid_from")
	}
	return nil
}

func (c Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}

// Check reports why the coupon cannot be applied to subtotal at now, if it cannot.
func (c Coupon) Check(now time.Time, subtotal decimal.Decimal) error {
	if !c.IsActive {
		return NewError(KindInvalidCoupon, "coupon %s is not active", c.Code)
	}
	if now.Before(c.ValidFrom) || !now.Before(c.ValidUntil) {
		return NewError(KindInvalidCoupon, "coupon %s is expired or not yet valid", c.Code)
	}
	if subtotal.LessThan(c.MinOrderValue) {
		return NewError(KindInvalidCoupon, "minimum order value is %s", c.MinOrderValue.StringFixed(2))
	}
	if c.Exhausted() {
		return NewError(KindInvalidCoupon, "coupon %s usage limit reached", c.Code)
	}
	return nil
}

// DiscountFor computes the discount on subtotal without checking applicability.
func (c Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(0)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case DiscountTypeFixed:
		discount = decimal.Min(c.DiscountValue, subtotal)
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
