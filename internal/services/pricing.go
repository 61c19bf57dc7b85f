package services

import (
	"github.com/shopspring/decimal"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(500)
	FlatShipping          = decimal.NewFromInt(50)
)

// Quote prices lines from the variant prices they carry, never from client input.
// The coupon result must have been computed against the same subtotal.
func Quote(lines []domain.PricedLine, coupon *domain.CouponResult) domain.Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = decimal.Min(coupon.Discount, subtotal)
	}

	shipping := FlatShipping
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.Quote{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    total,
	}
}
