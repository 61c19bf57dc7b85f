package http

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

type ValidateCouponRequest struct {
	Code     string          `json:"code" binding:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type ValidateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Coupon   domain.Coupon   `json:"coupon"`
}

// CreateOrderRequest accepts the cart under "lines" or "items".
type CreateOrderRequest struct {
	Lines         []domain.CartLine `json:"lines"`
	Items         []domain.CartLine `json:"items"`
	Address       domain.Address    `json:"address"`
	CouponCode    string            `json:"coupon_code"`
	PaymentMethod string            `json:"payment_method"`
}

func (r CreateOrderRequest) CartLines() []domain.CartLine {
	if len(r.Lines) > 0 {
		return r.Lines
	}
	return r.Items
}

// VerifyPaymentRequest takes the gateway callback as the checkout widget reports it;
// camelCase, snake_case and razorpay_* keys are all accepted.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`

	SnakeOrderID   string `json:"gateway_order_id"`
	SnakePaymentID string `json:"gateway_payment_id"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (r VerifyPaymentRequest) Callback() domain.PaymentCallback {
	return domain.PaymentCallback{
		GatewayOrderID:   lo.CoalesceOrEmpty(r.GatewayOrderID, r.SnakeOrderID, r.RazorpayOrderID),
		GatewayPaymentID: lo.CoalesceOrEmpty(r.GatewayPaymentID, r.SnakePaymentID, r.RazorpayPaymentID),
		Signature:        lo.CoalesceOrEmpty(r.Signature, r.RazorpaySignature),
	}
}

type UpdateStatusRequest struct {
	Status      string `json:"status" binding:"required"`
	CourierName string `json:"courier_name"`
	TrackingID  string `json:"tracking_id"`
}

type SetStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

type InventoryItemResponse struct {
	ProductID   string    `json:"product_id"`
	VariantID   string    `json:"variant_id"`
	ProductName string    `json:"product_name"`
	VariantName string    `json:"variant_name"`
	Weight      string    `json:"weight"`
	SKU         string    `json:"sku"`
	Stock       int       `json:"stock"`
	Reserved    int       `json:"reserved"`
	Available   int       `json:"available"`
	LowStock    bool      `json:"low_stock"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toInventoryItemResponse(item domain.StockItem) InventoryItemResponse {
	return InventoryItemResponse{
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		ProductName: item.ProductName,
		VariantName: item.VariantName,
		Weight:      item.Weight,
		SKU:         item.SKU,
		Stock:       item.Stock,
		Reserved:    item.Reserved,
		Available:   item.Available(),
		LowStock:    item.LowStock(),
		UpdatedAt:   item.UpdatedAt,
	}
}

type CreateCouponRequest struct {
	Code          string           `json:"code" binding:"required"`
	DiscountType  string           `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MinOrderValue decimal.Decimal  `json:"min_order_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount"`
	UsageLimit    *int             `json:"usage_limit"`
	ValidFrom     time.Time        `json:"valid_from" binding:"required"`
	ValidUntil    time.Time        `json:"valid_until" binding:"required"`
	IsActive      *bool            `json:"is_active"`
}

func (r CreateCouponRequest) Coupon() domain.Coupon {
	return domain.Coupon{
		Code:          r.Code,
		DiscountType:  domain.DiscountType(r.DiscountType),
		DiscountValue: r.DiscountValue,
		MinOrderValue: r.MinOrderValue,
		MaxDiscount:   r.MaxDiscount,
		UsageLimit:    r.UsageLimit,
		ValidFrom:     r.ValidFrom,
		ValidUntil:    r.ValidUntil,
		IsActive:      lo.FromPtrOr(r.IsActive, true),
	}
}

type PaymentConfig struct {
	KeyID    string `json:"key_id"`
	Currency string `json:"currency"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
