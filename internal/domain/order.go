package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID      uuid.UUID   `json:"id"`
	UserID  string      `json:"user_id"`
	Items   []OrderItem `json:"items"`
	Address Address     `json:"address"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponRedeemed bool            `json:"-"`

	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	Status           OrderStatus   `json:"order_status"`
	GatewayOrderID   string        `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`

	CourierName string `json:"courier_name,omitempty"`
	TrackingID  string `json:"tracking_id,omitempty"`

	// Version is bumped on every persisted change and guards concurrent updates.
	Version int `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// OrderItem is a frozen snapshot of a variant at checkout time.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name"`
	Weight      string          `json:"weight"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (a Address) Validate() error {
	var missing []string
	for field, value := range map[string]string{
		"name":    a.Name,
		"phone":   a.Phone,
		"address": a.Address,
		"city":    a.City,
		"state":   a.State,
		"pincode": a.Pincode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return NewError(KindInvalidInput, "address is missing %s", strings.Join(missing, ", "))
	}

	return nil
}

// StatusChange is an admin request to move an order to another status.
// Courier and tracking are only meaningful for the shipped status.
type StatusChange struct {
	Status      OrderStatus
	CourierName string
	TrackingID  string
}

// PaymentCallback is what the payment gateway hands back after checkout.
type PaymentCallback struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// CheckTransition reports whether o may move to change.Status.
// Payment gating of pending -> confirmed is left to the caller, which knows the payment method.
func (o Order) CheckTransition(change StatusChange) error {
	if _, ok := validOrderStatuses[change.Status]; !ok {
		return NewError(KindInvalidTransition, "unknown status %q", change.Status)
	}

	if !o.Status.CanTransitionTo(change.Status) {
		return NewError(KindInvalidTransition, "cannot move order from %s to %s", o.Status, change.Status)
	}

	if change.Status == OrderStatusShipped {
		if strings.TrimSpace(change.CourierName) == "" || strings.TrimSpace(change.TrackingID) == "" {
			return NewError(KindInvalidTransition, "courier name and tracking id are required to ship")
		}
	}

	return nil
}

func (o Order) ShortID() string {
	return o.ID.String()[:8]
}
