package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orderRow struct {
	ID     string         `gorm:"primaryKey;size:36"`
	UserID string         `gorm:"size:64;index"`
	Items  []orderItemRow `gorm:"foreignKey:OrderID;references:ID"`

	AddressName    string `gorm:"size:255;not null"`
	AddressPhone   string `gorm:"size:32;not null"`
	AddressEmail   string `gorm:"size:255"`
	AddressLine    string `gorm:"size:512;not null"`
	AddressCity    string `gorm:"size:128;not null"`
	AddressState   string `gorm:"size:128;not null"`
	AddressPincode string `gorm:"size:16;not null"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Shipping       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CouponCode     string          `gorm:"size:64"`
	CouponRedeemed bool            `gorm:"not null;default:false"`

	PaymentMethod    string `gorm:"size:16;not null"`
	PaymentStatus    string `gorm:"size:16;not null;index"`
	OrderStatus      string `gorm:"size:16;not null;index"`
	GatewayOrderID   string `gorm:"size:64;index"`
	GatewayPaymentID string `gorm:"size:64"`
	CourierName      string `gorm:"size:128"`
	TrackingID       string `gorm:"size:128"`

	Version int `gorm:"not null"`

	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

func (orderRow) TableName() string { return "orders" }

type orderItemRow struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	OrderID     string          `gorm:"size:36;not null;index"`
	ProductID   string          `gorm:"size:64;not null"`
	VariantID   string          `gorm:"size:64;not null"`
	ProductName string          `gorm:"size:255;not null"`
	VariantName string          `gorm:"size:255"`
	Weight      string          `gorm:"size:64"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity    int             `gorm:"not null"`
}

func (orderItemRow) TableName() string { return "order_items" }

type couponRow struct {
	ID            string              `gorm:"primaryKey;size:36"`
	Code          string              `gorm:"size:64;uniqueIndex;not null"`
	DiscountType  string              `gorm:"size:16;not null"`
	DiscountValue decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	MinOrderValue decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	MaxDiscount   decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	UsageLimit    *int
	UsageCount    int       `gorm:"not null;default:0;check:usage_count >= 0"`
	ValidFrom     time.Time `gorm:"not null"`
	ValidUntil    time.Time `gorm:"not null"`
	IsActive      bool      `gorm:"not null"`
	CreatedAt     time.Time
}

func (couponRow) TableName() string { return "coupons" }

// couponRedemptionRow makes redemption idempotent per order.
type couponRedemptionRow struct {
	OrderID   string `gorm:"primaryKey;size:36"`
	Code      string `gorm:"size:64;not null;index"`
	CreatedAt time.Time
}

func (couponRedemptionRow) TableName() string { return "coupon_redemptions" }

type stockItemRow struct {
	VariantID   string `gorm:"primaryKey;size:64"`
	ProductID   string `gorm:"size:64;not null;index"`
	ProductName string `gorm:"size:255"`
	VariantName string `gorm:"size:255"`
	Weight      string `gorm:"size:64"`
	SKU         string `gorm:"size:64"`
	Stock       int    `gorm:"not null;check:stock >= 0"`
	Reserved    int    `gorm:"not null;default:0;check:reserved >= 0"`
	UpdatedAt   time.Time
}

func (stockItemRow) TableName() string { return "stock_items" }

type reservationRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	OrderID   string    `gorm:"size:36;not null;index"`
	ProductID string    `gorm:"size:64;not null"`
	VariantID string    `gorm:"size:64;not null"`
	Quantity  int       `gorm:"not null"`
	Status    string    `gorm:"size:16;not null;index:idx_reservation_status_expiry,priority:1"`
	ExpiresAt time.Time `gorm:"not null;index:idx_reservation_status_expiry,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (reservationRow) TableName() string { return "stock_reservations" }

// Migrate creates or updates every table the repositories use.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&orderRow{},
		&orderItemRow{},
		&couponRow{},
		&couponRedemptionRow{},
		&stockItemRow{},
		&reservationRow{},
	)
}
