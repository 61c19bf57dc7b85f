package domain

import (
	"time"

	"github.com/google/uuid"
)

const LowStockThreshold = 10

// StockItem is the ledger row of one variant.
// Reserved counts units held by live reservations; Available = Stock - Reserved.
type StockItem struct {
	ProductID   string    `json:"product_id"`
	VariantID   string    `json:"variant_id"`
	ProductName string    `json:"product_name"`
	VariantName string    `json:"variant_name"`
	Weight      string    `json:"weight"`
	SKU         string    `json:"sku"`
	Stock       int       `json:"stock"`
	Reserved    int       `json:"reserved"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s StockItem) Available() int {
	return s.Stock - s.Reserved
}

func (s StockItem) LowStock() bool {
	return s.Stock < LowStockThreshold
}

type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "reserved"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
	ReservationStatusExpired   ReservationStatus = "expired"
	// ReservationStatusReturned marks committed units given back to stock on cancellation.
	ReservationStatusReturned ReservationStatus = "returned"
)

type Reservation struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID string
	VariantID string
	Quantity  int
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewReservation(orderID uuid.UUID, productID, variantID string, quantity int, now time.Time, ttl time.Duration) Reservation {
	return Reservation{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		Status:    ReservationStatusReserved,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r Reservation) IsLive() bool {
	return r.Status == ReservationStatusReserved
}

// Holds reports whether the reservation still accounts for units of its order,
// either held or already taken from stock.
func (r Reservation) Holds() bool {
	return r.Status == ReservationStatusReserved || r.Status == ReservationStatusCommitted
}
