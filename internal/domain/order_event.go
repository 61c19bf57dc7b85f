package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	OrderEventPlaced        OrderEventType = "order.placed"
	OrderEventConfirmed     OrderEventType = "order.confirmed"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent is handed to the messaging channel. Summary is already formatted for humans.
type OrderEvent struct {
	Type          OrderEventType  `json:"type"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        string          `json:"userId"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Total         decimal.Decimal `json:"total"`
	Email         string          `json:"email,omitempty"`
	Phone         string          `json:"phone"`
	Summary       string          `json:"summary"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func (e OrderEvent) PartitionKey() string {
	return e.OrderID.String()
}
