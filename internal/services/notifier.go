package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
)

// Notifier hands order events to the messaging channel. Notify must not block
// and must not fail the caller.
type Notifier interface {
	Notify(evt domain.OrderEvent)
}

type NopNotifier struct{}

func (NopNotifier) Notify(domain.OrderEvent) {}

const publishTimeout = 5 * time.Second

// AsyncNotifier publishes events from a buffered queue on its own goroutine.
// Events that do not fit into the queue are dropped and logged.
type AsyncNotifier struct {
	publisher infra.EventPublisher

	mu     sync.RWMutex
	closed bool
	events chan domain.OrderEvent
	done   chan struct{}
}

func NewAsyncNotifier(publisher infra.EventPublisher, buffer int) *AsyncNotifier {
	n := &AsyncNotifier{
		publisher: publisher,
		events:    make(chan domain.OrderEvent, buffer),
		done:      make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *AsyncNotifier) Notify(evt domain.OrderEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		logger.Warn().Str("order_id", evt.OrderID.String()).Str("type", string(evt.Type)).Msg("notifier closed, event dropped")
		return
	}

	select {
	case n.events <- evt:
	default:
		logger.Warn().Str("order_id", evt.OrderID.String()).Str("type", string(evt.Type)).Msg("notification queue full, event dropped")
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (n *AsyncNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.events)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *AsyncNotifier) run() {
	defer close(n.done)

	for evt := range n.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := n.publisher.Publish(ctx, string(evt.Type), evt)
		cancel()

		if err != nil {
			logger.Error().Err(err).Str("order_id", evt.OrderID.String()).Str("type", string(evt.Type)).Msg("failed to publish order event")
			continue
		}
		logger.Debug().Str("order_id", evt.OrderID.String()).Str("type", string(evt.Type)).Msg("order event published")
	}
}

func NewOrderEvent(t domain.OrderEventType, order domain.Order, at time.Time) domain.OrderEvent {
	return domain.OrderEvent{
		Type:          t,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Email:         order.Address.Email,
		Phone:         order.Address.Phone,
		Summary:       OrderSummary(order),
		OccurredAt:    at.UTC(),
	}
}

// OrderSummary renders order as plain text for messaging channels.
func OrderSummary(order domain.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order #%s (%s)\n", order.ShortID(), order.Status)
	for _, item := range order.Items {
		name := item.ProductName
		if item.VariantName != "" {
			name += " - " + item.VariantName
		}
		fmt.Fprintf(&b, "%s x%d = %s\n", name, item.Quantity, item.LineTotal().StringFixed(2))
	}

	fmt.Fprintf(&b, "Subtotal: %s\n", order.Subtotal.StringFixed(2))
	if order.Discount.IsPositive() {
		fmt.Fprintf(&b, "Discount (%s): -%s\n", order.CouponCode, order.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Shipping: %s\n", order.Shipping.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s\n", order.Total.StringFixed(2))

	if order.TrackingID != "" {
		fmt.Fprintf(&b, "Courier: %s, tracking %s\n", order.CourierName, order.TrackingID)
	}

	a := order.Address
	fmt.Fprintf(&b, "Ship to: %s, %s, %s, %s %s (%s)", a.Name, a.Address, a.City, a.State, a.Pincode, a.Phone)

	return b.String()
}
