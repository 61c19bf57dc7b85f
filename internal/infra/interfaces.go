package infra

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

// CatalogInterface is the read-only source of live prices.
// GetVariant returns nil, nil when the variant does not exist.
type CatalogInterface interface {
	GetVariant(ctx context.Context, productID, variantID string) (*domain.Variant, error)
}

// Payment is the gateway's record of a captured or authorized payment.
// Amount is in the currency's minor units.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type PaymentGatewayInterface interface {
	// OpenIntent registers amount with the gateway and returns the gateway order id.
	OpenIntent(ctx context.Context, amount decimal.Decimal, receipt string) (string, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	// MinorUnits converts amount the same way OpenIntent does.
	MinorUnits(amount decimal.Decimal) int64
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// IdempotencyStore remembers which order a client request key produced.
type IdempotencyStore interface {
	// Claim reserves key. When the key was already claimed it returns false and the order id
	// stored by Complete, which is empty while the first request is still running.
	Claim(ctx context.Context, key string, ttl time.Duration) (claimed bool, orderID string, err error)
	Complete(ctx context.Context, key, orderID string, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

type CacheInterface interface {
	// GetJSON decodes the cached value into dst and reports whether there was one.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

var (
	_ CatalogInterface        = (*ProductClient)(nil)
	_ CatalogInterface        = (*CachedCatalog)(nil)
	_ CatalogInterface        = (*StaticCatalog)(nil)
	_ PaymentGatewayInterface = (*RazorpayGateway)(nil)
	_ PaymentGatewayInterface = (*SandboxGateway)(nil)
	_ EventPublisher          = (*LogPublisher)(nil)
	_ IdempotencyStore        = (*RedisIdempotencyStore)(nil)
	_ CacheInterface          = (*RedisCache)(nil)
)
