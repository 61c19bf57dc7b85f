package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

var (
	_ repository.OrderRepository    = (*MockOrderRepository)(nil)
	_ infra.CatalogInterface        = (*MockCatalog)(nil)
	_ infra.PaymentGatewayInterface = (*MockGateway)(nil)
	_ infra.EventPublisher          = (*MockPublisher)(nil)
	_ infra.IdempotencyStore        = (*MockIdempotencyStore)(nil)
	_ infra.CacheInterface          = (*MockCache)(nil)
)

type MockOrderRepository struct {
	mock.Mock
}

type MockCatalog struct {
	mock.Mock
}

type MockGateway struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

type MockIdempotencyStore struct {
	mock.Mock
}

type MockCache struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

func (m *MockCatalog) GetVariant(ctx context.Context, productID, variantID string) (*domain.Variant, error) {
	args := m.Called(ctx, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *MockGateway) OpenIntent(ctx context.Context, amount decimal.Decimal, receipt string) (string, error) {
	args := m.Called(ctx, amount, receipt)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*infra.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.Payment), args.Error(1)
}

func (m *MockGateway) MinorUnits(amount decimal.Decimal) int64 {
	args := m.Called(amount)
	return args.Get(0).(int64)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Search(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OrderStats), args.Error(1)
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key, orderID string, ttl time.Duration) error {
	args := m.Called(ctx, key, orderID, ttl)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}
