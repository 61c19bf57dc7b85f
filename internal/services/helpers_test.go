package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository/memory"
)

const (
	testSecret  = "test-secret"
	testUserID  = "user-1"
	testProduct = "prod-1"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (n *recordingNotifier) Notify(evt domain.OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) Types() []domain.OrderEventType {
	n.mu.Lock()
	defer n.mu.Unlock()

	types := make([]domain.OrderEventType, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

// fixture wires the services over in-memory storage, a static catalog and the sandbox gateway.
type fixture struct {
	orders  repository.OrderRepository
	stock   repository.StockRepository
	coupons repository.CouponRepository

	catalog  *infra.StaticCatalog
	gateway  *infra.SandboxGateway
	notifier *recordingNotifier

	engine   *CouponEngine
	ledger   *InventoryLedger
	verifier *PaymentVerifier
	service  *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gateway, err := infra.NewSandboxGateway("INR")
	require.NoError(t, err)

	f := &fixture{
		orders:   memory.NewOrderRepository(),
		stock:    memory.NewStockRepository(),
		coupons:  memory.NewCouponRepository(),
		catalog:  infra.NewStaticCatalog(),
		gateway:  gateway,
		notifier: &recordingNotifier{},
	}

	f.engine = NewCouponEngine(f.coupons)
	f.ledger = NewInventoryLedger(f.stock, f.catalog)
	f.verifier = NewPaymentVerifier(testSecret, f.gateway)
	f.service = f.serviceOver(f.orders)

	return f
}

// serviceOver builds another service instance sharing the fixture's stock, coupons and gateway.
func (f *fixture) serviceOver(orders repository.OrderRepository) *OrderService {
	return NewOrderService(orders, f.catalog, f.engine, f.ledger, f.verifier, f.gateway, f.notifier, OrderSettings{
		ReservationTTL:       15 * time.Minute,
		ManualReservationTTL: 48 * time.Hour,
		IdempotencyTTL:       time.Hour,
	})
}

// racingOrderRepository lets another writer change the stored order right before the next Update.
type racingOrderRepository struct {
	repository.OrderRepository
	race func(ctx context.Context)
}

func (r *racingOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if race := r.race; race != nil {
		r.race = nil
		race(ctx)
	}
	return r.OrderRepository.Update(ctx, order)
}

// overwrite stores a change made by some other instance, with no stock movement.
func (f *fixture) overwrite(t *testing.T, ctx context.Context, id uuid.UUID, change func(*domain.Order)) {
	t.Helper()

	order, err := f.orders.FindByID(ctx, id)
	require.NoError(t, err)
	change(order)
	require.NoError(t, f.orders.Update(ctx, order))
}

func (f *fixture) addVariant(t *testing.T, variantID, price string, stock int) {
	t.Helper()

	f.catalog.Put(domain.Variant{
		ProductID:   testProduct,
		VariantID:   variantID,
		ProductName: "Tomato Seeds",
		VariantName: variantID,
		Weight:      "10g",
		SKU:         "SKU-" + variantID,
		Price:       decimal.RequireFromString(price),
		Active:      true,
	})

	_, err := f.ledger.SetStock(context.Background(), testProduct, variantID, stock)
	require.NoError(t, err)
}

func (f *fixture) addCoupon(t *testing.T, coupon domain.Coupon) {
	t.Helper()

	_, err := f.engine.Create(context.Background(), coupon)
	require.NoError(t, err)
}

func (f *fixture) stockOf(t *testing.T, variantID string) domain.StockItem {
	t.Helper()

	item, err := f.stock.GetStock(context.Background(), variantID)
	require.NoError(t, err)
	return *item
}

// pay completes checkout at the sandbox gateway and returns the signed callback.
func (f *fixture) pay(t *testing.T, order *domain.Order) domain.PaymentCallback {
	t.Helper()

	paymentID, err := f.gateway.Pay(order.GatewayOrderID, -1)
	require.NoError(t, err)

	return domain.PaymentCallback{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        Sign(testSecret, order.GatewayOrderID, paymentID),
	}
}

func (f *fixture) checkout(t *testing.T, method domain.PaymentMethod, coupon string, lines ...domain.CartLine) *domain.Order {
	t.Helper()

	order, err := f.service.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        testUserID,
		Lines:         lines,
		Address:       testAddress(),
		CouponCode:    coupon,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return order
}

func line(variantID string, quantity int) domain.CartLine {
	return domain.CartLine{ProductID: testProduct, VariantID: variantID, Quantity: quantity}
}

func testAddress() domain.Address {
	return domain.Address{
		Name:    "Asha Patel",
		Phone:   "9876543210",
		Email:   "asha@example.com",
		Address: "12 Market Road",
		City:    "Jaipur",
		State:   "Rajasthan",
		Pincode: "302001",
	}
}

func welcome20() domain.Coupon {
	maxDiscount := decimal.NewFromInt(100)
	return domain.Coupon{
		Code:          "welcome20",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(20),
		MaxDiscount:   &maxDiscount,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(24 * time.Hour),
		IsActive:      true,
	}
}
