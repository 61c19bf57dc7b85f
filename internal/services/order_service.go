package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/keylock"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// OrderSettings are the lifecycle timings.
type OrderSettings struct {
	// ReservationTTL bounds how long a gateway order may wait for payment.
	ReservationTTL time.Duration
	// ManualReservationTTL bounds how long a manual order may wait for admin confirmation.
	ManualReservationTTL time.Duration
	IdempotencyTTL       time.Duration
}

type CreateOrderInput struct {
	UserID        string
	Lines         []domain.CartLine
	Address       domain.Address
	CouponCode    string
	PaymentMethod domain.PaymentMethod
	// IdempotencyKey makes retries of the same checkout return the first order.
	IdempotencyKey string
}

// OrderService owns the order state machine. It is the only writer of orders.
type OrderService struct {
	repo     repository.OrderRepository
	catalog  infra.CatalogInterface
	coupons  *CouponEngine
	ledger   *InventoryLedger
	verifier *PaymentVerifier
	gateway  infra.PaymentGatewayInterface
	notifier Notifier
	settings OrderSettings

	idempotency infra.IdempotencyStore
	locks       keylock.Map
	now         func() time.Time
}

func NewOrderService(
	r repository.OrderRepository,
	catalog infra.CatalogInterface,
	coupons *CouponEngine,
	ledger *InventoryLedger,
	verifier *PaymentVerifier,
	gateway infra.PaymentGatewayInterface,
	notifier Notifier,
	settings OrderSettings,
) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &OrderService{
		repo:     r,
		catalog:  catalog,
		coupons:  coupons,
		ledger:   ledger,
		verifier: verifier,
		gateway:  gateway,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
	}
}

func (u *OrderService) SetIdempotencyStore(store infra.IdempotencyStore) {
	u.idempotency = store
}

func (u *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if in.UserID == "" {
		return nil, domain.NewError(domain.KindUnauthorized, "user is required")
	}
	if err := in.Address.Validate(); err != nil {
		return nil, err
	}
	method, err := domain.ToPaymentMethod(string(in.PaymentMethod))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, "unknown payment method %q", in.PaymentMethod)
	}
	lines, err := domain.MergeCartLines(in.Lines)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" && u.idempotency != nil {
		key := in.UserID + ":" + in.IdempotencyKey

		claimed, existingID, err := u.idempotency.Claim(ctx, key, u.settings.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency.Claim: %w", err)
		}
		if !claimed {
			return u.replay(ctx, in.UserID, existingID)
		}

		order, err := u.createOrder(ctx, in.UserID, lines, in.Address, in.CouponCode, method)
		if err != nil {
			if ferr := u.idempotency.Forget(context.WithoutCancel(ctx), key); ferr != nil {
				logger.Warn().Err(ferr).Str("key", key).Msg("failed to forget idempotency key")
			}
			return nil, err
		}

		if err := u.idempotency.Complete(ctx, key, order.ID.String(), u.settings.IdempotencyTTL); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to store idempotency key")
		}
		return order, nil
	}

	return u.createOrder(ctx, in.UserID, lines, in.Address, in.CouponCode, method)
}

func (u *OrderService) replay(ctx context.Context, userID, existingID string) (*domain.Order, error) {
	if existingID == "" {
		return nil, domain.NewError(domain.KindConflict, "an order with this idempotency key is being created")
	}

	id, err := uuid.Parse(existingID)
	if err != nil {
		return nil, fmt.Errorf("uuid.Parse[%s]: %w", existingID, err)
	}

	logger.Info().Str("order_id", existingID).Msg("returning order for repeated idempotency key")
	return u.GetUserOrder(ctx, userID, id)
}

func (u *OrderService) createOrder(
	ctx context.Context,
	userID string,
	lines []domain.CartLine,
	address domain.Address,
	couponCode string,
	method domain.PaymentMethod,
) (*domain.Order, error) {
	priced, err := u.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	var coupon *domain.CouponResult
	if code := domain.NormalizeCouponCode(couponCode); code != "" {
		subtotal := Quote(priced, nil).Subtotal
		if coupon, err = u.coupons.Validate(ctx, code, subtotal); err != nil {
			return nil, err
		}
	}

	quote := Quote(priced, coupon)

	if method == domain.PaymentMethodGateway && !quote.Total.IsPositive() {
		return nil, domain.NewError(domain.KindInvalidInput, "order total must be positive for gateway payment")
	}

	now := u.now().UTC()
	order := &domain.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items: lo.Map(priced, func(l domain.PricedLine, _ int) domain.OrderItem {
			return l.Snapshot()
		}),
		Address:       address,
		Subtotal:      quote.Subtotal,
		Discount:      quote.Discount,
		Shipping:      quote.Shipping,
		Total:         quote.Total,
		PaymentMethod: method,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
	}
	if coupon != nil {
		order.CouponCode = coupon.Coupon.Code
	}

	ttl := u.settings.ReservationTTL
	if method == domain.PaymentMethodManual {
		ttl = u.settings.ManualReservationTTL
	}

	if _, err := u.ledger.ReserveAll(ctx, order.ID, lines, ttl); err != nil {
		return nil, err
	}

	if method == domain.PaymentMethodGateway {
		gatewayOrderID, err := u.gateway.OpenIntent(ctx, order.Total, order.ShortID())
		if err != nil {
			u.abandon(order.ID)
			return nil, fmt.Errorf("gateway.OpenIntent: %w", err)
		}
		order.GatewayOrderID = gatewayOrderID
	}

	if err := u.repo.Save(ctx, order); err != nil {
		u.abandon(order.ID)
		return nil, fmt.Errorf("repo.Save: %w", err)
	}

	logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", userID).
		Str("payment_method", string(method)).
		Str("total", order.Total.String()).
		Msg("order created")

	u.notifier.Notify(NewOrderEvent(domain.OrderEventPlaced, *order, now))

	return order, nil
}

// resolveLines prices every line from the catalog concurrently.
func (u *OrderService) resolveLines(ctx context.Context, lines []domain.CartLine) ([]domain.PricedLine, error) {
	priced := make([]domain.PricedLine, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, line := range lines {
		g.Go(func() error {
			variant, err := u.catalog.GetVariant(gctx, line.ProductID, line.VariantID)
			if err != nil {
				return fmt.Errorf("catalog.GetVariant[%s]: %w", line.VariantID, err)
			}
			if variant == nil {
				return domain.NewError(domain.KindNotFound, "variant %s of product %s not found", line.VariantID, line.ProductID)
			}
			if !variant.Active {
				return domain.NewError(domain.KindInvalidInput, "%s is not available", variant.ProductName)
			}
			if variant.Price.IsNegative() {
				return fmt.Errorf("catalog returned negative price for variant %s", line.VariantID)
			}

			priced[i] = domain.PricedLine{Variant: *variant, Quantity: line.Quantity}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return priced, nil
}

// abandon releases what a failed checkout reserved.
func (u *OrderService) abandon(orderID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := u.ledger.ReleaseOrder(ctx, orderID, domain.ReservationStatusReleased); err != nil {
		logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to release reservations of abandoned order")
	}
}

// VerifyAndConfirm checks a gateway callback and confirms the order on success.
// Repeating a successful callback returns the order unchanged.
func (u *OrderService) VerifyAndConfirm(ctx context.Context, orderID uuid.UUID, cb domain.PaymentCallback) (*domain.Order, error) {
	unlock := u.locks.Lock(orderID.String())
	defer unlock()

	order, err := u.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	alreadyPaid, err := u.verifier.Verify(ctx, *order, cb)
	if err != nil {
		logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("payment verification failed")
		return nil, err
	}
	if alreadyPaid {
		return order, nil
	}

	order.GatewayPaymentID = cb.GatewayPaymentID
	if err := u.confirm(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// confirm takes the reserved units, counts the coupon and marks order paid and confirmed.
// Every step is idempotent per order, so a retry after a failed save repeats nothing.
func (u *OrderService) confirm(ctx context.Context, order *domain.Order) error {
	if err := u.ledger.CommitOrder(ctx, order.ID, order.Items, u.settings.ReservationTTL); err != nil {
		logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit stock")
		return err
	}

	if order.CouponCode != "" && !order.CouponRedeemed {
		if _, err := u.coupons.Redeem(ctx, order.CouponCode, order.ID); err != nil {
			return err
		}
		order.CouponRedeemed = true
	}

	order.PaymentStatus = domain.PaymentStatusPaid
	order.Status = domain.OrderStatusConfirmed

	if err := u.update(ctx, order); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			u.settleLostConfirm(ctx, order.ID)
		}
		return err
	}

	logger.Info().Str("order_id", order.ID.String()).Str("payment_method", string(order.PaymentMethod)).Msg("order confirmed")
	u.notifier.Notify(NewOrderEvent(domain.OrderEventConfirmed, *order, u.now()))

	return nil
}

// settleLostConfirm runs after a confirmation lost its version race. The commit is shared
// with a winner that confirmed too, but a winner that cancelled needs the units back.
func (u *OrderService) settleLostConfirm(ctx context.Context, orderID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)

	current, err := u.load(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to reload order after conflict")
		return
	}
	if current.Status != domain.OrderStatusCancelled {
		return
	}
	if err := u.ledger.CancelOrder(ctx, orderID); err != nil {
		logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to return stock of cancelled order")
	}
}

// SetStatus applies an admin status change. Asking for the current status again is a no-op,
// except that cancelling again finishes a stock return that failed before.
func (u *OrderService) SetStatus(ctx context.Context, orderID uuid.UUID, change domain.StatusChange) (*domain.Order, error) {
	unlock := u.locks.Lock(orderID.String())
	defer unlock()

	order, err := u.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if change.Status == order.Status {
		if order.Status == domain.OrderStatusCancelled {
			if err := u.ledger.CancelOrder(ctx, order.ID); err != nil {
				return nil, err
			}
		}
		return order, nil
	}

	if err := order.CheckTransition(change); err != nil {
		return nil, err
	}

	now := u.now().UTC()

	switch change.Status {
	case domain.OrderStatusConfirmed:
		if order.PaymentMethod != domain.PaymentMethodManual && order.PaymentStatus != domain.PaymentStatusPaid {
			return nil, domain.NewError(domain.KindInvalidTransition, "order is not paid")
		}
		// admin confirmation is the payment proof of a manual order
		if err := u.confirm(ctx, order); err != nil {
			return nil, err
		}
		return order, nil

	case domain.OrderStatusShipped:
		order.CourierName = change.CourierName
		order.TrackingID = change.TrackingID
		order.ShippedAt = &now

	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now

	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	order.Status = change.Status

	// the versioned write goes first so a lost race leaves stock untouched
	if err := u.update(ctx, order); err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusCancelled {
		if err := u.ledger.CancelOrder(ctx, order.ID); err != nil {
			logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("order cancelled but stock not returned")
			return nil, err
		}
	}

	logger.Info().Str("order_id", order.ID.String()).Str("status", string(order.Status)).Msg("order status changed")
	u.notifier.Notify(NewOrderEvent(domain.OrderEventStatusChanged, *order, now))

	return order, nil
}

// ExpireOrder gives back the stock of an order whose reservations ran out and, if the order
// is still waiting for payment, cancels it with a failed payment.
func (u *OrderService) ExpireOrder(ctx context.Context, orderID uuid.UUID) error {
	unlock := u.locks.Lock(orderID.String())
	defer unlock()

	order, err := u.load(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		// reservations of a checkout that never got saved
		_, err := u.ledger.ReleaseOrder(ctx, orderID, domain.ReservationStatusExpired)
		return err
	}
	if err != nil {
		return err
	}

	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusUnpaid {
		_, err := u.ledger.ReleaseOrder(ctx, orderID, domain.ReservationStatusExpired)
		return err
	}

	now := u.now().UTC()
	order.Status = domain.OrderStatusCancelled
	order.PaymentStatus = domain.PaymentStatusFailed
	order.CancelledAt = &now

	if err := u.update(ctx, order); err != nil {
		return err
	}

	// a failed release is picked up by the next sweep, which only releases
	if _, err := u.ledger.ReleaseOrder(ctx, orderID, domain.ReservationStatusExpired); err != nil {
		return err
	}

	logger.Info().Str("order_id", order.ID.String()).Msg("order expired")
	u.notifier.Notify(NewOrderEvent(domain.OrderEventStatusChanged, *order, now))

	return nil
}

func (u *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return u.load(ctx, id)
}

// GetUserOrder hides orders of other users behind OrderNotFound.
func (u *OrderService) GetUserOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.NewError(domain.KindOrderNotFound, "order %s not found", id)
	}
	return order, nil
}

func (u *OrderService) ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return u.ListOrders(ctx, domain.OrderFilter{UserID: userID, Limit: 100})
}

func (u *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, "%s", err.Error())
	}

	orders, err := u.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("repo.Search: %w", err)
	}
	return orders, nil
}

func (u *OrderService) load(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := u.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindOrderNotFound, "order %s not found", id)
		}
		return nil, fmt.Errorf("repo.FindByID: %w", err)
	}
	return order, nil
}

func (u *OrderService) update(ctx context.Context, order *domain.Order) error {
	if err := u.repo.Update(ctx, order); err != nil {
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			return domain.NewError(domain.KindConflict, "order %s was changed concurrently, retry", order.ID)
		}
		return fmt.Errorf("repo.Update: %w", err)
	}
	return nil
}
