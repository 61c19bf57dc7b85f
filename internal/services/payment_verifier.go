package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
)

// Sign returns the hex HMAC-SHA256 the gateway sends for a completed payment.
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentVerifier decides whether a gateway callback proves payment of an order.
// It never changes the order.
type PaymentVerifier struct {
	secret  string
	gateway infra.PaymentGatewayInterface
}

func NewPaymentVerifier(secret string, gateway infra.PaymentGatewayInterface) *PaymentVerifier {
	return &PaymentVerifier{
		secret:  secret,
		gateway: gateway,
	}
}

// Verify returns alreadyPaid=true when cb repeats the payment that already paid order.
func (v *PaymentVerifier) Verify(ctx context.Context, order domain.Order, cb domain.PaymentCallback) (alreadyPaid bool, err error) {
	expected := Sign(v.secret, cb.GatewayOrderID, cb.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(cb.Signature))) {
		return false, domain.NewError(domain.KindSignatureMismatch, "payment signature is invalid")
	}

	if order.GatewayOrderID == "" || cb.GatewayOrderID != order.GatewayOrderID {
		return false, domain.NewError(domain.KindSignatureMismatch, "payment belongs to another order")
	}

	if order.PaymentStatus == domain.PaymentStatusPaid && order.GatewayPaymentID == cb.GatewayPaymentID {
		return true, nil
	}

	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusUnpaid {
		return false, domain.NewError(domain.KindOrderNotPending, "order is %s and payment is %s", order.Status, order.PaymentStatus)
	}

	payment, err := v.gateway.FetchPayment(ctx, cb.GatewayPaymentID)
	if err != nil {
		return false, fmt.Errorf("gateway.FetchPayment: %w", err)
	}

	if payment.OrderID != order.GatewayOrderID {
		return false, domain.NewError(domain.KindSignatureMismatch, "payment belongs to another order")
	}
	if payment.Status == "failed" {
		return false, domain.NewError(domain.KindSignatureMismatch, "gateway reports the payment as failed")
	}

	if want := v.gateway.MinorUnits(order.Total); payment.Amount != want {
		return false, domain.NewError(domain.KindAmountMismatch, "paid %d, expected %d", payment.Amount, want)
	}

	return false, nil
}
