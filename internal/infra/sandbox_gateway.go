package infra

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// SandboxGateway is an in-process payment gateway for local runs and tests.
// Pay simulates the customer completing checkout for a gateway order.
type SandboxGateway struct {
	unit currency.Unit

	mu       sync.Mutex
	intents  map[string]int64
	payments map[string]Payment
}

func NewSandboxGateway(currencyCode string) (*SandboxGateway, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("currency.ParseISO[%s]: %w", currencyCode, err)
	}

	return &SandboxGateway{
		unit:     unit,
		intents:  make(map[string]int64),
		payments: make(map[string]Payment),
	}, nil
}

func (g *SandboxGateway) MinorUnits(amount decimal.Decimal) int64 {
	return toMinorUnits(amount, g.unit)
}

func (g *SandboxGateway) OpenIntent(_ context.Context, amount decimal.Decimal, _ string) (string, error) {
	id := "order_" + compactID()

	g.mu.Lock()
	g.intents[id] = g.MinorUnits(amount)
	g.mu.Unlock()

	return id, nil
}

// Pay captures amount (minor units) against gatewayOrderID and returns the payment id.
// A negative amount captures exactly what the intent asked for.
func (g *SandboxGateway) Pay(gatewayOrderID string, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	expected, ok := g.intents[gatewayOrderID]
	if !ok {
		return "", fmt.Errorf("unknown gateway order %s", gatewayOrderID)
	}
	if amount < 0 {
		amount = expected
	}

	id := "pay_" + compactID()
	g.payments[id] = Payment{
		ID:       id,
		OrderID:  gatewayOrderID,
		Amount:   amount,
		Currency: g.unit.String(),
		Status:   "captured",
	}

	return id, nil
}

func (g *SandboxGateway) FetchPayment(_ context.Context, paymentID string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	return &p, nil
}

func compactID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
