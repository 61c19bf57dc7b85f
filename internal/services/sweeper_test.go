package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addVariant(t, "v1", "250", 10)

	stale := f.checkout(t, domain.PaymentMethodGateway, "", line("v1", 2))
	paid := f.checkout(t, domain.PaymentMethodGateway, "", line("v1", 3))
	_, err := f.service.VerifyAndConfirm(ctx, paid.ID, f.pay(t, paid))
	require.NoError(t, err)
	manual := f.checkout(t, domain.PaymentMethodManual, "", line("v1", 1))

	sweeper := NewSweeper(f.ledger, f.service, time.Minute, 10)

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing has expired yet")

	// jump past the gateway ttl but not the manual one
	f.ledger.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired, err := f.service.GetOrder(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, expired.Status)
	assert.Equal(t, domain.PaymentStatusFailed, expired.PaymentStatus)

	stillPending, err := f.service.GetOrder(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stillPending.Status)

	item := f.stockOf(t, "v1")
	assert.Equal(t, 7, item.Stock)
	assert.Equal(t, 1, item.Reserved)

	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.ledger, f.service, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
