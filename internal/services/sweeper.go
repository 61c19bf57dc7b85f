package services

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sweeper gives back stock held by reservations that outlived their ttl.
type Sweeper struct {
	ledger   *InventoryLedger
	orders   *OrderService
	interval time.Duration
	batch    int
}

func NewSweeper(ledger *InventoryLedger, orders *OrderService, interval time.Duration, batch int) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		ledger:   ledger,
		orders:   orders,
		interval: interval,
		batch:    batch,
	}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", s.interval).Msg("reservation sweeper started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("reservation sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("reservation sweep failed")
				continue
			}
			if n > 0 {
				logger.Info().Int("orders", n).Msg("expired reservations swept")
			}
		}
	}
}

// SweepOnce expires one batch and returns the number of orders it touched.
// Expiry goes through the order service so it cannot interleave with a payment confirmation.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.ledger.ExpiredReservations(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	seen := make(map[uuid.UUID]struct{}, len(expired))
	for _, r := range expired {
		if _, ok := seen[r.OrderID]; ok {
			continue
		}
		seen[r.OrderID] = struct{}{}

		if err := s.orders.ExpireOrder(ctx, r.OrderID); err != nil {
			logger.Error().Err(err).Str("order_id", r.OrderID.String()).Msg("failed to expire order")
			continue
		}
	}

	return len(seen), nil
}
