package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

const (
	dashboardCacheKey = "dashboard:stats"
	recentOrdersLimit = 5
)

// DashboardAggregator computes the admin summary. It only reads.
type DashboardAggregator struct {
	orders repository.OrderRepository
	ledger *InventoryLedger

	cache    infra.CacheInterface
	cacheTTL time.Duration
}

func NewDashboardAggregator(orders repository.OrderRepository, ledger *InventoryLedger) *DashboardAggregator {
	return &DashboardAggregator{
		orders: orders,
		ledger: ledger,
	}
}

// SetCache keeps computed stats in cache for ttl. Stats may then lag writes by up to ttl.
func (d *DashboardAggregator) SetCache(cache infra.CacheInterface, ttl time.Duration) {
	d.cache = cache
	d.cacheTTL = ttl
}

func (d *DashboardAggregator) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	if d.cache != nil && d.cacheTTL > 0 {
		var cached domain.DashboardStats
		ok, err := d.cache.GetJSON(ctx, dashboardCacheKey, &cached)
		if err != nil {
			logger.Warn().Err(err).Msg("dashboard cache read failed")
		}
		if ok {
			fillDashboard(&cached)
			return &cached, nil
		}
	}

	var (
		stats    domain.OrderStats
		lowStock int
		recent   []domain.Order
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if stats, err = d.orders.Stats(gctx); err != nil {
			return fmt.Errorf("orders.Stats: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		lowStock, err = d.ledger.LowStockCount(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		if recent, err = d.orders.Search(gctx, domain.OrderFilter{Limit: recentOrdersLimit}); err != nil {
			return fmt.Errorf("orders.Search: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.DashboardStats{
		TotalOrders:   stats.TotalOrders,
		TotalRevenue:  stats.TotalRevenue,
		LowStockCount: lowStock,
		StatusCounts:  stats.StatusCounts,
		RecentOrders:  recent,
	}
	fillDashboard(result)

	if d.cache != nil && d.cacheTTL > 0 {
		if err := d.cache.SetJSON(ctx, dashboardCacheKey, result, d.cacheTTL); err != nil {
			logger.Warn().Err(err).Msg("dashboard cache write failed")
		}
	}

	return result, nil
}

// fillDashboard gives every status a count, mirrors the counts into the flat fields
// and turns a missing recent list into an empty one.
func fillDashboard(stats *domain.DashboardStats) {
	counts := make(map[domain.OrderStatus]int64, len(domain.OrderStatuses()))
	for _, status := range domain.OrderStatuses() {
		counts[status] = stats.StatusCounts[status]
	}
	stats.StatusCounts = counts

	stats.PendingOrders = counts[domain.OrderStatusPending]
	stats.ConfirmedOrders = counts[domain.OrderStatusConfirmed]
	stats.ShippedOrders = counts[domain.OrderStatusShipped]
	stats.DeliveredOrders = counts[domain.OrderStatusDelivered]
	stats.CancelledOrders = counts[domain.OrderStatusCancelled]

	if stats.RecentOrders == nil {
		stats.RecentOrders = []domain.Order{}
	}
}
