package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/mocks"
)

func TestDashboardAggregator_Stats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addVariant(t, "v1", "250", 50)
	f.addVariant(t, "v2", "100", 4)

	paid := f.checkout(t, domain.PaymentMethodGateway, "", line("v1", 2))
	_, err := f.service.VerifyAndConfirm(ctx, paid.ID, f.pay(t, paid))
	require.NoError(t, err)
	f.checkout(t, domain.PaymentMethodGateway, "", line("v1", 1))

	stats, err := NewDashboardAggregator(f.orders, f.ledger).Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, "500", stats.TotalRevenue.String(), "only paid orders count")
	assert.Equal(t, 1, stats.LowStockCount)
	assert.Equal(t, int64(1), stats.StatusCounts[domain.OrderStatusPending])
	assert.Equal(t, int64(1), stats.StatusCounts[domain.OrderStatusConfirmed])
	assert.Contains(t, stats.StatusCounts, domain.OrderStatusShipped)
	assert.Equal(t, int64(0), stats.StatusCounts[domain.OrderStatusShipped])
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.ConfirmedOrders)
	assert.Equal(t, int64(0), stats.ShippedOrders)
	assert.Equal(t, int64(0), stats.DeliveredOrders)
	assert.Len(t, stats.RecentOrders, 2)
}

func TestDashboardAggregator_Cache(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(*mocks.MockOrderRepository, *mocks.MockCache)
		wantErr    bool
		total      int64
		shipped    int64
	}{
		{
			name: "cache hit skips storage",
			setupMocks: func(repo *mocks.MockOrderRepository, cache *mocks.MockCache) {
				cache.On("GetJSON", mock.Anything, "dashboard:stats", mock.Anything).Return(true, nil).Run(func(args mock.Arguments) {
					cached := args.Get(2).(*domain.DashboardStats)
					cached.TotalOrders = 42
					cached.StatusCounts = map[domain.OrderStatus]int64{domain.OrderStatusShipped: 7}
				})
			},
			total:   42,
			shipped: 7,
		},
		{
			name: "cache miss computes and stores",
			setupMocks: func(repo *mocks.MockOrderRepository, cache *mocks.MockCache) {
				cache.On("GetJSON", mock.Anything, "dashboard:stats", mock.Anything).Return(false, nil)
				repo.On("Stats", mock.Anything).Return(domain.OrderStats{TotalOrders: 3, TotalRevenue: decimal.NewFromInt(900)}, nil)
				repo.On("Search", mock.Anything, domain.OrderFilter{Limit: 5}).Return([]domain.Order{}, nil)
				cache.On("SetJSON", mock.Anything, "dashboard:stats", mock.Anything, 30*time.Second).Return(nil)
			},
			total: 3,
		},
		{
			name: "broken cache is bypassed",
			setupMocks: func(repo *mocks.MockOrderRepository, cache *mocks.MockCache) {
				cache.On("GetJSON", mock.Anything, "dashboard:stats", mock.Anything).Return(false, errors.New("redis down"))
				repo.On("Stats", mock.Anything).Return(domain.OrderStats{TotalOrders: 1, TotalRevenue: decimal.Zero}, nil)
				repo.On("Search", mock.Anything, domain.OrderFilter{Limit: 5}).Return(nil, nil)
				cache.On("SetJSON", mock.Anything, "dashboard:stats", mock.Anything, 30*time.Second).Return(errors.New("redis down"))
			},
			total: 1,
		},
		{
			name: "storage failure",
			setupMocks: func(repo *mocks.MockOrderRepository, cache *mocks.MockCache) {
				cache.On("GetJSON", mock.Anything, "dashboard:stats", mock.Anything).Return(false, nil)
				repo.On("Stats", mock.Anything).Return(domain.OrderStats{}, errors.New("database error"))
				repo.On("Search", mock.Anything, mock.Anything).Return([]domain.Order{}, nil).Maybe()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			repo := new(mocks.MockOrderRepository)
			cache := new(mocks.MockCache)
			tt.setupMocks(repo, cache)

			d := NewDashboardAggregator(repo, f.ledger)
			d.SetCache(cache, 30*time.Second)

			stats, err := d.Stats(ctx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.total, stats.TotalOrders)
			assert.NotNil(t, stats.RecentOrders)
			assert.Equal(t, tt.shipped, stats.ShippedOrders)
			assert.Contains(t, stats.StatusCounts, domain.OrderStatusPending)

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}
