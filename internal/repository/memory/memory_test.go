package memory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository/memory"
)

func TestStockRepository_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewStockRepository()

	require.NoError(t, repo.SetStock(ctx, domain.StockItem{ProductID: "p1", VariantID: "v1", Stock: 5}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted []domain.Reservation
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := domain.NewReservation(uuid.New(), "p1", "v1", 1, time.Now(), time.Minute)
			if err := repo.Reserve(ctx, res); err != nil {
				assert.ErrorIs(t, err, repository.ErrInsufficientStock)
				return
			}
			mu.Lock()
			granted = append(granted, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, granted, 5)

	// commit and release concurrently; every row ends consistent
	for i, res := range granted {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, err := repo.Commit(ctx, res.ID)
				assert.NoError(t, err)
			} else {
				_, err := repo.Release(ctx, res.ID, domain.ReservationStatusReleased)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	item, err := repo.GetStock(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Stock)
	assert.Equal(t, 0, item.Reserved)
}

func TestStockRepository_TransitionsAreOneShot(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewStockRepository()
	require.NoError(t, repo.SetStock(ctx, domain.StockItem{ProductID: "p1", VariantID: "v1", Stock: 4}))

	res := domain.NewReservation(uuid.New(), "p1", "v1", 2, time.Now(), time.Minute)
	require.NoError(t, repo.Reserve(ctx, res))

	ok, err := repo.Release(ctx, res.ID, domain.ReservationStatusReleased)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Release(ctx, res.ID, domain.ReservationStatusReleased)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Commit(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Return(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Commit(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	item, err := repo.GetStock(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Available())
}

func TestStockRepository_SetStockBelowReserved(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewStockRepository()
	require.NoError(t, repo.SetStock(ctx, domain.StockItem{ProductID: "p1", VariantID: "v1", ProductName: "Basil", Stock: 4}))
	require.NoError(t, repo.Reserve(ctx, domain.NewReservation(uuid.New(), "p1", "v1", 3, time.Now(), time.Minute)))

	err := repo.SetStock(ctx, domain.StockItem{VariantID: "v1", Stock: 2})
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	require.NoError(t, repo.SetStock(ctx, domain.StockItem{VariantID: "v1", Stock: 8}))

	item, err := repo.GetStock(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Basil", item.ProductName)
	assert.Equal(t, 8, item.Stock)
	assert.Equal(t, 3, item.Reserved)

	low, err := repo.CountLowStock(ctx, domain.LowStockThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, low)
}

func TestStockRepository_FindExpired(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewStockRepository()
	require.NoError(t, repo.SetStock(ctx, domain.StockItem{ProductID: "p1", VariantID: "v1", Stock: 10}))

	now := time.Now()
	stale := domain.NewReservation(uuid.New(), "p1", "v1", 1, now.Add(-time.Hour), time.Minute)
	fresh := domain.NewReservation(uuid.New(), "p1", "v1", 1, now, time.Hour)
	require.NoError(t, repo.Reserve(ctx, stale))
	require.NoError(t, repo.Reserve(ctx, fresh))

	expired, err := repo.FindExpired(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}

func TestOrderRepository_UpdateDetectsStaleVersion(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewOrderRepository()

	order := domain.Order{
		ID:            uuid.New(),
		UserID:        "u1",
		Items:         []domain.OrderItem{{ProductID: "p1", VariantID: "v1", Price: decimal.NewFromInt(100), Quantity: 1}},
		Total:         decimal.NewFromInt(150),
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}
	require.NoError(t, repo.Save(ctx, &order))
	assert.ErrorIs(t, repo.Save(ctx, &order), repository.ErrDuplicate)

	stale := order
	order.Status = domain.OrderStatusConfirmed
	order.PaymentStatus = domain.PaymentStatusPaid
	require.NoError(t, repo.Update(ctx, &order))

	stale.Status = domain.OrderStatusCancelled
	assert.ErrorIs(t, repo.Update(ctx, &stale), repository.ErrConcurrentUpdate)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.True(t, decimal.NewFromInt(150).Equal(stats.TotalRevenue))
	assert.Equal(t, int64(1), stats.StatusCounts[domain.OrderStatusConfirmed])
}

func TestCouponRepository_Redeem(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewCouponRepository()

	coupon := domain.Coupon{Code: "ONCE", UsageLimit: lo.ToPtr(1)}
	require.NoError(t, repo.Create(ctx, &coupon))
	assert.NotEmpty(t, coupon.ID)

	orderID := uuid.New()

	ok, err := repo.Redeem(ctx, "ONCE", orderID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Redeem(ctx, "ONCE", orderID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Redeem(ctx, "ONCE", uuid.New())
	assert.ErrorIs(t, err, repository.ErrCouponExhausted)

	_, err = repo.Redeem(ctx, "MISSING", uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
