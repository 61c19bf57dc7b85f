// Package memory keeps repositories in process memory. It backs local runs and tests and
// honors the same atomicity contracts as the MySQL repositories.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

type orderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
}

func NewOrderRepository() repository.OrderRepository {
	return &orderRepo{orders: make(map[uuid.UUID]domain.Order)}
}

func (r *orderRepo) Save(_ context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		return errors.New("order id is empty")
	}
	if len(order.Items) == 0 {
		return errors.New("no items in order")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order[%s]: %w", order.ID, repository.ErrDuplicate)
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	order.Version = 1

	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *orderRepo) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order[%s]: %w", order.ID, repository.ErrNotFound)
	}
	if stored.Version != order.Version {
		return fmt.Errorf("order[%s] version %d: %w", order.ID, order.Version, repository.ErrConcurrentUpdate)
	}

	order.Version++
	order.UpdatedAt = time.Now().UTC()

	updated := cloneOrder(*order)
	// line items are frozen at creation
	updated.Items = stored.Items
	r.orders[order.ID] = updated
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order[%s]: %w", id, repository.ErrNotFound)
	}

	o = cloneOrder(o)
	return &o, nil
}

func (r *orderRepo) Search(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	r.mu.RLock()
	result := lo.FilterMap(lo.Values(r.orders), func(o domain.Order, _ int) (domain.Order, bool) {
		if filter.UserID != "" && o.UserID != filter.UserID {
			return o, false
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, o.Status) {
			return o, false
		}
		return cloneOrder(o), true
	})
	r.mu.RUnlock()

	slices.SortFunc(result, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (r *orderRepo) Stats(_ context.Context) (domain.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.OrderStats{
		TotalOrders:  int64(len(r.orders)),
		TotalRevenue: decimal.Zero,
		StatusCounts: make(map[domain.OrderStatus]int64),
	}

	for _, o := range r.orders {
		stats.StatusCounts[o.Status]++
		if o.PaymentStatus == domain.PaymentStatusPaid {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		}
	}

	return stats, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	o.ShippedAt = cloneTime(o.ShippedAt)
	o.DeliveredAt = cloneTime(o.DeliveredAt)
	o.CancelledAt = cloneTime(o.CancelledAt)
	return o
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return lo.ToPtr(*t)
}
