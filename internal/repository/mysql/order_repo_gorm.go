package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		return errors.New("order id is empty")
	}
	if len(order.Items) == 0 {
		return errors.New("no items in order")
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	order.Version = 1

	row := mapDomainOrderToRow(*order)

	// the order and its items are inserted in one transaction by gorm's association save
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("db.Create: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("db.Create: %w", err)
	}

	return nil
}

func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).Model(&orderRow{}).
		Where("id = ? AND version = ?", order.ID.String(), order.Version).
		Updates(map[string]any{
			"coupon_redeemed":    order.CouponRedeemed,
			"payment_status":     string(order.PaymentStatus),
			"order_status":       string(order.Status),
			"gateway_order_id":   order.GatewayOrderID,
			"gateway_payment_id": order.GatewayPaymentID,
			"courier_name":       order.CourierName,
			"tracking_id":        order.TrackingID,
			"shipped_at":         order.ShippedAt,
			"delivered_at":       order.DeliveredAt,
			"cancelled_at":       order.CancelledAt,
			"version":            order.Version + 1,
			"updated_at":         now,
		})
	if res.Error != nil {
		return fmt.Errorf("db.Updates: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", order.ID.String()).Count(&count).Error; err != nil {
			return fmt.Errorf("db.Count: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("order[%s]: %w", order.ID, repository.ErrNotFound)
		}
		return fmt.Errorf("order[%s] version %d: %w", order.ID, order.Version, repository.ErrConcurrentUpdate)
	}

	order.Version++
	order.UpdatedAt = now
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var row orderRow

	if err := r.withItems(ctx).First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order[%s]: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db.First: %w", err)
	}

	o, err := mapOrderRowToDomain(row)
	if err != nil {
		return nil, fmt.Errorf("mapOrderRowToDomain: %w", err)
	}

	return &o, nil
}

func (r *orderRepo) Search(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	q := r.withItems(ctx).Order("created_at DESC").Order("id DESC")

	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("order_status IN ?", lo.Map(filter.Statuses, func(s domain.OrderStatus, _ int) string {
			return string(s)
		}))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []orderRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("db.Find: %w", err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := mapOrderRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapOrderRowToDomain: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, nil
}

func (r *orderRepo) Stats(ctx context.Context) (domain.OrderStats, error) {
	stats := domain.OrderStats{StatusCounts: make(map[domain.OrderStatus]int64)}

	db := r.db.WithContext(ctx)

	if err := db.Model(&orderRow{}).Count(&stats.TotalOrders).Error; err != nil {
		return stats, fmt.Errorf("db.Count: %w", err)
	}

	if err := db.Model(&orderRow{}).
		Select("COALESCE(SUM(total), 0)").
		Where("payment_status = ?", string(domain.PaymentStatusPaid)).
		Row().Scan(&stats.TotalRevenue); err != nil {
		return stats, fmt.Errorf("row.Scan revenue: %w", err)
	}
	stats.TotalRevenue = normalize(stats.TotalRevenue)

	var counts []struct {
		OrderStatus string
		Count       int64
	}
	if err := db.Model(&orderRow{}).
		Select("order_status, COUNT(*) AS count").
		Group("order_status").
		Scan(&counts).Error; err != nil {
		return stats, fmt.Errorf("db.Scan status counts: %w", err)
	}

	for _, c := range counts {
		stats.StatusCounts[domain.OrderStatus(c.OrderStatus)] = c.Count
	}

	return stats, nil
}

func (r *orderRepo) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

func mapDomainOrderToRow(o domain.Order) orderRow {
	id := o.ID.String()

	return orderRow{
		ID:     id,
		UserID: o.UserID,
		Items: lo.Map(o.Items, func(item domain.OrderItem, _ int) orderItemRow {
			return orderItemRow{
				OrderID:     id,
				ProductID:   item.ProductID,
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				VariantName: item.VariantName,
				Weight:      item.Weight,
				Price:       item.Price,
				Quantity:    item.Quantity,
			}
		}),
		AddressName:      o.Address.Name,
		AddressPhone:     o.Address.Phone,
		AddressEmail:     o.Address.Email,
		AddressLine:      o.Address.Address,
		AddressCity:      o.Address.City,
		AddressState:     o.Address.State,
		AddressPincode:   o.Address.Pincode,
		Subtotal:         o.Subtotal,
		Discount:         o.Discount,
		Shipping:         o.Shipping,
		Total:            o.Total,
		CouponCode:       o.CouponCode,
		CouponRedeemed:   o.CouponRedeemed,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		OrderStatus:      string(o.Status),
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		CourierName:      o.CourierName,
		TrackingID:       o.TrackingID,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
	}
}

func mapOrderRowToDomain(row orderRow) (domain.Order, error) {
	var o domain.Order

	id, err := uuid.Parse(row.ID)
	if err != nil {
		return o, fmt.Errorf("uuid.Parse[%s]: %w", row.ID, err)
	}

	status, err := domain.ToOrderStatus(row.OrderStatus)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", row.OrderStatus, err)
	}

	paymentStatus, err := domain.ToPaymentStatus(row.PaymentStatus)
	if err != nil {
		return o, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", row.PaymentStatus, err)
	}

	paymentMethod, err := domain.ToPaymentMethod(row.PaymentMethod)
	if err != nil {
		return o, fmt.Errorf("domain.ToPaymentMethod[%s]: %w", row.PaymentMethod, err)
	}

	return domain.Order{
		ID:     id,
		UserID: row.UserID,
		Items: lo.Map(row.Items, func(item orderItemRow, _ int) domain.OrderItem {
			return domain.OrderItem{
				ProductID:   item.ProductID,
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				VariantName: item.VariantName,
				Weight:      item.Weight,
				Price:       item.Price,
				Quantity:    item.Quantity,
			}
		}),
		Address: domain.Address{
			Name:    row.AddressName,
			Phone:   row.AddressPhone,
			Email:   row.AddressEmail,
			Address: row.AddressLine,
			City:    row.AddressCity,
			State:   row.AddressState,
			Pincode: row.AddressPincode,
		},
		Subtotal:         normalize(row.Subtotal),
		Discount:         normalize(row.Discount),
		Shipping:         normalize(row.Shipping),
		Total:            normalize(row.Total),
		CouponCode:       row.CouponCode,
		CouponRedeemed:   row.CouponRedeemed,
		PaymentMethod:    paymentMethod,
		PaymentStatus:    paymentStatus,
		Status:           status,
		GatewayOrderID:   row.GatewayOrderID,
		GatewayPaymentID: row.GatewayPaymentID,
		CourierName:      row.CourierName,
		TrackingID:       row.TrackingID,
		Version:          row.Version,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		ShippedAt:        row.ShippedAt,
		DeliveredAt:      row.DeliveredAt,
		CancelledAt:      row.CancelledAt,
	}, nil
}

// normalize drops the trailing zeros a DECIMAL column adds, so 250 reads back as 250 and not 250.00.
func normalize(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}
