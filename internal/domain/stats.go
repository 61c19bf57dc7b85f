package domain

import (
	"github.com/shopspring/decimal"
)

// OrderStats are aggregates over all orders. Revenue only counts paid orders.
type OrderStats struct {
	TotalOrders  int64
	TotalRevenue decimal.Decimal
	StatusCounts map[OrderStatus]int64
}

// DashboardStats carries the per-status counts both as a map and as flat fields.
type DashboardStats struct {
	TotalOrders     int64                 `json:"total_orders"`
	TotalRevenue    decimal.Decimal       `json:"total_revenue"`
	PendingOrders   int64                 `json:"pending_orders"`
	ConfirmedOrders int64                 `json:"confirmed_orders"`
	ShippedOrders   int64                 `json:"shipped_orders"`
	DeliveredOrders int64                 `json:"delivered_orders"`
	CancelledOrders int64                 `json:"cancelled_orders"`
	LowStockCount   int                   `json:"low_stock_count"`
	StatusCounts    map[OrderStatus]int64 `json:"status_counts"`
	RecentOrders    []Order               `json:"recent_orders"`
}
