package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/services"
)

type Handler struct {
	orders    *services.OrderService
	coupons   *services.CouponEngine
	ledger    *services.InventoryLedger
	dashboard *services.DashboardAggregator
	payments  PaymentConfig
}

func NewHandler(
	orders *services.OrderService,
	coupons *services.CouponEngine,
	ledger *services.InventoryLedger,
	dashboard *services.DashboardAggregator,
	payments PaymentConfig,
) *Handler {
	return &Handler{
		orders:    orders,
		coupons:   coupons,
		ledger:    ledger,
		dashboard: dashboard,
		payments:  payments,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/payments/config", h.PaymentConfig)

	authed := api.Group("", Authenticate(jwtSecret))
	authed.POST("/coupons/validate", h.ValidateCoupon)
	authed.POST("/orders/create", h.CreateOrder)
	authed.POST("/orders/:id/verify-payment", h.VerifyPayment)
	authed.GET("/orders/my-orders", h.MyOrders)
	authed.GET("/orders/:id", h.GetOrder)

	admin := authed.Group("/admin", RequireAdmin())
	admin.GET("/orders", h.ListOrders)
	admin.PUT("/orders/:id/status", h.UpdateStatus)
	admin.GET("/inventory", h.ListInventory)
	admin.PUT("/inventory/:productId/:variantId", h.SetStock)
	admin.GET("/dashboard/stats", h.DashboardStats)
	admin.GET("/coupons", h.ListCoupons)
	admin.POST("/coupons", h.CreateCoupon)
	admin.DELETE("/coupons/:id", h.DeleteCoupon)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "order-service",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) PaymentConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.payments)
}

func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.coupons.Validate(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ValidateCouponResponse{
		Valid:    true,
		Discount: result.Discount,
		Coupon:   result.Coupon,
	})
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		UserID:         c.GetString(ctxUserID),
		Lines:          req.CartLines(),
		Address:        req.Address,
		CouponCode:     req.CouponCode,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()

	// the order must belong to the caller before anything is verified
	if _, err := h.orders.GetUserOrder(ctx, c.GetString(ctxUserID), id); err != nil {
		writeError(c, err)
		return
	}

	order, err := h.orders.VerifyAndConfirm(ctx, id, req.Callback())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) MyOrders(c *gin.Context) {
	orders, err := h.orders.ListUserOrders(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	var (
		order *domain.Order
		err   error
	)
	if c.GetString(ctxRole) == RoleAdmin {
		order, err = h.orders.GetOrder(ctx, id)
	} else {
		order, err = h.orders.GetUserOrder(ctx, c.GetString(ctxUserID), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders takes an optional comma separated status filter.
func (h *Handler) ListOrders(c *gin.Context) {
	filter := domain.OrderFilter{Limit: 500}

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, err := domain.ToOrderStatus(strings.TrimSpace(s))
			if err != nil {
				badRequest(c, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.SetStatus(c.Request.Context(), id, domain.StatusChange{
		Status:      domain.OrderStatus(req.Status),
		CourierName: req.CourierName,
		TrackingID:  req.TrackingID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListInventory(c *gin.Context) {
	items, err := h.ledger.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]InventoryItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toInventoryItemResponse(item))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SetStock(c *gin.Context) {
	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.ledger.SetStock(c.Request.Context(), c.Param("productId"), c.Param("variantId"), *req.Stock)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toInventoryItemResponse(*item))
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, coupons)
}

func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	coupon, err := h.coupons.Create(c.Request.Context(), req.Coupon())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, coupon)
}

func (h *Handler) DeleteCoupon(c *gin.Context) {
	if err := h.coupons.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: string(domain.KindOrderNotFound), Message: "order not found"})
		return uuid.Nil, false
	}
	return id, true
}
