package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository/memory"
	"github.com/iamhemantkumawat/ifsseeds/internal/services"
)

const (
	testJWTSecret     = "jwt-secret"
	testGatewaySecret = "gateway-secret"
)

type testServer struct {
	router  *gin.Engine
	gateway *infra.SandboxGateway
	ledger  *services.InventoryLedger
	coupons *services.CouponEngine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway, err := infra.NewSandboxGateway("INR")
	require.NoError(t, err)

	catalog := infra.NewStaticCatalog(domain.Variant{
		ProductID:   "p1",
		VariantID:   "v1",
		ProductName: "Chilli Seeds",
		VariantName: "50g",
		Price:       decimal.NewFromInt(250),
		Active:      true,
	})

	orders := memory.NewOrderRepository()
	coupons := services.NewCouponEngine(memory.NewCouponRepository())
	ledger := services.NewInventoryLedger(memory.NewStockRepository(), catalog)
	verifier := services.NewPaymentVerifier(testGatewaySecret, gateway)
	orderService := services.NewOrderService(orders, catalog, coupons, ledger, verifier, gateway, nil, services.OrderSettings{
		ReservationTTL:       15 * time.Minute,
		ManualReservationTTL: 48 * time.Hour,
		IdempotencyTTL:       time.Hour,
	})

	_, err = ledger.SetStock(context.Background(), "p1", "v1", 12)
	require.NoError(t, err)

	maxDiscount := decimal.NewFromInt(100)
	_, err = coupons.Create(context.Background(), domain.Coupon{
		Code:          "WELCOME20",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(20),
		MaxDiscount:   &maxDiscount,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		IsActive:      true,
	})
	require.NoError(t, err)

	h := NewHandler(orderService, coupons, ledger, services.NewDashboardAggregator(orders, ledger), PaymentConfig{KeyID: "rzp_test", Currency: "INR"})

	r := gin.New()
	h.RegisterRoutes(r, testJWTSecret)

	return &testServer{router: r, gateway: gateway, ledger: ledger, coupons: coupons}
}

func (s *testServer) do(t *testing.T, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := SignToken(testJWTSecret, userID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func tamper(signature string) string {
	b := []byte(signature)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	return string(b)
}

func orderBody(quantity int, coupon string) gin.H {
	return gin.H{
		"items": []gin.H{{"product_id": "p1", "variant_id": "v1", "quantity": quantity}},
		"address": gin.H{
			"name": "Ravi Kumar", "phone": "9000000000", "address": "4 Lake View",
			"city": "Pune", "state": "Maharashtra", "pincode": "411001",
		},
		"coupon_code": coupon,
	}
}

func TestHandler_CheckoutAndPay(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/orders/create", "u1", "", orderBody(4, "welcome20"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	order := decode[domain.Order](t, w)
	assert.Equal(t, "900", order.Total.String())
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	paymentID, err := s.gateway.Pay(order.GatewayOrderID, -1)
	require.NoError(t, err)

	verifyPath := "/api/orders/" + order.ID.String() + "/verify-payment"

	w = s.do(t, http.MethodPost, verifyPath, "u1", "", gin.H{
		"razorpay_order_id":   order.GatewayOrderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  tamper(services.Sign(testGatewaySecret, order.GatewayOrderID, paymentID)),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SignatureMismatch", decode[ErrorResponse](t, w).Error)

	// someone else cannot confirm the order
	w = s.do(t, http.MethodPost, verifyPath, "u2", "", gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, verifyPath, "u1", "", gin.H{
		"gatewayOrderId":   order.GatewayOrderID,
		"gatewayPaymentId": paymentID,
		"signature":        services.Sign(testGatewaySecret, order.GatewayOrderID, paymentID),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[domain.Order](t, w)
	assert.Equal(t, domain.OrderStatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.PaymentStatusPaid, confirmed.PaymentStatus)

	w = s.do(t, http.MethodGet, "/api/orders/my-orders", "u1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Order](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/admin/inventory", "admin", RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inventory := decode[[]InventoryItemResponse](t, w)
	require.Len(t, inventory, 1)
	assert.Equal(t, 8, inventory[0].Stock)
	assert.True(t, inventory[0].LowStock)
}

func TestHandler_AdminStatusFlow(t *testing.T) {
	s := newTestServer(t)

	body := orderBody(2, "")
	body["payment_method"] = "manual"
	w := s.do(t, http.MethodPost, "/api/orders/create", "u1", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[domain.Order](t, w)

	statusPath := "/api/admin/orders/" + order.ID.String() + "/status"

	w = s.do(t, http.MethodPut, statusPath, "u1", "", gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, statusPath, "admin", RoleAdmin, gin.H{"status": "shipped", "courier_name": "DTDC", "tracking_id": "T1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", decode[ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPut, statusPath, "admin", RoleAdmin, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, statusPath, "admin", RoleAdmin, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/orders?status=cancelled", "admin", RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Order](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/admin/orders?status=lost", "admin", RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/dashboard/stats", "admin", RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[domain.DashboardStats](t, w)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.StatusCounts[domain.OrderStatusCancelled])
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.Zero(t, stats.PendingOrders)

	item, err := s.ledger.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, item[0].Stock)
}

func TestHandler_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		role   string
		body   any
		status int
		kind   string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/orders/my-orders", status: http.StatusUnauthorized, kind: "Unauthorized"},
		{name: "invalid coupon", method: http.MethodPost, path: "/api/coupons/validate", user: "u1", body: gin.H{"code": "NOPE", "subtotal": 100}, status: http.StatusBadRequest, kind: "InvalidCoupon"},
		{name: "coupon without code", method: http.MethodPost, path: "/api/coupons/validate", user: "u1", body: gin.H{"subtotal": 100}, status: http.StatusBadRequest, kind: "InvalidInput"},
		{name: "too many units", method: http.MethodPost, path: "/api/orders/create", user: "u1", body: orderBody(13, ""), status: http.StatusConflict, kind: "InsufficientStock"},
		{name: "missing address", method: http.MethodPost, path: "/api/orders/create", user: "u1", body: gin.H{"lines": []gin.H{{"product_id": "p1", "variant_id": "v1", "quantity": 1}}}, status: http.StatusBadRequest, kind: "InvalidInput"},
		{name: "unknown order", method: http.MethodGet, path: "/api/orders/5f0c7a9e-0000-4000-8000-000000000000", user: "u1", status: http.StatusNotFound, kind: "OrderNotFound"},
		{name: "malformed order id", method: http.MethodGet, path: "/api/orders/abc", user: "u1", status: http.StatusNotFound, kind: "OrderNotFound"},
		{name: "stock for unknown variant", method: http.MethodPut, path: "/api/admin/inventory/p1/zz", user: "a", role: RoleAdmin, body: gin.H{"stock": 3}, status: http.StatusNotFound, kind: "NotFound"},
		{name: "stock missing", method: http.MethodPut, path: "/api/admin/inventory/p1/v1", user: "a", role: RoleAdmin, body: gin.H{}, status: http.StatusBadRequest, kind: "InvalidInput"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.user, tt.role, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestHandler_CouponValidateAndAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/coupons/validate", "u1", "", gin.H{"code": "welcome20", "subtotal": "1000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ValidateCouponResponse](t, w)
	assert.True(t, resp.Valid)
	assert.Equal(t, "100", resp.Discount.String())

	w = s.do(t, http.MethodPost, "/api/admin/coupons", "a", RoleAdmin, gin.H{
		"code":           "flat30",
		"discount_type":  "fixed",
		"discount_value": 30,
		"valid_from":     time.Now().Add(-time.Hour),
		"valid_until":    time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Coupon](t, w)
	assert.Equal(t, "FLAT30", created.Code)
	assert.True(t, created.IsActive)

	w = s.do(t, http.MethodGet, "/api/admin/coupons", "a", RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Coupon](t, w), 2)

	w = s.do(t, http.MethodDelete, "/api/admin/coupons/"+created.ID, "a", RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/admin/coupons/"+created.ID, "a", RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_PublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/payments/config", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, PaymentConfig{KeyID: "rzp_test", Currency: "INR"}, decode[PaymentConfig](t, w))
}

func TestAuthenticate_RejectsOtherAlgorithmsAndSecrets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Authenticate(testJWTSecret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ctxUserID))
	})

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	good, err := SignToken(testJWTSecret, "u9", "", time.Hour)
	require.NoError(t, err)
	w := call(good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u9", w.Body.String())

	forged, err := SignToken("other-secret", "u9", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(forged).Code)

	expired, err := SignToken(testJWTSecret, "u9", "", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(expired).Code)

	assert.Equal(t, http.StatusUnauthorized, call("not-a-token").Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(1, 2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
