package payment

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/models"
	paysvc "github.com/electromart/electromart/internal/service/payment"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.User{}, &models.RefreshToken{},
		&models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uint, method models.PaymentMethod, status models.OrderStatus) *models.Order {
	t.Helper()
	o := &models.Order{
		UserID:          userID,
		TotalAmount:     decimal.RequireFromString("499.00"),
		Status:          status,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   method,
		ShippingAddress: "12 MG Road, Bengaluru",
		MobileNumber:    "9876543210",
		Pincode:         "560001",
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func call(t *testing.T, db *gorm.DB, userID uint, path, body string, handler func(*PaymentHandler, echo.Context) error) *httptest.ResponseRecorder {
	t.Helper()
	h := &PaymentHandler{Svc: &paysvc.Service{DB: db}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("userID", userID)
	}

	require.NoError(t, handler(h, c))
	return rec
}

func TestCreateIntentEndpoint(t *testing.T) {
	db := newTestDB(t)
	o := seedOrder(t, db, 1, models.PaymentMethodOnline, models.OrderStatusPending)

	rec := call(t, db, 1, "/api/v1/payments/online", `{"orderId": 1, "amount": 499.00}`,
		(*PaymentHandler).CreateIntent)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "clientSecret")
	require.Contains(t, rec.Body.String(), "pi_")

	var fresh models.Order
	require.NoError(t, db.First(&fresh, o.ID).Error)
	require.Equal(t, models.OrderStatusProcessing, fresh.Status)
}

func TestWebhookEndpointSucceeded(t *testing.T) {
	db := newTestDB(t)
	o := seedOrder(t, db, 1, models.PaymentMethodOnline, models.OrderStatusProcessing)

	body := `{
		"type": "payment_intent.succeeded",
		"data": {"object": {"metadata": {"orderId": 1, "userId": 1}}}
	}`
	rec := call(t, db, 0, "/api/v1/payments/webhook", body, (*PaymentHandler).Webhook)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"received":true`)

	var fresh models.Order
	require.NoError(t, db.First(&fresh, o.ID).Error)
	require.Equal(t, models.OrderStatusPaid, fresh.Status)
	require.Equal(t, models.PaymentStatusCompleted, fresh.PaymentStatus)
}

// Unknown event types still get a 200 acknowledgement so the gateway
// stops retrying.
func TestWebhookEndpointUnknownEvent(t *testing.T) {
	db := newTestDB(t)

	body := `{"type": "charge.dispute.created", "data": {"object": {"metadata": {}}}}`
	rec := call(t, db, 0, "/api/v1/payments/webhook", body, (*PaymentHandler).Webhook)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"received":true`)
}

func TestConfirmCODEndpoint(t *testing.T) {
	db := newTestDB(t)
	seedOrder(t, db, 1, models.PaymentMethodCOD, models.OrderStatusProcessing)

	rec := call(t, db, 1, "/api/v1/payments/cod", `{"orderId": 1}`, (*PaymentHandler).ConfirmCOD)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cash on delivery order confirmed")
}

func TestConfirmCODEndpointWrongMethod(t *testing.T) {
	db := newTestDB(t)
	seedOrder(t, db, 1, models.PaymentMethodOnline, models.OrderStatusPending)

	rec := call(t, db, 1, "/api/v1/payments/cod", `{"orderId": 1}`, (*PaymentHandler).ConfirmCOD)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "not a cash on delivery order")
}

func TestConfirmCODEndpointNotFound(t *testing.T) {
	db := newTestDB(t)

	rec := call(t, db, 1, "/api/v1/payments/cod", `{"orderId": 404}`, (*PaymentHandler).ConfirmCOD)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefundEndpoint(t *testing.T) {
	db := newTestDB(t)
	o := seedOrder(t, db, 1, models.PaymentMethodOnline, models.OrderStatusPaid)

	rec := call(t, db, 1, "/api/v1/payments/refund", `{"orderId": 1, "reason": "damaged"}`,
		(*PaymentHandler).Refund)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "refund processed successfully")

	var fresh models.Order
	require.NoError(t, db.First(&fresh, o.ID).Error)
	require.Equal(t, models.OrderStatusRefunded, fresh.Status)
	require.Equal(t, "damaged", fresh.RefundReason)
}

func TestRefundEndpointNotPaid(t *testing.T) {
	db := newTestDB(t)
	seedOrder(t, db, 1, models.PaymentMethodOnline, models.OrderStatusProcessing)

	rec := call(t, db, 1, "/api/v1/payments/refund", `{"orderId": 1, "reason": "changed my mind"}`,
		(*PaymentHandler).Refund)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "order is not paid")
}
