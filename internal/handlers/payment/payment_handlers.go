package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	authmw "github.com/electromart/electromart/internal/middleware/auth"
	"github.com/electromart/electromart/internal/mykafka"
	paysvc "github.com/electromart/electromart/internal/service/payment"
)

type PaymentHandler struct {
	Svc      *paysvc.Service
	Producer *mykafka.Producer
}

func (h *PaymentHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "payment_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// CreateIntent starts the simulated online payment flow for an order.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		OrderID uint            `json:"orderId"`
		Amount  decimal.Decimal `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "orderId required")
	}

	intent, err := h.Svc.CreateIntent(c.Request().Context(), userID, req.OrderID, req.Amount)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "error creating payment intent",
		})
	}

	h.publish(c, map[string]any{
		"type":    "payment_intent_created",
		"orderID": req.OrderID,
		"userID":  userID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"clientSecret":  intent.ClientSecret,
		"paymentIntent": intent,
	})
}

// Webhook receives gateway events. It always acknowledges: the gateway
// retries on anything else, and unknown or duplicate events are normal.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var event paysvc.WebhookEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	if err := h.Svc.HandleWebhook(c.Request().Context(), event); err != nil {
		c.Logger().Errorf("webhook handling error: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "webhook error"})
	}

	if event.Data.Object.Metadata.OrderID != 0 {
		h.publish(c, map[string]any{
			"type":    event.Type,
			"orderID": event.Data.Object.Metadata.OrderID,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *PaymentHandler) ConfirmCOD(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		OrderID uint `json:"orderId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ConfirmCOD(c.Request().Context(), userID, req.OrderID); err != nil {
		switch {
		case errors.Is(err, paysvc.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"message": "order not found",
			})
		case errors.Is(err, paysvc.ErrWrongPaymentMethod):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success": false,
				"message": "this order is not a cash on delivery order",
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"message": "error processing cash on delivery order",
			})
		}
	}

	h.publish(c, map[string]any{
		"type":    "cod_confirmed",
		"orderID": req.OrderID,
		"userID":  userID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "cash on delivery order confirmed",
		"orderId": req.OrderID,
	})
}

func (h *PaymentHandler) Refund(c echo.Context) error {
	var req struct {
		OrderID uint   `json:"orderId"`
		Reason  string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Refund(c.Request().Context(), req.OrderID, req.Reason); err != nil {
		switch {
		case errors.Is(err, paysvc.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "order not found"})
		case errors.Is(err, paysvc.ErrInvalidStateTransition):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "order is not paid"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error processing refund"})
		}
	}

	h.publish(c, map[string]any{
		"type":    "payment_refunded",
		"orderID": req.OrderID,
		"reason":  req.Reason,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "refund processed successfully",
	})
}
