package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	authmw "github.com/electromart/electromart/internal/middleware/auth"
	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/mykafka"
	ordersvc "github.com/electromart/electromart/internal/service/order"
)

type OrderHandler struct {
	Svc      *ordersvc.Service
	Producer *mykafka.Producer
}

// Wire type for checkout. The client may send per-item price and a
// totalAmount; both are advisory and never read. The ledger recomputes
// the total from product rows.
type placeOrderRequest struct {
	Items []struct {
		ProductID uint            `json:"productId"`
		Quantity  int             `json:"quantity"`
		Price     decimal.Decimal `json:"price"`
	} `json:"items"`
	TotalAmount     decimal.Decimal      `json:"totalAmount"`
	ShippingAddress string               `json:"shippingAddress"`
	MobileNumber    string               `json:"mobileNumber"`
	Pincode         string               `json:"pincode"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	in := ordersvc.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		MobileNumber:    req.MobileNumber,
		Pincode:         req.Pincode,
		PaymentMethod:   req.PaymentMethod,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, ordersvc.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.Svc.PlaceOrder(c.Request().Context(), userID, in)
	if err != nil {
		var validationErr *ordersvc.ValidationError
		var notFoundErr *ordersvc.ProductsNotFoundError
		var stockErr *ordersvc.InsufficientStockError

		switch {
		case errors.As(err, &validationErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success": false,
				"message": validationErr.Message,
			})
		case errors.As(err, &notFoundErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success": false,
				"message": notFoundErr.Error(),
			})
		case errors.As(err, &stockErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success":            false,
				"message":            "some products are out of stock",
				"outOfStockProducts": stockErr.Shortages,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"message": "error placing order",
			})
		}
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"orderID": result.OrderID,
		"userID":  userID,
		"total":   result.TotalAmount.StringFixed(2),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"success":     true,
		"message":     "order placed successfully",
		"orderId":     result.OrderID,
		"totalAmount": result.TotalAmount.StringFixed(2),
	})
}

func (h *OrderHandler) GetUserOrders(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListOrders(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "orders": orders})
}
