package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/electromart/electromart/internal/middleware/auth"
	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/mykafka"
	"github.com/electromart/electromart/internal/repo"
)

// Cart mutations never touch real stock; they only clamp the requested
// quantity to what is currently available. Checkout re-validates, since
// a clamped quantity can go stale when stock drops later.
type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	carts := &repo.CartRepo{DB: h.DB}
	items, err := carts.ItemsByUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": items})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	ctx := c.Request().Context()
	products := &repo.ProductRepo{DB: h.DB}
	carts := &repo.CartRepo{DB: h.DB}

	product, err := products.ByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if product.Stock <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "product is out of stock",
		})
	}

	item, err := carts.Item(ctx, userID, req.ProductID)
	switch {
	case err == nil:
		item.Quantity += req.Quantity
		if item.Quantity > product.Stock {
			item.Quantity = product.Stock
		}
		if err := carts.Save(ctx, item); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		qty := req.Quantity
		if qty > product.Stock {
			qty = product.Stock
		}
		item = &models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: qty}
		if err := carts.Create(ctx, item); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"item":        item,
		"stock_limit": item.Quantity == product.Stock,
	})
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	ctx := c.Request().Context()
	carts := &repo.CartRepo{DB: h.DB}
	products := &repo.ProductRepo{DB: h.DB}

	item, err := carts.Item(ctx, userID, uint(productID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	product, err := products.ByID(ctx, uint(productID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	qty := req.Quantity
	if qty > product.Stock {
		qty = product.Stock
	}
	item.Quantity = qty
	if err := carts.Save(ctx, item); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"item":        item,
		"stock_limit": item.Quantity == product.Stock,
	})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	carts := &repo.CartRepo{DB: h.DB}
	removed, err := carts.Remove(c.Request().Context(), userID, uint(productID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// removing an absent item reports success so clients stay in sync
	msg := "item removed from cart"
	if removed == 0 {
		msg = "item not in cart"
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}
