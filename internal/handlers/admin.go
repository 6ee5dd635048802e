package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/repo"
)

type AdminHandler struct {
	DB *gorm.DB
}

type adminOrder struct {
	models.Order
	UserEmail string `json:"user_email"`
}

func (h *AdminHandler) ordersWithEmails(c echo.Context) ([]adminOrder, error) {
	ctx := c.Request().Context()
	orders := &repo.OrderRepo{DB: h.DB}
	users := &repo.UserRepo{DB: h.DB}

	all, err := orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	userList, err := users.List(ctx)
	if err != nil {
		return nil, err
	}
	emails := make(map[uint]string, len(userList))
	for _, u := range userList {
		emails[u.ID] = u.Email
	}

	out := make([]adminOrder, 0, len(all))
	for _, o := range all {
		out = append(out, adminOrder{Order: o, UserEmail: emails[o.UserID]})
	}
	return out, nil
}

func (h *AdminHandler) GetAllOrders(c echo.Context) error {
	orders, err := h.ordersWithEmails(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   len(orders),
		"orders":  orders,
	})
}

func (h *AdminHandler) GetAllUsers(c echo.Context) error {
	users := &repo.UserRepo{DB: h.DB}
	list, err := users.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   len(list),
		"users":   list,
	})
}

func (h *AdminHandler) GetAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	users := &repo.UserRepo{DB: h.DB}
	orders := &repo.OrderRepo{DB: h.DB}

	totalUsers, err := users.CountByRole(ctx, "user")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	totalOrders, err := orders.Count(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var totalProducts int64
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).Count(&totalProducts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"analytics": echo.Map{
			"totalUsers":    totalUsers,
			"totalOrders":   totalOrders,
			"totalProducts": totalProducts,
		},
	})
}

func (h *AdminHandler) ExportOrdersCSV(c echo.Context) error {
	orders, err := h.ordersWithEmails(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var b strings.Builder
	b.WriteString("Order ID,User Email,Total Amount,Status,Date\n")
	for _, o := range orders {
		email := o.UserEmail
		if email == "" {
			email = "N/A"
		}
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s\n",
			o.ID, email, o.TotalAmount.StringFixed(2), o.Status, o.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=orders.csv")
	return c.Blob(http.StatusOK, "text/csv", []byte(b.String()))
}
