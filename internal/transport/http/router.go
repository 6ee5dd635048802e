package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/handlers"
	"github.com/electromart/electromart/internal/handlers/cart"
	"github.com/electromart/electromart/internal/handlers/order"
	"github.com/electromart/electromart/internal/handlers/payment"
	authmw "github.com/electromart/electromart/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	Guard          *authmw.Guard
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	AdminHandler   *handlers.AdminHandler
	CartHandler    *cart.CartHandler
	OrderHandler   *order.OrderHandler
	PaymentHandler *payment.PaymentHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/search", d.SearchHandler.Search)

	cartGroup := v1.Group("/cart", d.Guard.RequireLogin)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PUT("/:productId", d.CartHandler.UpdateItem)
	cartGroup.DELETE("/:productId", d.CartHandler.RemoveItem)

	orders := v1.Group("/orders", d.Guard.RequireLogin)
	orders.GET("", d.OrderHandler.GetUserOrders)
	orders.POST("", d.OrderHandler.PlaceOrder)

	payments := v1.Group("/payments")
	payments.POST("/online", d.PaymentHandler.CreateIntent, d.Guard.RequireLogin)
	payments.POST("/cod", d.PaymentHandler.ConfirmCOD, d.Guard.RequireLogin)
	payments.POST("/refund", d.PaymentHandler.Refund, d.Guard.RequireLogin)
	// the gateway calls back without cookies
	payments.POST("/webhook", d.PaymentHandler.Webhook)

	admin := v1.Group("/admin", d.Guard.RequireAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.GET("/orders", d.AdminHandler.GetAllOrders)
	admin.GET("/orders/export", d.AdminHandler.ExportOrdersCSV)
	admin.GET("/users", d.AdminHandler.GetAllUsers)
	admin.GET("/analytics", d.AdminHandler.GetAnalytics)
}
