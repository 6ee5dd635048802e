package order

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/repo"
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

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "laptops",
		Stock:    stock,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func validInput(lines ...Line) PlaceOrderInput {
	return PlaceOrderInput{
		Items:           lines,
		ShippingAddress: "12 MG Road, Bengaluru",
		MobileNumber:    "9876543210",
		Pincode:         "560001",
		PaymentMethod:   models.PaymentMethodCOD,
	}
}

func TestPlaceOrderCOD(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	p := seedProduct(t, db, "phone", "100.00", 5)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 2}).Error)

	result, err := svc.PlaceOrder(ctx, 1, validInput(Line{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)
	require.NotZero(t, result.OrderID)
	require.Equal(t, "200.00", result.TotalAmount.StringFixed(2))

	var order models.Order
	require.NoError(t, db.First(&order, result.OrderID).Error)
	require.Equal(t, models.OrderStatusProcessing, order.Status)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	require.Equal(t, "200.00", order.TotalAmount.StringFixed(2))

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)
	require.Equal(t, "100.00", items[0].Price.StringFixed(2))

	var fresh models.Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	require.Equal(t, 3, fresh.Stock)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error)
	require.Zero(t, cartCount)
}

func TestPlaceOrderOnlineInitialStatus(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, "phone", "250.50", 3)
	in := validInput(Line{ProductID: p.ID, Quantity: 1})
	in.PaymentMethod = models.PaymentMethodOnline

	result, err := svc.PlaceOrder(context.Background(), 7, in)
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, db.First(&order, result.OrderID).Error)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, "phone", "100.00", 5)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 10}).Error)

	_, err := svc.PlaceOrder(context.Background(), 1, validInput(Line{ProductID: p.ID, Quantity: 10}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	require.Equal(t, p.ID, stockErr.Shortages[0].ID)
	require.Equal(t, "phone", stockErr.Shortages[0].Name)
	require.Equal(t, 10, stockErr.Shortages[0].Requested)
	require.Equal(t, 5, stockErr.Shortages[0].Available)

	// no side effects
	var fresh models.Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	require.Equal(t, 5, fresh.Stock)

	var orderCount, cartCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartCount).Error)
	require.Equal(t, int64(1), cartCount)
}

func TestPlaceOrderCollectsAllShortages(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	p1 := seedProduct(t, db, "phone", "100.00", 1)
	p2 := seedProduct(t, db, "laptop", "900.00", 2)

	_, err := svc.PlaceOrder(context.Background(), 1, validInput(
		Line{ProductID: p1.ID, Quantity: 3},
		Line{ProductID: p2.ID, Quantity: 5},
	))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 2)
}

func TestPlaceOrderProductsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, "phone", "100.00", 5)

	_, err := svc.PlaceOrder(context.Background(), 1, validInput(
		Line{ProductID: p.ID, Quantity: 1},
		Line{ProductID: 999, Quantity: 1},
	))

	var notFound *ProductsNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, []uint{999}, notFound.IDs)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	p := seedProduct(t, db, "phone", "100.00", 5)

	cases := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"empty items", func(in *PlaceOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }},
		{"zero product id", func(in *PlaceOrderInput) { in.Items[0].ProductID = 0 }},
		{"empty address", func(in *PlaceOrderInput) { in.ShippingAddress = "" }},
		{"short mobile", func(in *PlaceOrderInput) { in.MobileNumber = "12345" }},
		{"alpha mobile", func(in *PlaceOrderInput) { in.MobileNumber = "98765abcde" }},
		{"short pincode", func(in *PlaceOrderInput) { in.Pincode = "5600" }},
		{"wallet method", func(in *PlaceOrderInput) { in.PaymentMethod = models.PaymentMethodWallet }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput(Line{ProductID: p.ID, Quantity: 1})
			tc.mutate(&in)

			_, err := svc.PlaceOrder(context.Background(), 1, in)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestPlaceOrderDefaultsToCOD(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	p := seedProduct(t, db, "phone", "100.00", 5)

	in := validInput(Line{ProductID: p.ID, Quantity: 1})
	in.PaymentMethod = ""

	result, err := svc.PlaceOrder(context.Background(), 1, in)
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, db.First(&order, result.OrderID).Error)
	require.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	require.Equal(t, models.OrderStatusProcessing, order.Status)
}

// The frozen price must survive later catalog edits: the order total and
// line prices are snapshots, not references.
func TestPlaceOrderFreezesPrices(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	p := seedProduct(t, db, "phone", "100.00", 5)

	result, err := svc.PlaceOrder(context.Background(), 1, validInput(Line{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).
		Update("price", decimal.RequireFromString("999.99")).Error)

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, result.OrderID).Error)
	require.Equal(t, "200.00", order.TotalAmount.StringFixed(2))
	require.Equal(t, "100.00", order.Items[0].Price.StringFixed(2))
}

// Sequential checkouts racing for the last unit: the first wins, the
// second is rejected with fresh availability, and stock lands at zero.
func TestPlaceOrderLastUnit(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	p := seedProduct(t, db, "phone", "100.00", 1)

	_, err := svc.PlaceOrder(context.Background(), 1, validInput(Line{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), 2, validInput(Line{ProductID: p.ID, Quantity: 1}))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 0, stockErr.Shortages[0].Available)

	var fresh models.Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	require.Equal(t, 0, fresh.Stock)
}

func TestCartClearIdempotent(t *testing.T) {
	db := newTestDB(t)
	carts := &repo.CartRepo{DB: db}
	ctx := context.Background()

	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 1}).Error)

	require.NoError(t, carts.ClearUser(ctx, 1))
	require.NoError(t, carts.ClearUser(ctx, 1))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.Zero(t, count)
}

func TestListOrdersNewestFirstWithItems(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	p := seedProduct(t, db, "phone", "100.00", 10)

	first, err := svc.PlaceOrder(context.Background(), 1, validInput(Line{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	second, err := svc.PlaceOrder(context.Background(), 1, validInput(Line{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)

	orders, err := svc.ListOrders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	ids := []uint{orders[0].ID, orders[1].ID}
	require.ElementsMatch(t, []uint{first.OrderID, second.OrderID}, ids)
	for _, o := range orders {
		require.NotEmpty(t, o.Items)
	}
}

func TestTransactionFailureWrapsSentinel(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	p := seedProduct(t, db, "phone", "100.00", 5)

	// dropping the order_items table makes the commit step fail after
	// validation passed, exercising the rollback path
	require.NoError(t, db.Migrator().DropTable(&models.OrderItem{}))

	_, err := svc.PlaceOrder(context.Background(), 1, validInput(Line{ProductID: p.ID, Quantity: 1}))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTransactionFailed))

	// rollback left the stock untouched
	var fresh models.Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	require.Equal(t, 5, fresh.Stock)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}
