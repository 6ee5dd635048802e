package order

import (
	"context"
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/logging"
	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/repo"
)

// Service is the order ledger: it owns the checkout transaction that
// creates an order with frozen line-item prices, decrements stock and
// clears the cart as one unit of work.
type Service struct {
	DB *gorm.DB
}

type Line struct {
	ProductID uint
	Quantity  int
}

type PlaceOrderInput struct {
	Items           []Line
	ShippingAddress string
	MobileNumber    string
	Pincode         string
	PaymentMethod   models.PaymentMethod
}

type PlaceOrderResult struct {
	OrderID     uint
	TotalAmount decimal.Decimal
}

var (
	mobileRe  = regexp.MustCompile(`^[0-9]{10}$`)
	pincodeRe = regexp.MustCompile(`^[0-9]{6}$`)
)

func (in *PlaceOrderInput) validate() error {
	if len(in.Items) == 0 {
		return &ValidationError{Message: "no items in order"}
	}
	for _, line := range in.Items {
		if line.ProductID == 0 {
			return &ValidationError{Message: "product_id required"}
		}
		if line.Quantity < 1 {
			return &ValidationError{Message: "quantity must be >= 1"}
		}
	}
	if in.ShippingAddress == "" {
		return &ValidationError{Message: "shipping address required"}
	}
	if !mobileRe.MatchString(in.MobileNumber) {
		return &ValidationError{Message: "mobile number must be exactly 10 digits"}
	}
	if !pincodeRe.MatchString(in.Pincode) {
		return &ValidationError{Message: "pincode must be exactly 6 digits"}
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentMethodCOD
	}
	if in.PaymentMethod != models.PaymentMethodCOD && in.PaymentMethod != models.PaymentMethodOnline {
		return &ValidationError{Message: "payment method must be cod or online"}
	}
	return nil
}

// initialState derives the order's starting states from the payment
// method: cod orders go straight to processing, online orders wait for
// the gateway.
func initialState(method models.PaymentMethod) (models.OrderStatus, models.PaymentStatus) {
	if method == models.PaymentMethodOnline {
		return models.OrderStatusPending, models.PaymentStatusPending
	}
	return models.OrderStatusProcessing, models.PaymentStatusPending
}

// PlaceOrder validates the request against live stock, then atomically
// creates the order and its items, decrements stock and clears the
// user's cart. The client-supplied prices are never consulted; the
// total is recomputed from the product rows.
//
// Validation is batch: every missing product and every shortage is
// collected before failing, so the caller can fix the cart in one pass.
// The stock check is advisory only; the conditional decrement inside
// the transaction is what closes the check-then-act race.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	products := &repo.ProductRepo{DB: s.DB}

	ids := make([]uint, 0, len(in.Items))
	for _, line := range in.Items {
		ids = append(ids, line.ProductID)
	}

	found, err := products.ByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Join(ErrTransactionFailed, err)
	}

	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	var missing []uint
	for _, line := range in.Items {
		if _, ok := byID[line.ProductID]; !ok {
			missing = append(missing, line.ProductID)
		}
	}
	if len(missing) > 0 {
		return nil, &ProductsNotFoundError{IDs: missing}
	}

	var shortages []StockShortage
	for _, line := range in.Items {
		p := byID[line.ProductID]
		if p.Stock < line.Quantity {
			shortages = append(shortages, StockShortage{
				ID:        p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: p.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	total := decimal.Zero
	for _, line := range in.Items {
		p := byID[line.ProductID]
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	status, payStatus := initialState(in.PaymentMethod)

	var order models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := &repo.OrderRepo{DB: tx}
		txProducts := &repo.ProductRepo{DB: tx}
		carts := &repo.CartRepo{DB: tx}

		order = models.Order{
			UserID:          userID,
			TotalAmount:     total,
			Status:          status,
			PaymentStatus:   payStatus,
			PaymentMethod:   in.PaymentMethod,
			ShippingAddress: in.ShippingAddress,
			MobileNumber:    in.MobileNumber,
			Pincode:         in.Pincode,
		}
		if err := orders.Create(ctx, &order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(in.Items))
		for _, line := range in.Items {
			p := byID[line.ProductID]
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  line.Quantity,
				Price:     p.Price,
			})
		}
		if err := orders.CreateItems(ctx, items); err != nil {
			return err
		}

		for _, line := range in.Items {
			ok, err := txProducts.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// A concurrent checkout won the race since the advisory
				// check. Surface fresh numbers and roll everything back.
				p, err := txProducts.ByID(ctx, line.ProductID)
				if err != nil {
					return err
				}
				return &InsufficientStockError{Shortages: []StockShortage{{
					ID:        p.ID,
					Name:      p.Name,
					Requested: line.Quantity,
					Available: p.Stock,
				}}}
			}
		}

		return carts.ClearUser(ctx, userID)
	})

	if txErr != nil {
		var stockErr *InsufficientStockError
		if errors.As(txErr, &stockErr) {
			return nil, stockErr
		}
		logging.FromContext(ctx).Error("order transaction failed", "user_id", userID, "error", txErr)
		return nil, errors.Join(ErrTransactionFailed, txErr)
	}

	return &PlaceOrderResult{OrderID: order.ID, TotalAmount: total}, nil
}

// ListOrders returns the user's orders newest first, each with its
// frozen line items.
func (s *Service) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := &repo.OrderRepo{DB: s.DB}
	return orders.ListByUser(ctx, userID)
}
