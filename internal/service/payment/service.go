package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/logging"
	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/repo"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStateTransition is returned when an operation is not
	// legal from the order's current status, e.g. refunding an order
	// that has not been paid.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrWrongPaymentMethod is returned when a cod-only operation is
	// invoked on a non-cod order.
	ErrWrongPaymentMethod = errors.New("wrong payment method")
)

// Service governs order status / payment status transitions. Every
// transition that touches more than one record runs inside a single
// transaction; a paid order with an uncleared cart is a bug, not a
// degraded state.
type Service struct {
	DB *gorm.DB
}

// Intent is the simulated gateway's payment session, shaped like the
// object a Stripe-style gateway returns.
type Intent struct {
	ID           string         `json:"id"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	Status       string         `json:"status"`
	ClientSecret string         `json:"client_secret"`
	Metadata     IntentMetadata `json:"metadata"`
}

type IntentMetadata struct {
	OrderID uint `json:"orderId"`
	UserID  uint `json:"userId"`
}

// WebhookEvent mirrors the gateway's event envelope.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata IntentMetadata `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// CreateIntent moves an online order to processing and returns an
// opaque payment session for the client to complete. Calling it again
// while the order is still processing is safe. The order row is lazily
// created when the gateway flow starts before checkout persisted one.
func (s *Service) CreateIntent(ctx context.Context, userID, orderID uint, amount decimal.Decimal) (*Intent, error) {
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := &repo.OrderRepo{DB: tx}

		_, err := orders.ByIDForUser(ctx, orderID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stub := models.Order{
				ID:              orderID,
				UserID:          userID,
				TotalAmount:     amount,
				Status:          models.OrderStatusPending,
				PaymentStatus:   models.PaymentStatusPending,
				PaymentMethod:   models.PaymentMethodOnline,
				ShippingAddress: "pending",
				MobileNumber:    "0000000000",
				Pincode:         "000000",
			}
			if err := orders.Create(ctx, &stub); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		return orders.UpdateStatus(ctx, orderID, models.OrderStatusProcessing, models.PaymentStatusPending)
	})
	if txErr != nil {
		return nil, txErr
	}

	ref := "pi_" + uuid.NewString()
	return &Intent{
		ID:           ref,
		Amount:       amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:     "inr",
		Status:       "requires_payment_method",
		ClientSecret: ref + "_secret",
		Metadata:     IntentMetadata{OrderID: orderID, UserID: userID},
	}, nil
}

// HandleWebhook applies a gateway event. Unknown types and events with
// no order reference are acknowledged without state change, and
// duplicate delivery of the same event is a no-op, so the gateway can
// redeliver freely.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	meta := event.Data.Object.Metadata

	switch event.Type {
	case EventPaymentSucceeded:
		if meta.OrderID == 0 {
			return nil
		}
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			orders := &repo.OrderRepo{DB: tx}
			if err := orders.UpdateStatus(ctx, meta.OrderID, models.OrderStatusPaid, models.PaymentStatusCompleted); err != nil {
				return err
			}
			if meta.UserID != 0 {
				carts := &repo.CartRepo{DB: tx}
				if err := carts.ClearUser(ctx, meta.UserID); err != nil {
					return fmt.Errorf("clearing cart for user %d: %w", meta.UserID, err)
				}
			}
			return nil
		})

	case EventPaymentFailed:
		if meta.OrderID == 0 {
			return nil
		}
		// Stock stays committed: a failed payment is not a failed
		// order, and the shopper may retry paying.
		orders := &repo.OrderRepo{DB: s.DB}
		return orders.UpdateStatus(ctx, meta.OrderID, models.OrderStatusPending, models.PaymentStatusFailed)

	default:
		logging.FromContext(ctx).Info("ignoring webhook event", "type", event.Type)
		return nil
	}
}

// ConfirmCOD re-asserts the cash-on-delivery starting state. Only legal
// for cod orders.
func (s *Service) ConfirmCOD(ctx context.Context, userID, orderID uint) error {
	orders := &repo.OrderRepo{DB: s.DB}

	order, err := orders.ByIDForUser(ctx, orderID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if order.PaymentMethod != models.PaymentMethodCOD {
		return ErrWrongPaymentMethod
	}

	return orders.UpdateStatus(ctx, orderID, models.OrderStatusProcessing, models.PaymentStatusPending)
}

// Refund transitions a paid order to refunded and records the reason.
// Legal only when the current status is exactly paid.
func (s *Service) Refund(ctx context.Context, orderID uint, reason string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := &repo.OrderRepo{DB: tx}

		order, err := orders.ByID(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		if order.Status != models.OrderStatusPaid {
			return ErrInvalidStateTransition
		}

		return orders.MarkRefunded(ctx, orderID, reason)
	})
}
