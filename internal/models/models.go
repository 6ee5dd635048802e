package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodWallet PaymentMethod = "wallet"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	Name        string          `gorm:"not null"                      json:"name"`
	Description string          `gorm:"type:text"                     json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"price"`
	Category    string          `gorm:"not null;index"                json:"category"`
	Stock       int             `gorm:"not null;default:0"            json:"stock"`
	Brand       string          `json:"brand"`
	RAM         string          `gorm:"column:ram"                    json:"ram"`
	Processor   string          `json:"processor"`
	Storage     string          `json:"storage"`
	Image       string          `json:"image"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"not null"            json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                         json:"id"`
	UserID    uint `gorm:"index:idx_cart_user_product,unique" json:"user_id"`
	ProductID uint `gorm:"index:idx_cart_user_product,unique" json:"product_id"`
	Quantity  int  `gorm:"default:1;check:quantity>0"         json:"quantity"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID          uint            `gorm:"index;not null"              json:"user_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status          OrderStatus     `gorm:"not null;default:pending"    json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"not null;default:pending"    json:"payment_status"`
	PaymentMethod   PaymentMethod   `gorm:"not null;default:cod"        json:"payment_method"`
	ShippingAddress string          `gorm:"type:text;not null"          json:"shipping_address"`
	MobileNumber    string          `gorm:"size:15;not null"            json:"mobile_number"`
	Pincode         string          `gorm:"size:10;not null"            json:"pincode"`
	RefundReason    string          `json:"refund_reason,omitempty"`
	CreatedAt       time.Time       `gorm:"not null"                    json:"created_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"          json:"items,omitempty"`
}

// OrderItem freezes the unit price at purchase time; it is never
// re-read from the live product row.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}
