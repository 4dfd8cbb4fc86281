package models

import (
	"errors"
	"strings"
	"time"
)

type PaymentMethod string
type PaymentStatus string
type OrderStatus string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodManualMpesa PaymentMethod = "manual_mpesa"
	PaymentMethodMpesaSTK    PaymentMethod = "mpesa_stk"
	PaymentMethodPesapal     PaymentMethod = "pesapal"

	PaymentStatusPending        PaymentStatus = "Pending"
	PaymentStatusCompleted      PaymentStatus = "Completed"
	PaymentStatusFailed         PaymentStatus = "Failed"
	PaymentStatusCancelled      PaymentStatus = "Cancelled"
	PaymentStatusCashOnDelivery PaymentStatus = "Cash on Delivery"

	// Fulfillment statuses
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusVerified   OrderStatus = "Verified"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type Order struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	// ProductID is nullable: deleting a product detaches its orders
	// instead of cascading.
	ProductID *uint    `json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"product,omitempty"`
	Size      string   `gorm:"not null" json:"size"`
	Amount    float64  `json:"amount"`

	PaymentMethod PaymentMethod `gorm:"type:VARCHAR(20);default:'cash'" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:VARCHAR(20);default:'Pending';index" json:"payment_status"`
	Status        OrderStatus   `gorm:"type:VARCHAR(20);default:'Pending'" json:"status"`

	// PaymentCode is the customer-supplied transaction code on the manual
	// path, compared against an operator-supplied code at verification.
	PaymentCode string `json:"payment_code,omitempty"`
	PhoneNumber string `json:"phone_number"`
	// PaymentTransactionID correlates orders with the external gateway:
	// the STK CheckoutRequestID or the Pesapal OrderTrackingId, replaced
	// with the receipt / confirmation code once payment completes.
	PaymentTransactionID string `gorm:"index" json:"payment_transaction_id"`
	PaymentReference     string `json:"payment_reference"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusVerified,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
	} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errors.New("invalid order status")
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range []PaymentMethod{
		PaymentMethodCash, PaymentMethodManualMpesa,
		PaymentMethodMpesaSTK, PaymentMethodPesapal,
	} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", errors.New("invalid payment method")
}
