package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusFailed   PaymentStatus = "Failed"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

var paymentMethods = map[string]bool{
	"COD":         true,
	"Card":        true,
	"UPI":         true,
	"Net Banking": true,
}

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m string) bool {
	return paymentMethods[m]
}

// ValidStatusUpdate reports whether s is a status an admin may set through
// the update operation. Cancelled is excluded; it has its own endpoint.
func ValidStatusUpdate(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func Cancellable(s OrderStatus) bool {
	return s != OrderStatusShipped && s != OrderStatusDelivered
}

type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"` // line price frozen at order time
}

type ShippingAddress struct {
	FullName string `bson:"fullName" json:"fullName"`
	Street   string `bson:"street" json:"street"`
	City     string `bson:"city" json:"city"`
	State    string `bson:"state" json:"state"`
	Country  string `bson:"country" json:"country"`
	PinCode  string `bson:"pinCode" json:"pinCode"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus     OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
