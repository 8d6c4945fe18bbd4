package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentProcessing = "Processing"
	PaymentSuccess    = "Success"
	PaymentRefund     = "Refund"
)

const (
	PaymentTypeOneTime      = "ONETIME"
	PaymentTypeSubscription = "SUBSCRIPTION"
)

const (
	ShipmentNew       = "New"
	ShipmentPreparing = "Preparing"
	ShipmentShipped   = "Shipped"
	ShipmentDelivered = "Delivered"
	ShipmentCancel    = "Cancel"
)

// Address is the checkout shipping address, stored inside the order document.
type Address struct {
	Index    int    `json:"index,omitempty"`
	Fullname string `json:"fullname"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zipCode"`
	Phone    string `json:"phone"`
}

// CartItem carries a denormalized snapshot of the product as it looked when
// it was added to the cart. Item.ID is the key used for inventory writes.
type CartItem struct {
	ID       string  `json:"id"`
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	User     string  `json:"user"`
	Item     Product `json:"item"`
}

// Customer is the denormalized slice of the user embedded in an order.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order is the canonical order document. Subscription orders form a chain:
// each renewal marks the live order Success/Preparing and creates a
// successor sitting in New for the next billing period. SubscriptionStart
// is the unix period anchor reported by the payment gateway.
type Order struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Items             []CartItem `gorm:"serializer:json;type:jsonb" json:"items"`
	Amount            float64    `gorm:"not null" json:"amount"`
	TotalQuantity     int        `gorm:"not null" json:"totalQuantity"`
	ShippingAddress   Address    `gorm:"serializer:json;type:jsonb" json:"shippingAddress"`
	Customer          Customer   `gorm:"serializer:json;type:jsonb" json:"user"`
	PaymentStatus     string     `gorm:"size:20;index" json:"paymentStatus,omitempty"`
	PaymentType       string     `gorm:"size:20" json:"paymentType,omitempty"`
	SubscriptionID    string     `gorm:"size:255;index" json:"subscriptionId,omitempty"`
	ShipmentStatus    string     `gorm:"size:20;index" json:"shipmentStatus,omitempty"`
	SubscriptionStart int64      `json:"subscriptionStartDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
