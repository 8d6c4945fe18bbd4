package dto

import "github.com/storefront-labs/storefront-backend/internal/models"

type ProductRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ImageURL      string  `json:"imageUrl"`
	ImageRef      string  `json:"imageRef"`
	ImageFileName string  `json:"imageFileName"`
	Price         float64 `json:"price"`
	Category      string  `json:"category"`
	Inventory     int     `json:"inventory"`
}

type CheckoutRequest struct {
	Items           []models.CartItem `json:"items"`
	Amount          float64           `json:"amount"`
	TotalQuantity   int               `json:"totalQuantity"`
	ShippingAddress models.Address    `json:"shippingAddress"`
	PaymentStatus   string            `json:"paymentStatus"`
	PaymentType     string            `json:"paymentType"`
	SubscriptionID  string            `json:"subscriptionId,omitempty"`
}
