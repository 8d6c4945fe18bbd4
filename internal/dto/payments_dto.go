package dto

type PaymentIntentRequest struct {
	Amount        float64 `json:"amount"`
	Customer      string  `json:"customer,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type CreateCustomerResponse struct {
	CustomerID string `json:"customerId"`
}

type SetDefaultCardRequest struct {
	CustomerID    string `json:"customerId"`
	PaymentMethod string `json:"payment_method"`
}

type ListPaymentMethodsRequest struct {
	CustomerID string `json:"customerId"`
}

type CreateSubscriptionRequest struct {
	StripeID string `json:"stripeId"`
	PriceID  string `json:"priceId"`
	CouponID string `json:"couponId,omitempty"`
	Quantity int    `json:"quantity"`
}

type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
}
