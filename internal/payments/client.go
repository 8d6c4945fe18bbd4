// Package payments adapts the remote payment provider: product/price
// provisioning, payment intents, customers, payment methods, subscriptions,
// and inbound webhook signature verification.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/models"
)

// Intervals are the recurring billing intervals provisioned for every
// product, in the order their prices are created.
var Intervals = []string{"day", "week", "month"}

var ErrNoPaymentMethod = errors.New("payment intent carries no payment method")

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s", e.Status, e.Message)
}

type PaymentIntent struct {
	ID             string `json:"id"`
	ClientSecret   string `json:"client_secret"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Customer       string `json:"customer"`
	PaymentMethod  string `json:"payment_method"`
	Status         string `json:"status"`
}

type Invoice struct {
	ID            string         `json:"id"`
	PaymentIntent *PaymentIntent `json:"payment_intent"`
}

type Subscription struct {
	ID                 string   `json:"id"`
	Status             string   `json:"status"`
	CurrentPeriodStart int64    `json:"current_period_start"`
	CurrentPeriodEnd   int64    `json:"current_period_end"`
	LatestInvoice      *Invoice `json:"latest_invoice"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type PaymentMethod struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Customer string          `json:"customer"`
	Card     json.RawMessage `json:"card,omitempty"`
}

type remoteProduct struct {
	ID string `json:"id"`
}

type price struct {
	ID string `json:"id"`
}

type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		secretKey: cfg.StripeSecretKey,
		baseURL:   cfg.StripeAPIURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ProvisionRecurringProduct creates the remote product plus one recurring
// price per supported interval, at unit_amount = price x 100. Safe to
// re-run for a partially provisioned product: the caller keys idempotency
// on the product's provisioning state.
func (c *Client) ProvisionRecurringProduct(ctx context.Context, p *models.Product) (string, map[string]string, error) {
	form := url.Values{}
	form.Set("name", p.Title)
	form.Set("url", p.ImageURL)

	var prod remoteProduct
	if err := c.do(ctx, http.MethodPost, "/v1/products", form, &prod); err != nil {
		return "", nil, err
	}

	prices := make(map[string]string, len(Intervals))
	for _, interval := range Intervals {
		form := url.Values{}
		form.Set("currency", "usd")
		form.Set("product", prod.ID)
		form.Set("unit_amount", strconv.FormatInt(int64(math.Round(p.Price*100)), 10))
		form.Set("recurring[interval]", interval)
		form.Set("recurring[interval_count]", "1")
		form.Set("recurring[usage_type]", "licensed")

		var pr price
		if err := c.do(ctx, http.MethodPost, "/v1/prices", form, &pr); err != nil {
			return prod.ID, prices, fmt.Errorf("failed to create %s price: %w", interval, err)
		}
		prices[interval] = pr.ID
	}
	return prod.ID, prices, nil
}

// CreatePaymentIntent opens a one-off charge; amount is in major currency
// units.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64, customer, paymentMethod string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(math.Round(amount*100)), 10))
	form.Set("currency", "usd")
	if customer != "" {
		form.Set("customer", customer)
	}
	if paymentMethod != "" {
		form.Set("payment_method", paymentMethod)
	}

	var pi PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+id, nil, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)

	var cust Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", form, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, id string) (*Customer, error) {
	var cust Customer
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+id, nil, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

// SetDefaultCard makes the payment method the customer's invoice default.
func (c *Client) SetDefaultCard(ctx context.Context, customerID, paymentMethod string) (*Customer, error) {
	form := url.Values{}
	form.Set("invoice_settings[default_payment_method]", paymentMethod)

	var cust Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers/"+customerID, form, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

func (c *Client) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	var out struct {
		Data []PaymentMethod `json:"data"`
	}
	path := "/v1/payment_methods?customer=" + url.QueryEscape(customerID) + "&type=card"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) DetachPaymentMethod(ctx context.Context, paymentMethod string) (*PaymentMethod, error) {
	var pm PaymentMethod
	if err := c.do(ctx, http.MethodPost, "/v1/payment_methods/"+paymentMethod+"/detach", url.Values{}, &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

// CreateSubscription starts an incomplete subscription and expands the
// first invoice's payment intent so the caller gets a client secret to
// confirm the initial payment.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID, couponID string, quantity int) (*Subscription, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", priceID)
	form.Set("items[0][quantity]", strconv.Itoa(quantity))
	if couponID != "" {
		form.Set("coupon", couponID)
	}
	form.Set("payment_behavior", "allow_incomplete")
	form.Set("expand[]", "latest_invoice.payment_intent")

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions", form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubscriptionPayment sets the default payment method for future
// invoices and clears any first-invoice coupon.
func (c *Client) UpdateSubscriptionPayment(ctx context.Context, subscriptionID, paymentMethod string) (*Subscription, error) {
	form := url.Values{}
	form.Set("default_payment_method", paymentMethod)
	form.Set("coupon", "")

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions/"+subscriptionID, form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// PauseSubscription keeps invoices as drafts until one unit past the
// current period end.
func (c *Client) PauseSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var current Subscription
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+subscriptionID, nil, &current); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("pause_collection[behavior]", "keep_as_draft")
	form.Set("pause_collection[resumes_at]", strconv.FormatInt(current.CurrentPeriodEnd+1, 10))

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions/"+subscriptionID, form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
