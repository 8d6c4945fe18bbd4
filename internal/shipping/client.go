// Package shipping adapts the remote shipping provider. Requests are
// authenticated with a static basic-auth token derived from the configured
// key/secret pair; the inbound shipment webhook is not signed at all.
package shipping

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/models"
)

// NotifyShipped is the resource_type the shipment webhook reacts to.
const NotifyShipped = "SHIP_NOTIFY"

type ShipTo struct {
	Name        string `json:"name"`
	Street1     string `json:"street1"`
	Street2     string `json:"street2,omitempty"`
	Street3     string `json:"street3,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
	Residential bool   `json:"residential"`
}

type BillTo struct {
	Name string `json:"name"`
}

type OrderItem struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"imageUrl"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type CreateOrderRequest struct {
	OrderNumber      string      `json:"orderNumber"`
	OrderKey         string      `json:"orderKey"`
	OrderDate        string      `json:"orderDate"`
	PaymentDate      string      `json:"paymentDate"`
	OrderStatus      string      `json:"orderStatus"`
	CustomerUsername string      `json:"customerUsername"`
	CustomerEmail    string      `json:"customerEmail"`
	BillTo           BillTo      `json:"billTo"`
	ShipTo           ShipTo      `json:"shipTo"`
	Items            []OrderItem `json:"items"`
	AmountPaid       float64     `json:"amountPaid"`
}

// ShipmentDetail is the order detail fetched from a webhook resource_url.
type ShipmentDetail struct {
	OrderKey     string  `json:"orderKey"`
	OrderNumber  string  `json:"orderNumber"`
	ShipDate     string  `json:"shipDate"`
	ShipmentCost float64 `json:"shipmentCost"`
}

// BuildCreateOrder maps an order document into the provider's
// order-creation payload. The order id doubles as both orderNumber and
// orderKey so webhook detail lookups round-trip back to the store document.
func BuildCreateOrder(orderID string, o *models.Order) CreateOrderRequest {
	now := time.Now().UTC().Format(time.RFC3339)
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{
			SKU:       it.Item.ID.String(),
			Name:      it.Item.Title,
			ImageURL:  it.Item.ImageURL,
			Quantity:  it.Quantity,
			UnitPrice: it.Item.Price,
		})
	}

	return CreateOrderRequest{
		OrderNumber:      orderID,
		OrderKey:         orderID,
		OrderDate:        now,
		PaymentDate:      now,
		OrderStatus:      "awaiting_shipment",
		CustomerUsername: o.Customer.Name,
		CustomerEmail:    o.Customer.Email,
		BillTo:           BillTo{Name: "The President"},
		ShipTo: ShipTo{
			Name:        o.ShippingAddress.Fullname,
			Street1:     o.ShippingAddress.Address1,
			Street2:     o.ShippingAddress.Address2,
			City:        o.ShippingAddress.City,
			State:       o.ShippingAddress.State,
			PostalCode:  o.ShippingAddress.ZipCode,
			Country:     "US",
			Phone:       o.ShippingAddress.Phone,
			Residential: true,
		},
		Items:      items,
		AmountPaid: o.Amount,
	}
}

type Client struct {
	baseURL    string
	authHeader string
	http       *http.Client
}

func New(cfg *config.Config) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(cfg.ShipAPIKey + ":" + cfg.ShipAPISecret))
	return &Client{
		baseURL:    cfg.ShipAPIURL,
		authHeader: "Basic " + token,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreateShipment(ctx context.Context, orderID string, o *models.Order) error {
	payload := BuildCreateOrder(orderID, o)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode shipment order: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/orders/createorder", body, nil)
}

func (c *Client) CancelShipment(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/orders/"+orderID, nil, nil)
}

// FetchShipmentDetail follows the resource_url delivered by a shipment
// webhook.
func (c *Client) FetchShipmentDetail(ctx context.Context, resourceURL string) (*ShipmentDetail, error) {
	var detail ShipmentDetail
	if err := c.do(ctx, http.MethodGet, resourceURL, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build shipping request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shipping gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shipping gateway returned %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode shipping response: %w", err)
	}
	return nil
}
