package dto

// ShipmentNotification is the unsigned webhook the shipping provider sends.
// Only resource_type SHIP_NOTIFY is acted on.
type ShipmentNotification struct {
	ResourceType string `json:"resource_type"`
	ResourceURL  string `json:"resource_url"`
}
