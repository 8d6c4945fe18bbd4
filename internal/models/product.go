package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CategoryClothing    = "Clothing"
	CategoryShoes       = "Shoes"
	CategoryWatches     = "Watches"
	CategoryAccessories = "Accessories"
)

// Categories lists every known product category, in counts-document order.
var Categories = []string{CategoryClothing, CategoryShoes, CategoryWatches, CategoryAccessories}

const (
	ProvisioningPending  = "pending"
	ProvisioningComplete = "complete"
)

// Product is the canonical product document. Subscription maps a billing
// interval (day/week/month) to the remote price id created for it; the map
// is filled in after creation by the provisioning saga, so a product is
// visible before its prices are attached. Inventory is only ever written by
// the order reactor.
type Product struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string            `gorm:"size:255;not null" json:"title"`
	Description     string            `gorm:"type:text" json:"description"`
	ImageURL        string            `gorm:"size:500" json:"imageUrl"`
	ImageRef        string            `gorm:"size:500" json:"imageRef"`
	ImageFileName   string            `gorm:"size:255" json:"imageFileName"`
	Price           float64           `gorm:"not null" json:"price"`
	Category        string            `gorm:"size:30;not null;index" json:"category"`
	Inventory       int               `gorm:"not null;default:0" json:"inventory"`
	Creator         string            `gorm:"size:100" json:"creator"`
	Subscription    datatypes.JSONMap `gorm:"type:jsonb" json:"subscription,omitempty"`
	RemoteProductID string            `gorm:"size:255" json:"-"`
	Provisioning    string            `gorm:"size:20;not null;default:'pending'" json:"-"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
