package models

import "time"

// Well-known singleton counts documents, one per collection kind.
const (
	ProductCountsID = "product-counts"
	OrderCountsID   = "order-counts"
	UserCountsID    = "user-counts"
)

// Collection names used by the change stream.
const (
	CollectionUsers    = "users"
	CollectionProducts = "products"
	CollectionOrders   = "orders"
)

// CountsDoc holds the denormalized running totals for one collection.
// All is the collection total ("all" is reserved in SQL, hence the column
// rename); Categories carries the per-category counters and is only
// populated for product-counts. Version backs the conditional write the
// counter engine retries on.
type CountsDoc struct {
	ID         string         `gorm:"primaryKey;size:50" json:"id"`
	All        int            `gorm:"column:total;not null;default:0" json:"All"`
	Categories map[string]int `gorm:"serializer:json;type:jsonb" json:"categories,omitempty"`
	Version    int            `gorm:"not null;default:0" json:"-"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (CountsDoc) TableName() string { return "counts_docs" }
