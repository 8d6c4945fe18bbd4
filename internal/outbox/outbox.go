// Package outbox records intended side effects (search mirroring, shipment
// gateway calls) next to the primary write, and executes them later with
// retry. A failed side effect never rolls back the store mutation that
// produced it.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"gorm.io/gorm"
)

const (
	KindSearchUpsert   = "search-upsert"
	KindSearchDelete   = "search-delete"
	KindShipmentCreate = "shipment-create"
	KindShipmentCancel = "shipment-cancel"
)

type SearchUpsertPayload struct {
	Index    string          `json:"index"`
	ObjectID string          `json:"objectId"`
	Body     json.RawMessage `json:"body"`
}

type SearchDeletePayload struct {
	Index    string `json:"index"`
	ObjectID string `json:"objectId"`
}

type ShipmentCreatePayload struct {
	OrderID string       `json:"orderId"`
	Order   models.Order `json:"order"`
}

type ShipmentCancelPayload struct {
	OrderID string `json:"orderId"`
}

// Queue enqueues outbox entries.
type Queue struct {
	db *gorm.DB
}

func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode outbox payload: %w", err)
	}

	entry := models.OutboxEntry{
		ID:            uuid.New(),
		Kind:          kind,
		Payload:       body,
		Status:        models.OutboxPending,
		NextAttemptAt: time.Now().UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", kind, err)
	}
	return nil
}
