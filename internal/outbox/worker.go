package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"gorm.io/gorm"
)

const (
	defaultMaxAttempts = 8
	defaultBatchSize   = 50
	backoffBase        = 10 * time.Second
	backoffCap         = time.Hour
)

// Searcher is the slice of the search client the worker needs.
type Searcher interface {
	Upsert(ctx context.Context, index, objectID string, body []byte) error
	Delete(ctx context.Context, index, objectID string) error
}

// Shipper is the slice of the shipping client the worker needs.
type Shipper interface {
	CreateShipment(ctx context.Context, orderID string, o *models.Order) error
	CancelShipment(ctx context.Context, orderID string) error
}

// Worker executes due outbox entries with exponential backoff. One worker
// per process; entries that exhaust their attempts park as dead and are
// reported to Sentry.
type Worker struct {
	db          *gorm.DB
	search      Searcher
	shipping    Shipper
	maxAttempts int
	batchSize   int
}

func NewWorker(db *gorm.DB, search Searcher, shipping Shipper) *Worker {
	return &Worker{
		db:          db,
		search:      search,
		shipping:    shipping,
		maxAttempts: defaultMaxAttempts,
		batchSize:   defaultBatchSize,
	}
}

// Sweep runs one pass over due pending entries. Scheduled from main.
func (w *Worker) Sweep(ctx context.Context) {
	var entries []models.OutboxEntry
	err := w.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, time.Now().UTC()).
		Order("next_attempt_at").
		Limit(w.batchSize).
		Find(&entries).Error
	if err != nil {
		slog.Error("outbox sweep query failed", "error", err)
		return
	}

	for i := range entries {
		w.process(ctx, &entries[i])
	}
}

func (w *Worker) process(ctx context.Context, entry *models.OutboxEntry) {
	err := w.execute(ctx, entry)
	if err == nil {
		w.db.WithContext(ctx).Model(entry).Updates(map[string]interface{}{
			"status":     models.OutboxDone,
			"last_error": "",
		})
		return
	}

	entry.Attempts++
	updates := map[string]interface{}{
		"attempts":   entry.Attempts,
		"last_error": err.Error(),
	}
	if entry.Attempts >= w.maxAttempts {
		updates["status"] = models.OutboxDead
		slog.Error("outbox entry dead", "kind", entry.Kind, "doc_id", entry.ID.String(), "error", err.Error())
		sentry.CaptureException(fmt.Errorf("outbox entry %s (%s) dead after %d attempts: %w",
			entry.ID, entry.Kind, entry.Attempts, err))
	} else {
		updates["next_attempt_at"] = time.Now().UTC().Add(backoff(entry.Attempts))
		slog.Warn("outbox entry failed, will retry",
			"kind", entry.Kind, "attempts", entry.Attempts, "error", err.Error())
	}
	w.db.WithContext(ctx).Model(entry).Updates(updates)
}

func (w *Worker) execute(ctx context.Context, entry *models.OutboxEntry) error {
	switch entry.Kind {
	case KindSearchUpsert:
		var p SearchUpsertPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %w", err)
		}
		return w.search.Upsert(ctx, p.Index, p.ObjectID, p.Body)
	case KindSearchDelete:
		var p SearchDeletePayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %w", err)
		}
		return w.search.Delete(ctx, p.Index, p.ObjectID)
	case KindShipmentCreate:
		var p ShipmentCreatePayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %w", err)
		}
		return w.shipping.CreateShipment(ctx, p.OrderID, &p.Order)
	case KindShipmentCancel:
		var p ShipmentCancelPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %w", err)
		}
		return w.shipping.CancelShipment(ctx, p.OrderID)
	default:
		return fmt.Errorf("unknown outbox kind %q", entry.Kind)
	}
}

// backoff doubles per attempt from backoffBase, capped at backoffCap.
func backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
