package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/stream"
	"gorm.io/gorm"
)

type Orders struct {
	db  *gorm.DB
	pub stream.Publisher
}

func NewOrders(db *gorm.DB, pub stream.Publisher) *Orders {
	return &Orders{db: db, pub: pub}
}

func (s *Orders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *Orders) Create(ctx context.Context, o *models.Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	if err := publish(ctx, s.pub, models.CollectionOrders, stream.EventCreate, o.ID.String(), nil, snapshot(o)); err != nil {
		slog.Error("failed to publish order create event", "doc_id", o.ID.String(), "error", err)
	}
	return nil
}

// BySubscription returns every order carrying the subscription id; the
// renewal flow filters them on shipment status itself.
func (s *Orders) BySubscription(ctx context.Context, subscriptionID string) ([]models.Order, error) {
	var out []models.Order
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Find(&out).Error
	return out, err
}

// MarkRenewed flips the live subscription order to Success/Preparing,
// recording the actual charged amount and the period start reported by the
// gateway.
func (s *Orders) MarkRenewed(ctx context.Context, id uuid.UUID, amount float64, periodStart int64) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	after := *before
	after.Amount = amount
	after.PaymentStatus = models.PaymentSuccess
	after.ShipmentStatus = models.ShipmentPreparing
	after.SubscriptionStart = periodStart
	after.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Order{ID: id}).
		Updates(map[string]interface{}{
			"amount":             amount,
			"payment_status":     models.PaymentSuccess,
			"shipment_status":    models.ShipmentPreparing,
			"subscription_start": periodStart,
			"updated_at":         after.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark order renewed: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionOrders, stream.EventUpdate, id.String(), snapshot(before), snapshot(&after)); err != nil {
		slog.Error("failed to publish order update event", "doc_id", id.String(), "error", err)
	}
	return nil
}

// SetShipmentStatus is driven by the inbound shipment webhook.
func (s *Orders) SetShipmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	after := *before
	after.ShipmentStatus = status
	after.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Order{ID: id}).
		Updates(map[string]interface{}{"shipment_status": status, "updated_at": after.UpdatedAt}).Error; err != nil {
		return fmt.Errorf("failed to set shipment status: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionOrders, stream.EventUpdate, id.String(), snapshot(before), snapshot(&after)); err != nil {
		slog.Error("failed to publish order update event", "doc_id", id.String(), "error", err)
	}
	return nil
}

func (s *Orders) Delete(ctx context.Context, id uuid.UUID) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionOrders, stream.EventDelete, id.String(), snapshot(before), nil); err != nil {
		slog.Error("failed to publish order delete event", "doc_id", id.String(), "error", err)
	}
	return nil
}
