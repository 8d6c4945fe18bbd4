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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Products struct {
	db  *gorm.DB
	pub stream.Publisher
}

func NewProducts(db *gorm.DB, pub stream.Publisher) *Products {
	return &Products{db: db, pub: pub}
}

func (s *Products) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Products) Create(ctx context.Context, p *models.Product) error {
	if p.Provisioning == "" {
		p.Provisioning = models.ProvisioningPending
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	if err := publish(ctx, s.pub, models.CollectionProducts, stream.EventCreate, p.ID.String(), nil, snapshot(p)); err != nil {
		slog.Error("failed to publish product create event", "doc_id", p.ID.String(), "error", err)
	}
	return nil
}

// Update replaces the admin-editable fields. Inventory is deliberately not
// one of them; only the order reactor writes inventory.
func (s *Products) Update(ctx context.Context, p *models.Product) error {
	before, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}

	p.Inventory = before.Inventory
	p.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Product{ID: p.ID}).
		Updates(map[string]interface{}{
			"title":           p.Title,
			"description":     p.Description,
			"image_url":       p.ImageURL,
			"image_ref":       p.ImageRef,
			"image_file_name": p.ImageFileName,
			"price":           p.Price,
			"category":        p.Category,
			"creator":         p.Creator,
			"updated_at":      p.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	after, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := publish(ctx, s.pub, models.CollectionProducts, stream.EventUpdate, p.ID.String(), snapshot(before), snapshot(after)); err != nil {
		slog.Error("failed to publish product update event", "doc_id", p.ID.String(), "error", err)
	}
	return nil
}

// SetInventory writes the clamped inventory computed by the order reactor.
func (s *Products) SetInventory(ctx context.Context, id uuid.UUID, inventory int) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	after := *before
	after.Inventory = inventory
	after.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Product{ID: id}).
		Updates(map[string]interface{}{"inventory": inventory, "updated_at": after.UpdatedAt}).Error; err != nil {
		return fmt.Errorf("failed to set inventory: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionProducts, stream.EventUpdate, id.String(), snapshot(before), snapshot(&after)); err != nil {
		slog.Error("failed to publish product update event", "doc_id", id.String(), "error", err)
	}
	return nil
}

// MergeSubscription attaches the remote product id and the per-interval
// price ids created by provisioning, and marks the saga complete.
func (s *Products) MergeSubscription(ctx context.Context, id uuid.UUID, remoteID string, prices map[string]string) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sub := datatypes.JSONMap{}
	for interval, priceID := range before.Subscription {
		sub[interval] = priceID
	}
	for interval, priceID := range prices {
		sub[interval] = priceID
	}

	after := *before
	after.Subscription = sub
	after.RemoteProductID = remoteID
	after.Provisioning = models.ProvisioningComplete
	after.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Product{ID: id}).
		Updates(map[string]interface{}{
			"subscription":      sub,
			"remote_product_id": remoteID,
			"provisioning":      models.ProvisioningComplete,
			"updated_at":        after.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to merge subscription prices: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionProducts, stream.EventUpdate, id.String(), snapshot(before), snapshot(&after)); err != nil {
		slog.Error("failed to publish product update event", "doc_id", id.String(), "error", err)
	}
	return nil
}

// ListPendingProvisioning returns products whose provisioning saga has not
// completed and that are older than the grace window, for the reconciler.
func (s *Products) ListPendingProvisioning(ctx context.Context, olderThan time.Time) ([]models.Product, error) {
	var out []models.Product
	err := s.db.WithContext(ctx).
		Where("provisioning = ? AND created_at < ?", models.ProvisioningPending, olderThan).
		Find(&out).Error
	return out, err
}

func (s *Products) Delete(ctx context.Context, id uuid.UUID) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionProducts, stream.EventDelete, id.String(), snapshot(before), nil); err != nil {
		slog.Error("failed to publish product delete event", "doc_id", id.String(), "error", err)
	}
	return nil
}
