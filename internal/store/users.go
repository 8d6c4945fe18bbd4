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

var ErrNotFound = errors.New("document not found")

type Users struct {
	db  *gorm.DB
	pub stream.Publisher
}

func NewUsers(db *gorm.DB, pub stream.Publisher) *Users {
	return &Users{db: db, pub: pub}
}

func (s *Users) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Users) Create(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if err := publish(ctx, s.pub, models.CollectionUsers, stream.EventCreate, u.ID.String(), nil, snapshot(u)); err != nil {
		slog.Error("failed to publish user create event", "doc_id", u.ID.String(), "error", err)
	}
	return nil
}

// UpdateRole sets a new role on the user document. The role claim in
// already-issued tokens is untouched; it refreshes on the next login.
func (s *Users) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	after := *before
	after.Role = role
	after.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.User{ID: id}).
		Updates(map[string]interface{}{"role": role, "updated_at": after.UpdatedAt}).Error; err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionUsers, stream.EventUpdate, id.String(), snapshot(before), snapshot(&after)); err != nil {
		slog.Error("failed to publish user update event", "doc_id", id.String(), "error", err)
	}
	return nil
}

// SetStripeCustomer stores the remote customer id on the user document.
func (s *Users) SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	after := *before
	after.StripeCustomerID = customerID
	after.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.User{ID: id}).
		Updates(map[string]interface{}{"stripe_customer_id": customerID, "updated_at": after.UpdatedAt}).Error; err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionUsers, stream.EventUpdate, id.String(), snapshot(before), snapshot(&after)); err != nil {
		slog.Error("failed to publish user update event", "doc_id", id.String(), "error", err)
	}
	return nil
}

func (s *Users) Delete(ctx context.Context, id uuid.UUID) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := publish(ctx, s.pub, models.CollectionUsers, stream.EventDelete, id.String(), snapshot(before), nil); err != nil {
		slog.Error("failed to publish user delete event", "doc_id", id.String(), "error", err)
	}
	return nil
}
