package store

import (
	"context"
	"errors"
	"time"

	"github.com/storefront-labs/storefront-backend/internal/counters"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"gorm.io/gorm"
)

// Counts implements counters.Store on Postgres. The conditional update
// carries the version the engine read; zero affected rows means another
// writer got there first and the engine retries.
type Counts struct {
	db *gorm.DB
}

func NewCounts(db *gorm.DB) *Counts {
	return &Counts{db: db}
}

func (s *Counts) Get(ctx context.Context, id string) (*models.CountsDoc, error) {
	var doc models.CountsDoc
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, counters.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *Counts) Insert(ctx context.Context, doc *models.CountsDoc) error {
	doc.Version = 1
	doc.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *Counts) UpdateVersioned(ctx context.Context, doc *models.CountsDoc, expectedVersion int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CountsDoc{}).
		Where("id = ? AND version = ?", doc.ID, expectedVersion).
		Updates(map[string]interface{}{
			"total":      doc.All,
			"categories": doc.Categories,
			"version":    expectedVersion + 1,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
