package counters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/models"
)

// memStore is an in-memory counters.Store with an optional hook that fires
// before each versioned update, used to simulate concurrent writers.
type memStore struct {
	docs         map[string]*models.CountsDoc
	beforeUpdate func(s *memStore)
	inserts      int
	updates      int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*models.CountsDoc)}
}

func (s *memStore) Get(_ context.Context, id string) (*models.CountsDoc, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	cp.Categories = make(map[string]int, len(doc.Categories))
	for k, v := range doc.Categories {
		cp.Categories[k] = v
	}
	return &cp, nil
}

func (s *memStore) Insert(_ context.Context, doc *models.CountsDoc) error {
	s.inserts++
	doc.Version = 1
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *memStore) UpdateVersioned(_ context.Context, doc *models.CountsDoc, expectedVersion int) (bool, error) {
	if s.beforeUpdate != nil {
		s.beforeUpdate(s)
	}
	current, ok := s.docs[doc.ID]
	if !ok || current.Version != expectedVersion {
		return false, nil
	}
	s.updates++
	cp := *doc
	cp.Version = expectedVersion + 1
	s.docs[doc.ID] = &cp
	return true, nil
}

func TestApplyBootstrapsProductCounts(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store)

	err := engine.Apply(context.Background(), models.ProductCountsID, map[string]int{
		FieldAll:             1,
		models.CategoryShoes: 1,
	})
	require.NoError(t, err)

	doc := store.docs[models.ProductCountsID]
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.All)
	assert.Equal(t, map[string]int{
		models.CategoryClothing:    0,
		models.CategoryShoes:       1,
		models.CategoryWatches:     0,
		models.CategoryAccessories: 0,
	}, doc.Categories)
}

func TestApplySkipsDecrementOnAbsentDocument(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store)

	err := engine.Apply(context.Background(), models.OrderCountsID, map[string]int{FieldAll: -1})
	require.NoError(t, err)

	assert.Empty(t, store.docs)
	assert.Zero(t, store.inserts)
}

func TestApplyClampsAtZero(t *testing.T) {
	store := newMemStore()
	store.docs[models.ProductCountsID] = &models.CountsDoc{
		ID:         models.ProductCountsID,
		All:        1,
		Categories: map[string]int{models.CategoryWatches: 0},
		Version:    3,
	}
	engine := NewEngine(store)

	err := engine.Apply(context.Background(), models.ProductCountsID, map[string]int{
		FieldAll:               -1,
		models.CategoryWatches: -1,
	})
	require.NoError(t, err)

	doc := store.docs[models.ProductCountsID]
	assert.Equal(t, 0, doc.All)
	assert.Equal(t, 0, doc.Categories[models.CategoryWatches])
	assert.Equal(t, 4, doc.Version)
}

func TestApplyRetriesOnVersionConflict(t *testing.T) {
	store := newMemStore()
	store.docs[models.UserCountsID] = &models.CountsDoc{ID: models.UserCountsID, All: 5, Version: 1}

	// A concurrent writer lands once, exactly before our first attempt commits.
	raced := false
	store.beforeUpdate = func(s *memStore) {
		if raced {
			return
		}
		raced = true
		doc := s.docs[models.UserCountsID]
		doc.All++
		doc.Version++
	}

	engine := NewEngine(store)
	err := engine.Apply(context.Background(), models.UserCountsID, map[string]int{FieldAll: 1})
	require.NoError(t, err)

	doc := store.docs[models.UserCountsID]
	assert.Equal(t, 7, doc.All, "both the concurrent increment and ours must land")
	assert.Equal(t, 3, doc.Version)
}

func TestApplyGivesUpAfterBoundedAttempts(t *testing.T) {
	store := newMemStore()
	store.docs[models.UserCountsID] = &models.CountsDoc{ID: models.UserCountsID, Version: 1}

	// Every attempt loses the race.
	store.beforeUpdate = func(s *memStore) {
		s.docs[models.UserCountsID].Version++
	}

	engine := NewEngine(store)
	err := engine.Apply(context.Background(), models.UserCountsID, map[string]int{FieldAll: 1})
	require.ErrorIs(t, err, ErrContention)
}
