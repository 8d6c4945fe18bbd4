package reactors

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/counters"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/outbox"
	"github.com/storefront-labs/storefront-backend/internal/stream"
)

type fakeProvisioner struct {
	calls    int
	remoteID string
	prices   map[string]string
	err      error
}

func (f *fakeProvisioner) ProvisionRecurringProduct(_ context.Context, _ *models.Product) (string, map[string]string, error) {
	f.calls++
	if f.err != nil {
		return "", nil, f.err
	}
	return f.remoteID, f.prices, nil
}

type subscriptionMerge struct {
	id       uuid.UUID
	remoteID string
	prices   map[string]string
}

type fakeProductWriter struct {
	merges []subscriptionMerge
}

func (f *fakeProductWriter) MergeSubscription(_ context.Context, id uuid.UUID, remoteID string, prices map[string]string) error {
	f.merges = append(f.merges, subscriptionMerge{id: id, remoteID: remoteID, prices: prices})
	return nil
}

func TestProductCreatedCountsProvisionsAndMirrors(t *testing.T) {
	cnt := &fakeCounters{}
	ob := &fakeOutbox{}
	writer := &fakeProductWriter{}
	prov := &fakeProvisioner{
		remoteID: "prod_123",
		prices:   map[string]string{"day": "price_d", "week": "price_w", "month": "price_m"},
	}

	r := NewProductReactor(cnt, ob, writer, prov)

	p := &models.Product{ID: uuid.New(), Title: "Denim Jacket", Category: models.CategoryClothing, Price: 80}
	err := r.Handle(context.Background(), productEvent(t, stream.EventCreate, nil, p))
	require.NoError(t, err)

	require.Len(t, cnt.applied, 1)
	assert.Equal(t, models.ProductCountsID, cnt.applied[0].docID)
	assert.Equal(t, map[string]int{counters.FieldAll: 1, models.CategoryClothing: 1}, cnt.applied[0].deltas)

	assert.Equal(t, []string{outbox.KindSearchUpsert}, ob.kinds())

	assert.Equal(t, 1, prov.calls)
	require.Len(t, writer.merges, 1)
	assert.Equal(t, p.ID, writer.merges[0].id)
	assert.Equal(t, "prod_123", writer.merges[0].remoteID)
	assert.Equal(t, prov.prices, writer.merges[0].prices)
}

func TestProvisionSkipsCompletedProducts(t *testing.T) {
	prov := &fakeProvisioner{}
	writer := &fakeProductWriter{}
	r := NewProductReactor(&fakeCounters{}, &fakeOutbox{}, writer, prov)

	p := &models.Product{ID: uuid.New(), Provisioning: models.ProvisioningComplete}
	require.NoError(t, r.Provision(context.Background(), p))
	assert.Zero(t, prov.calls)
	assert.Empty(t, writer.merges)
}

func TestProvisionPropagatesGatewayFailure(t *testing.T) {
	prov := &fakeProvisioner{err: errors.New("gateway down")}
	writer := &fakeProductWriter{}
	r := NewProductReactor(&fakeCounters{}, &fakeOutbox{}, writer, prov)

	p := &models.Product{ID: uuid.New(), Provisioning: models.ProvisioningPending}
	err := r.Provision(context.Background(), p)
	require.Error(t, err)
	assert.Empty(t, writer.merges, "nothing merged when provisioning fails")
}

func TestProductCategoryMoveShiftsTwoCounters(t *testing.T) {
	cnt := &fakeCounters{}
	ob := &fakeOutbox{}
	r := NewProductReactor(cnt, ob, &fakeProductWriter{}, &fakeProvisioner{})

	before := &models.Product{ID: uuid.New(), Title: "Chrono", Category: models.CategoryWatches}
	after := *before
	after.Category = models.CategoryAccessories

	err := r.Handle(context.Background(), productEvent(t, stream.EventUpdate, before, &after))
	require.NoError(t, err)

	require.Len(t, cnt.applied, 1)
	assert.Equal(t, map[string]int{
		models.CategoryWatches:     -1,
		models.CategoryAccessories: 1,
	}, cnt.applied[0].deltas, "the collection total stays untouched on a move")
	assert.Equal(t, []string{outbox.KindSearchUpsert}, ob.kinds())
}

func TestProductUpdateWithoutCategoryChangeOnlyMirrors(t *testing.T) {
	cnt := &fakeCounters{}
	ob := &fakeOutbox{}
	r := NewProductReactor(cnt, ob, &fakeProductWriter{}, &fakeProvisioner{})

	before := &models.Product{ID: uuid.New(), Title: "Chrono", Category: models.CategoryWatches, Price: 120}
	after := *before
	after.Price = 99

	err := r.Handle(context.Background(), productEvent(t, stream.EventUpdate, before, &after))
	require.NoError(t, err)

	assert.Empty(t, cnt.applied)
	assert.Equal(t, []string{outbox.KindSearchUpsert}, ob.kinds())
}

func TestProductDeletedDecrementsAndRemovesFromIndex(t *testing.T) {
	cnt := &fakeCounters{}
	ob := &fakeOutbox{}
	r := NewProductReactor(cnt, ob, &fakeProductWriter{}, &fakeProvisioner{})

	p := &models.Product{ID: uuid.New(), Title: "Chrono", Category: models.CategoryWatches}
	err := r.Handle(context.Background(), productEvent(t, stream.EventDelete, p, nil))
	require.NoError(t, err)

	require.Len(t, cnt.applied, 1)
	assert.Equal(t, map[string]int{counters.FieldAll: -1, models.CategoryWatches: -1}, cnt.applied[0].deltas)
	assert.Equal(t, []string{outbox.KindSearchDelete}, ob.kinds())
}
