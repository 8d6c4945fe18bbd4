package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/search"
)

type searchCall struct {
	op       string
	index    string
	objectID string
	body     []byte
}

type fakeSearcher struct {
	calls []searchCall
	err   error
}

func (f *fakeSearcher) Upsert(_ context.Context, index, objectID string, body []byte) error {
	f.calls = append(f.calls, searchCall{op: "upsert", index: index, objectID: objectID, body: body})
	return f.err
}

func (f *fakeSearcher) Delete(_ context.Context, index, objectID string) error {
	f.calls = append(f.calls, searchCall{op: "delete", index: index, objectID: objectID})
	return f.err
}

type fakeShipper struct {
	created   []string
	cancelled []string
}

func (f *fakeShipper) CreateShipment(_ context.Context, orderID string, _ *models.Order) error {
	f.created = append(f.created, orderID)
	return nil
}

func (f *fakeShipper) CancelShipment(_ context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func entryOf(t *testing.T, kind string, payload interface{}) *models.OutboxEntry {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.OutboxEntry{ID: uuid.New(), Kind: kind, Payload: raw}
}

func TestExecuteDispatchesSearchUpsert(t *testing.T) {
	searcher := &fakeSearcher{}
	w := NewWorker(nil, searcher, &fakeShipper{})

	entry := entryOf(t, KindSearchUpsert, SearchUpsertPayload{
		Index:    search.IndexProducts,
		ObjectID: "p1",
		Body:     json.RawMessage(`{"title": "Denim Jacket"}`),
	})
	require.NoError(t, w.execute(context.Background(), entry))

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, "upsert", searcher.calls[0].op)
	assert.Equal(t, search.IndexProducts, searcher.calls[0].index)
	assert.Equal(t, "p1", searcher.calls[0].objectID)
	assert.JSONEq(t, `{"title": "Denim Jacket"}`, string(searcher.calls[0].body))
}

func TestExecuteDispatchesShipmentKinds(t *testing.T) {
	shipper := &fakeShipper{}
	w := NewWorker(nil, &fakeSearcher{}, shipper)

	orderID := uuid.NewString()
	create := entryOf(t, KindShipmentCreate, ShipmentCreatePayload{OrderID: orderID, Order: models.Order{Amount: 10}})
	cancel := entryOf(t, KindShipmentCancel, ShipmentCancelPayload{OrderID: orderID})

	require.NoError(t, w.execute(context.Background(), create))
	require.NoError(t, w.execute(context.Background(), cancel))

	assert.Equal(t, []string{orderID}, shipper.created)
	assert.Equal(t, []string{orderID}, shipper.cancelled)
}

func TestExecuteRejectsUnknownKindAndMalformedPayload(t *testing.T) {
	w := NewWorker(nil, &fakeSearcher{}, &fakeShipper{})

	unknown := &models.OutboxEntry{ID: uuid.New(), Kind: "fax-machine", Payload: []byte(`{}`)}
	require.Error(t, w.execute(context.Background(), unknown))

	malformed := &models.OutboxEntry{ID: uuid.New(), Kind: KindSearchUpsert, Payload: []byte(`not json`)}
	require.Error(t, w.execute(context.Background(), malformed))
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	assert.Equal(t, 10*time.Second, backoff(1))
	assert.Equal(t, 20*time.Second, backoff(2))
	assert.Equal(t, 40*time.Second, backoff(3))
	assert.Equal(t, 80*time.Second, backoff(4))

	// Enough doublings always land on the cap.
	assert.Equal(t, time.Hour, backoff(10))
	assert.Equal(t, time.Hour, backoff(100))
}
