package reactors

import (
	"context"
	"fmt"

	"github.com/storefront-labs/storefront-backend/internal/counters"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/outbox"
	"github.com/storefront-labs/storefront-backend/internal/search"
	"github.com/storefront-labs/storefront-backend/internal/stream"
)

// UserReactor keeps the user counter and the users search index in step
// with the users collection.
type UserReactor struct {
	counters CounterEngine
	outbox   Enqueuer
}

func NewUserReactor(counters CounterEngine, outbox Enqueuer) *UserReactor {
	return &UserReactor{counters: counters, outbox: outbox}
}

func (r *UserReactor) Handle(ctx context.Context, ev stream.ChangeEvent) error {
	switch ev.Type {
	case stream.EventCreate:
		return r.created(ctx, ev)
	case stream.EventUpdate:
		return r.updated(ctx, ev)
	case stream.EventDelete:
		return r.deleted(ctx, ev)
	}
	return nil
}

func (r *UserReactor) created(ctx context.Context, ev stream.ChangeEvent) error {
	if err := r.counters.Apply(ctx, models.UserCountsID, map[string]int{counters.FieldAll: 1}); err != nil {
		return fmt.Errorf("user counter increment: %w", err)
	}
	return r.outbox.Enqueue(ctx, outbox.KindSearchUpsert, outbox.SearchUpsertPayload{
		Index: search.IndexUsers, ObjectID: ev.DocID, Body: ev.After,
	})
}

func (r *UserReactor) updated(ctx context.Context, ev stream.ChangeEvent) error {
	return r.outbox.Enqueue(ctx, outbox.KindSearchUpsert, outbox.SearchUpsertPayload{
		Index: search.IndexUsers, ObjectID: ev.DocID, Body: ev.After,
	})
}

func (r *UserReactor) deleted(ctx context.Context, ev stream.ChangeEvent) error {
	if err := r.counters.Apply(ctx, models.UserCountsID, map[string]int{counters.FieldAll: -1}); err != nil {
		return fmt.Errorf("user counter decrement: %w", err)
	}
	return r.outbox.Enqueue(ctx, outbox.KindSearchDelete, outbox.SearchDeletePayload{
		Index: search.IndexUsers, ObjectID: ev.DocID,
	})
}
