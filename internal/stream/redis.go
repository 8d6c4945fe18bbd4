package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	streamPrefix = "storefront:changes:"
	group        = "reactors"
	readBlock    = 5 * time.Second
	readCount    = 16
)

func streamKey(collection string) string { return streamPrefix + collection }

// RedisPublisher appends change events to one Redis stream per collection.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}

	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(ev.Collection),
		Values: map[string]interface{}{"event": body},
	}).Err()
}

// Consumer delivers each stream entry to the reactor bound to its
// collection through a consumer group: at-least-once, one reactor per
// event, no ordering across documents. Entries are acked after the handler
// returns whether or not it errored; handler errors are logged and sent to
// Sentry, never retried.
type Consumer struct {
	rdb      *redis.Client
	name     string
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewConsumer(rdb *redis.Client, name string) *Consumer {
	return &Consumer{
		rdb:      rdb,
		name:     name,
		handlers: make(map[string]Handler),
	}
}

// Bind registers the reactor for a collection. Must be called before Run.
func (c *Consumer) Bind(collection string, h Handler) {
	c.handlers[collection] = h
}

// Run blocks until ctx is cancelled. On startup the consumer first drains
// its pending-entries list so events delivered before a crash are
// reprocessed.
func (c *Consumer) Run(ctx context.Context) error {
	streams := make([]string, 0, len(c.handlers))
	for collection := range c.handlers {
		key := streamKey(collection)
		if err := c.rdb.XGroupCreateMkStream(ctx, key, group, "0").Err(); err != nil &&
			!strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create consumer group for %s: %w", key, err)
		}
		streams = append(streams, key)
	}

	c.drainPending(ctx, streams)

	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	for {
		res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: c.name,
			Streams:  args,
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				c.wg.Wait()
				return ctx.Err()
			}
			slog.Error("change stream read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				c.wg.Add(1)
				go c.dispatch(ctx, s.Stream, msg)
			}
		}
	}
}

func (c *Consumer) drainPending(ctx context.Context, streams []string) {
	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, "0")
	}

	// One pass is enough: anything still unacked after it will be picked up
	// on the next restart.
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: c.name,
		Streams:  args,
		Count:    1024,
	}).Result()
	if err != nil {
		return
	}

	for _, s := range res {
		for _, msg := range s.Messages {
			c.wg.Add(1)
			go c.dispatch(ctx, s.Stream, msg)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, streamName string, msg redis.XMessage) {
	defer c.wg.Done()
	defer c.rdb.XAck(ctx, streamName, group, msg.ID)

	raw, ok := msg.Values["event"].(string)
	if !ok {
		slog.Error("malformed stream entry", "stream", streamName, "entry_id", msg.ID)
		return
	}

	var ev ChangeEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		slog.Error("failed to decode change event", "stream", streamName, "entry_id", msg.ID, "error", err)
		return
	}

	handler, ok := c.handlers[ev.Collection]
	if !ok {
		return
	}

	if err := handler(ctx, ev); err != nil {
		slog.Error("reaction failed",
			"collection", ev.Collection,
			"doc_id", ev.DocID,
			"event_id", ev.ID,
			"action", string(ev.Type),
			"error", err.Error())
		sentry.CaptureException(err)
	}
}
