package revision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher announces committed rubric changes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// ChangeHandler reacts to a published change, e.g. by regrading submissions.
type ChangeHandler func(ctx context.Context, change Change) error

// NopPublisher ignores all changes.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Change) error {
	return nil
}

// MemoryPublisher records changes for tests.
type MemoryPublisher struct {
	mu      sync.Mutex
	changes []Change
	Err     error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{changes: []Change{}}
}

func (p *MemoryPublisher) Publish(_ context.Context, change Change) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	p.changes = append(p.changes, change)
	p.mu.Unlock()
	return nil
}

func (p *MemoryPublisher) Changes() []Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Change{}, p.changes...)
}

// Publishers fans a change out to every publisher and joins their errors.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, change Change) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LocalDispatcher runs a handler for each change in its own goroutine, for
// single-process deployments without Redis.
type LocalDispatcher struct {
	handler ChangeHandler
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewLocalDispatcher creates a dispatcher that gives each handler call up to timeout.
func NewLocalDispatcher(handler ChangeHandler, timeout time.Duration) *LocalDispatcher {
	return &LocalDispatcher{handler: handler, timeout: timeout}
}

func (d *LocalDispatcher) Publish(_ context.Context, change Change) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// The request context ends with the request; the handler outlives it.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.handler(ctx, change); err != nil {
			slog.Error("change handler failed",
				"assignment_id", change.AssignmentID,
				"new_version", change.NewVersion,
				"error", err,
			)
		}
	}()
	return nil
}

// Wait blocks until all dispatched handlers have returned.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

// StreamPublisher appends changes to a Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, change Change) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("stream publisher client is nil")
	}
	values, err := encodeChange(change)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// StreamConsumer reads changes from a Redis stream as part of a consumer group.
type StreamConsumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	block    time.Duration
}

// NewStreamConsumer creates a consumer named consumer in group.
func NewStreamConsumer(client *redis.Client, stream, group, consumer string) *StreamConsumer {
	return &StreamConsumer{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		block:    5 * time.Second,
	}
}

// Run consumes until ctx is done. A message is acked only after the handler
// succeeds, so failed regrades stay pending for another consumer.
func (c *StreamConsumer) Run(ctx context.Context, handler ChangeHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("stream consumer client is nil")
	}

	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	slog.Info("change stream consumer started", "stream", c.stream, "group", c.group, "consumer", c.consumer)
	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    10,
			Block:    c.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			slog.Warn("xreadgroup failed", "stream", c.stream, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.handle(ctx, msg, handler)
			}
		}
	}
}

func (c *StreamConsumer) handle(ctx context.Context, msg redis.XMessage, handler ChangeHandler) {
	change, err := decodeChange(msg.Values)
	if err != nil {
		// Poison message: ack so it does not block the group.
		slog.Error("dropping malformed change message", "id", msg.ID, "error", err)
		_ = c.client.XAck(ctx, c.stream, c.group, msg.ID).Err()
		return
	}

	if err := handler(ctx, change); err != nil {
		slog.Error("change handler failed",
			"id", msg.ID,
			"assignment_id", change.AssignmentID,
			"error", err,
		)
		return
	}

	if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		slog.Warn("xack failed", "id", msg.ID, "error", err)
	}
}

func encodeChange(change Change) (map[string]any, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return map[string]any{"data": string(data)}, nil
}

func decodeChange(values map[string]any) (Change, error) {
	raw, ok := values["data"].(string)
	if !ok {
		return Change{}, fmt.Errorf("missing data field")
	}
	var change Change
	if err := json.Unmarshal([]byte(raw), &change); err != nil {
		return Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if change.AssignmentID == "" {
		return Change{}, fmt.Errorf("change has no assignment_id")
	}
	return change, nil
}
