package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"infinite-experiment/reconboard/internal/constants"
)

// RunEvent is emitted once a reconciliation run reaches SUCCESS or FAILED.
type RunEvent struct {
	ReconciliationID   string    `json:"reconciliationId"`
	Status             string    `json:"status"`
	ExecutionTimestamp string    `json:"executionTimestamp,omitempty"`
	Message            string    `json:"message,omitempty"`
	ObservedAt         time.Time `json:"observedAt"`
}

// Type names the event for stream consumers.
func (e RunEvent) Type() string {
	if e.Status == "SUCCESS" {
		return constants.RunEventSucceeded
	}
	return constants.RunEventFailed
}

type RunEventPublisher interface {
	PublishRunEvent(ctx context.Context, event RunEvent) error
}

// NopRunEventPublisher drops events when Redis is disabled.
type NopRunEventPublisher struct{}

func (NopRunEventPublisher) PublishRunEvent(context.Context, RunEvent) error { return nil }

// RedisRunEventPublisher appends events to a Redis stream, capped at MaxLen entries.
type RedisRunEventPublisher struct {
	client *redis.Client
	stream string
	MaxLen int64
}

func NewRedisRunEventPublisher(client *redis.Client, stream string) *RedisRunEventPublisher {
	return &RedisRunEventPublisher{
		client: client,
		stream: stream,
		MaxLen: 10000,
	}
}

// PublishRunEvent performs XADD stream MAXLEN ~ n * data <json>.
func (p *RedisRunEventPublisher) PublishRunEvent(ctx context.Context, event RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.MaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":              event.Type(),
			"reconciliation_id": event.ReconciliationID,
			"status":            event.Status,
			"data":              string(data),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream %s: %w", p.stream, err)
	}
	return nil
}

// StreamLength returns the number of events currently held in the stream.
func (p *RedisRunEventPublisher) StreamLength(ctx context.Context) (int64, error) {
	length, err := p.client.XLen(ctx, p.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get stream length: %w", err)
	}
	return length, nil
}
