// Package redis publishes session events to a Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/flowstream/pkg/eventstream"
)

// DefaultMaxLen approximately caps the stream length.
const DefaultMaxLen = 10_000

// Config configures a Redis stream publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// Publisher appends SessionEndedEvents to a stream with XADD.
type Publisher struct {
	client *goredis.Client
	stream string
	maxLen int64
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return NewPublisherWithClient(client, cfg)
}

// NewPublisherWithClient wraps an existing client. The publisher owns it.
func NewPublisherWithClient(client *goredis.Client, cfg Config) (*Publisher, error) {
	if cfg.Stream == "" {
		return nil, errors.New("redis stream name is required")
	}
	maxLen := cfg.MaxLen
	if maxLen == 0 {
		maxLen = DefaultMaxLen
	}

	return &Publisher{client: client, stream: cfg.Stream, maxLen: maxLen}, nil
}

// PublishSessionEnded appends the event to the stream.
func (p *Publisher) PublishSessionEnded(ctx context.Context, event *eventstream.SessionEndedEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	args, err := XAddArgs(p.stream, p.maxLen, event)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// XAddArgs builds the XADD call for event. A negative maxLen leaves the
// stream uncapped.
func XAddArgs(stream string, maxLen int64, event *eventstream.SessionEndedEvent) (*goredis.XAddArgs, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal session event: %w", err)
	}

	args := &goredis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event_type": event.EventType,
			"event_id":   event.EventID,
			"thread_id":  event.Session.ThreadID,
			"event":      string(raw),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args, nil
}
