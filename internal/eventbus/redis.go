// Package eventbus delivers external events over Redis pub/sub. Home
// automation bridges publish state changes and refresh requests to
// per-event-type channels; the event handler subscribes to them.
package eventbus

import (
	"context"
	"encoding/json"

	"splitflap/internal/logger"
	"splitflap/internal/service"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "splitflap:events:"

// RedisBus implements service.EventSource on top of Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger
}

func New(addr, password string, db int, log *logger.Logger) *RedisBus {
	return &RedisBus{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		log: log,
	}
}

// Ping verifies connectivity at startup.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Subscribe registers a handler for one event type. Payloads that fail to
// decode are logged and dropped; the subscription keeps running. The returned
// func cancels the subscription.
func (b *RedisBus) Subscribe(eventType string, handler func(service.Event)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, channelPrefix+eventType)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	go func() {
		for msg := range pubsub.Channel() {
			var ev service.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warnw("event payload dropped: bad JSON", "channel", msg.Channel, "err", err)
				continue
			}
			if ev.EventType == "" {
				ev.EventType = eventType
			}
			handler(ev)
		}
	}()

	return func() {
		cancel()
		_ = pubsub.Close()
	}, nil
}

// Publish pushes an event onto its type channel. Used by bridges and tests.
func (b *RedisBus) Publish(ctx context.Context, ev service.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+ev.EventType, payload).Err()
}

// Close shuts down the underlying client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
