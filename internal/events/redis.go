package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel shared by all instances.
const Channel = "credits:events"

// RedisBridge publishes balance events to Redis and replays events from other
// instances onto the local Bus.
type RedisBridge struct {
	client   *redis.Client
	bus      *Bus
	logger   *slog.Logger
	instance string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBridge creates a bridge for bus. Call Start to begin receiving.
func NewRedisBridge(client *redis.Client, bus *Bus, logger *slog.Logger) *RedisBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBridge{
		client:   client,
		bus:      bus,
		logger:   logger.With("component", "events_bridge"),
		instance: uuid.NewString(),
	}
}

// Instance returns the origin tag this bridge stamps on outgoing events.
func (r *RedisBridge) Instance() string {
	return r.instance
}

// Start subscribes to Channel and forwards remote events until Stop is called.
// It returns once the subscription is confirmed.
func (r *RedisBridge) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.handle(msg.Payload)
			}
		}
	}()

	r.logger.Info("bridge_started", "channel", Channel, "instance", r.instance)
	return nil
}

func (r *RedisBridge) handle(payload string) {
	var evt BalanceEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		r.logger.Warn("bridge_decode_failed", "error", err)
		return
	}
	if evt.Origin == r.instance {
		return
	}
	r.bus.Publish(evt)
}

// Publish delivers evt locally and fans it out to other instances. Redis
// failures are logged and do not affect local delivery.
func (r *RedisBridge) Publish(ctx context.Context, evt BalanceEvent) {
	evt.Origin = r.instance
	r.bus.Publish(evt)

	data, err := json.Marshal(evt)
	if err != nil {
		r.logger.Warn("bridge_encode_failed", "error", err)
		return
	}
	if err := r.client.Publish(ctx, Channel, data).Err(); err != nil {
		r.logger.Warn("bridge_publish_failed", "user_id", evt.UserID, "error", err)
	}
}

// Stop ends the receive loop and waits for it to exit.
func (r *RedisBridge) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// LocalPublisher publishes onto a Bus only. It is used when Redis fan-out is
// not wanted, such as in tests and the CLI.
type LocalPublisher struct {
	Bus *Bus
}

// Publish delivers evt to local subscribers.
func (p LocalPublisher) Publish(_ context.Context, evt BalanceEvent) {
	if p.Bus != nil {
		p.Bus.Publish(evt)
	}
}

// Publisher is implemented by RedisBridge and LocalPublisher.
type Publisher interface {
	Publish(ctx context.Context, evt BalanceEvent)
}
