// Package events publishes storefront activity to Kafka.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/hat_shop/internal/logging"
)

const (
	TopicCart   = "cart_events"
	TopicOrders = "order_events"
	TopicViews  = "view_events"
)

var Topics = []string{TopicCart, TopicOrders, TopicViews}

const (
	CartItemAdded   = "cart_item_added"
	CartItemUpdated = "cart_item_updated"
	CartItemRemoved = "cart_item_removed"
	CartCleared     = "cart_cleared"
	OrderCreated    = "order_created"
	ProductViewed   = "product_viewed"
)

const publishTimeout = 5 * time.Second

type Event struct {
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

// Emit publishes ev keyed by its session id. Delivery is best effort: a
// failure is logged and never returned to the caller.
func Emit(ctx context.Context, p Publisher, topic string, ev Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, topic, ev.SessionID, ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_error", "topic", topic, "type", ev.Type, "error", err)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, Event) error { return nil }
func (Nop) Close() error                                         { return nil }

type Recorded struct {
	Topic string
	Key   string
	Event Event
}

// Recorder keeps published events in memory. Err, when set, is returned
// from every Publish after the event is recorded.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

func (r *Recorder) Publish(_ context.Context, topic, key string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Topic: topic, Key: key, Event: event})
	return r.Err
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event.Type)
	}
	return out
}
