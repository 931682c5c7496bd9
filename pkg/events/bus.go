// Package events is the in-process fan-out between the realtime bridge, the
// portal and anything streaming state to a front end.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ClassUpdated        = "class.updated"
	BookingUpdated      = "booking.updated"
	AvailabilityUpdated = "availability.updated"
	AuthChanged         = "auth.changed"
	LocationChanged     = "location.changed"
	StateChanged        = "state.changed"
	RealtimeStatus      = "realtime.status"
)

const DefaultBuffer = 16

type Event struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	Source string          `json:"source,omitempty"`
	At     time.Time       `json:"at"`
}

// New builds an event, encoding data unless it is already raw JSON.
func New(eventType, source string, data any) Event {
	var raw json.RawMessage
	switch v := data.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	case []byte:
		raw = json.RawMessage(v)
	default:
		if b, err := json.Marshal(v); err == nil {
			raw = b
		}
	}
	return Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		Data:   raw,
		Source: source,
		At:     time.Now().UTC(),
	}
}

type subscriber struct {
	ch    chan Event
	types map[string]struct{}
}

func (s *subscriber) wants(t string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus delivers events to buffered subscriber channels. Publish never blocks;
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
	onDrop func(Event)
}

type Option func(*Bus)

func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithDropHook is called for every event a slow subscriber missed.
func WithDropHook(fn func(Event)) Option {
	return func(b *Bus) { b.onDrop = fn }
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[*subscriber]struct{}),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers for the given types (all types when none are given).
// The cancel func unregisters and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(types ...string) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, b.buffer)}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel
}

func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		if !s.wants(evt.Type) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			if b.onDrop != nil {
				b.onDrop(evt)
			}
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
