// Package realtime turns pushed marketplace changes into bus events. It keeps
// one subscription per channel, scopes class updates to the selected city
// and watches backend liveness.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"yogaportal/pkg/events"
	"yogaportal/pkg/kafka"
	"yogaportal/pkg/logger"
	"yogaportal/pkg/metrics"
	"yogaportal/pkg/model"
)

type Status string

const (
	Connecting   Status = "connecting"
	Connected    Status = "connected"
	Disconnected Status = "disconnected"
)

const (
	ChannelClasses      = "classes"
	ChannelBookings     = "bookings"
	ChannelAvailability = "availability"
	ChannelAuth         = "auth"
)

const DefaultLivenessInterval = 30 * time.Second

var ErrAlreadyStarted = errors.New("realtime bridge already started")

// Prober answers liveness checks. The marketplace client's Health does.
type Prober interface {
	Health(ctx context.Context) error
}

type AuthHandler interface {
	HandleAuthEvent(ctx context.Context, evt model.AuthEvent)
}

// Sink receives a copy of every forwarded event. *kafka.Producer is one.
type Sink interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Invalidator drops cached reads a forwarded change makes stale.
type Invalidator interface {
	InvalidatePushed(eventType string) int
}

type Topics struct {
	Classes      string
	Bookings     string
	Availability string
	Auth         string
}

type Options struct {
	Topics           Topics
	LivenessInterval time.Duration
	Auth             AuthHandler
	Sink             Sink
	Cache            Invalidator
	OnStatus         func(Status)
}

type Bridge struct {
	sub   Subscriber
	bus   *events.Bus
	probe Prober
	log   *logger.Logger
	opts  Options

	// scope is read by message handlers, which must never wait on mu:
	// closing a subscription under mu waits for its handler to return.
	scope atomic.Value

	mu      sync.Mutex
	status  Status
	primary Subscription
	subs    []Subscription
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(sub Subscriber, bus *events.Bus, probe Prober, log *logger.Logger, opts Options) *Bridge {
	if opts.LivenessInterval <= 0 {
		opts.LivenessInterval = DefaultLivenessInterval
	}
	b := &Bridge{
		sub:    sub,
		bus:    bus,
		probe:  probe,
		log:    log.Component("realtime"),
		opts:   opts,
		status: Disconnected,
	}
	b.scope.Store("")
	return b
}

// Start opens the channels scoped to location and starts the liveness probe
// and the location watcher. It returns ErrAlreadyStarted on a second call.
func (b *Bridge) Start(ctx context.Context, location string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return ErrAlreadyStarted
	}
	b.running = true
	b.runCtx, b.cancel = context.WithCancel(ctx)

	// subscribe before the first probe so a healthy start reads Connected
	locations, unsubscribe := b.bus.Subscribe(events.LocationChanged)

	b.scope.Store(location)
	b.openLocked(b.runCtx)

	b.wg.Add(2)
	go b.probeLoop(b.runCtx)
	go b.watchLocation(b.runCtx, locations, unsubscribe)

	b.log.Info("Realtime bridge started", "location", location, "status", b.status)
	return nil
}

// Rescope closes every subscription and reopens them for location.
func (b *Bridge) Rescope(ctx context.Context, location string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		b.scope.Store(location)
		return
	}

	b.closeLocked()
	b.scope.Store(location)
	b.openLocked(ctx)

	b.log.Info("Realtime bridge rescoped", "location", location, "status", b.status)
}

// Stop tears everything down and waits for the background goroutines.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	b.closeLocked()
	b.setStatusLocked(Disconnected)
	b.running = false
	b.mu.Unlock()

	b.log.Info("Realtime bridge stopped")
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Bridge) Scope() string {
	return b.scope.Load().(string)
}

func (b *Bridge) openLocked(ctx context.Context) {
	b.setStatusLocked(Connecting)

	primary, err := b.sub.Subscribe(ctx, b.opts.Topics.Classes, b.forward(ChannelClasses, events.ClassUpdated, true))
	if err != nil {
		b.log.Warn("Class updates subscription failed", "topic", b.opts.Topics.Classes, "error", err)
	} else {
		b.primary = primary
		b.subs = append(b.subs, primary)
	}

	secondary := []struct {
		channel string
		topic   string
		handler Handler
	}{
		{ChannelBookings, b.opts.Topics.Bookings, b.forward(ChannelBookings, events.BookingUpdated, false)},
		{ChannelAvailability, b.opts.Topics.Availability, b.forward(ChannelAvailability, events.AvailabilityUpdated, false)},
	}
	if b.opts.Auth != nil {
		secondary = append(secondary, struct {
			channel string
			topic   string
			handler Handler
		}{ChannelAuth, b.opts.Topics.Auth, b.handleAuth})
	}

	for _, s := range secondary {
		if s.topic == "" {
			continue
		}
		sub, err := b.sub.Subscribe(ctx, s.topic, s.handler)
		if err != nil {
			b.log.Warn("Subscription failed", "channel", s.channel, "topic", s.topic, "error", err)
			continue
		}
		b.subs = append(b.subs, sub)
	}

	if b.primary != nil {
		b.setStatusLocked(Connected)
	} else {
		b.setStatusLocked(Disconnected)
	}
}

func (b *Bridge) closeLocked() {
	for _, sub := range b.subs {
		if err := sub.Close(); err != nil {
			b.log.Warn("Failed to close subscription", "error", err)
		}
	}
	b.subs = nil
	b.primary = nil
}

func (b *Bridge) setStatusLocked(status Status) {
	if b.status == status {
		return
	}
	prev := b.status
	b.status = status

	metrics.SetRealtimeConnected(status == Connected)
	b.bus.Publish(events.New(events.RealtimeStatus, "realtime", map[string]string{"status": string(status)}))
	if b.opts.OnStatus != nil {
		b.opts.OnStatus(status)
	}
	b.log.Debug("Realtime status changed", "from", prev, "to", status)
}

// probeLoop never stops on failure; it only stops with the bridge.
func (b *Bridge) probeLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.opts.LivenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.probeOnce(ctx)
		}
	}
}

func (b *Bridge) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, b.opts.LivenessInterval)
	err := b.probe.Health(probeCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		if b.status == Connected {
			b.log.Warn("Liveness probe failed", "error", err)
		}
		b.setStatusLocked(Disconnected)
		return
	}

	if b.primary == nil {
		// the primary channel never came up; try the whole set again
		b.closeLocked()
		b.openLocked(ctx)
		return
	}
	b.setStatusLocked(Connected)
}

func (b *Bridge) watchLocation(ctx context.Context, locations <-chan events.Event, unsubscribe func()) {
	defer b.wg.Done()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-locations:
			if !ok {
				return
			}
			var loc model.Location
			if err := json.Unmarshal(evt.Data, &loc); err != nil {
				b.log.Warn("Malformed location event", "error", err)
				continue
			}
			if loc.Slug != "" && loc.Slug != b.Scope() {
				b.Rescope(ctx, loc.Slug)
			}
		}
	}
}

// forward republishes a pushed payload on the bus as is. Scoped channels
// drop payloads for another city.
func (b *Bridge) forward(channel, eventType string, scoped bool) Handler {
	return func(ctx context.Context, in Inbound) error {
		if scoped {
			if scope := b.Scope(); scope != "" && in.Location != "" && in.Location != scope {
				metrics.RecordRealtimeMessage(channel, "dropped")
				return nil
			}
		}
		if len(in.Data) == 0 || !json.Valid(in.Data) {
			metrics.RecordRealtimeMessage(channel, "invalid")
			return kafka.NewPermanentError(fmt.Sprintf("%s payload is not JSON", channel), kafka.ErrInvalidMessage)
		}

		// stale reads go before subscribers hear about the change
		if b.opts.Cache != nil {
			b.opts.Cache.InvalidatePushed(eventType)
		}
		evt := events.New(eventType, "realtime", in.Data)
		b.bus.Publish(evt)
		b.mirror(ctx, evt, in.Location)

		metrics.RecordRealtimeMessage(channel, "forwarded")
		return nil
	}
}

func (b *Bridge) handleAuth(ctx context.Context, in Inbound) error {
	var evt model.AuthEvent
	if err := json.Unmarshal(in.Data, &evt); err != nil || evt.Type == "" {
		metrics.RecordRealtimeMessage(ChannelAuth, "invalid")
		return kafka.NewPermanentError("auth payload is malformed", kafka.ErrInvalidMessage)
	}
	// auth messages are keyed by user id
	if evt.UserID == "" {
		evt.UserID = in.Key
	}

	b.opts.Auth.HandleAuthEvent(ctx, evt)
	metrics.RecordRealtimeMessage(ChannelAuth, "forwarded")
	return nil
}

func (b *Bridge) mirror(ctx context.Context, evt events.Event, location string) {
	if b.opts.Sink == nil {
		return
	}
	msg := kafka.NewMessage().
		WithKey(evt.ID).
		WithEventID(evt.ID).
		WithEventType(evt.Type).
		WithLocation(location).
		WithSource("portal-realtime").
		WithRawValue(evt.Data).
		Build()

	if err := b.opts.Sink.Publish(ctx, msg); err != nil {
		b.log.Warn("Failed to mirror event", "type", evt.Type, "error", err)
	}
}
