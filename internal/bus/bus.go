// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package bus implements the fan-out bus: an in-process, non-durable
// publish/subscribe fabric carrying alert and tick events
// from a replay session to any number of observers (the control API's
// WebSocket stream, metrics, future collaborators). Each subscriber gets
// its own bounded mailbox; a slow subscriber drops its own oldest queued
// message rather than blocking the producer or any other subscriber.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/aisentry/internal/aiserrors"
	"github.com/tomtom215/aisentry/internal/logging"
	"github.com/tomtom215/aisentry/internal/metrics"
)

// Topic is the single watermill topic all events publish to; message
// Kind distinguishes event types within it so subscribers can filter
// without needing multiple topic subscriptions.
const Topic = "ais.events"

// Kind is the closed enum of bus event kinds.
type Kind string

const (
	KindAlert Kind = "alert"
	KindTick  Kind = "tick"
	KindError Kind = "error"
)

// DefaultMailboxCapacity is the default bound on a subscriber's mailbox
// before drop-oldest kicks in.
const DefaultMailboxCapacity = 256

// Event is the payload carried on the bus.
type Event struct {
	Kind      Kind            `json:"kind"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

// Bus wraps a watermill gochannel pubsub with bounded, drop-oldest
// per-subscriber mailboxes.
type Bus struct {
	pubsub           *gochannel.GoChannel
	mailboxCapacity  int
	mu               sync.Mutex
	subscribers      map[string]*mailbox
}

// New creates a Bus. mailboxCapacity <= 0 uses DefaultMailboxCapacity.
func New(mailboxCapacity int) *Bus {
	if mailboxCapacity <= 0 {
		mailboxCapacity = DefaultMailboxCapacity
	}
	logger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            0,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	return &Bus{
		pubsub:          pubsub,
		mailboxCapacity: mailboxCapacity,
		subscribers:     make(map[string]*mailbox),
	}
}

// Publish emits an event to every current subscriber. It never blocks on
// a slow subscriber: watermill's gochannel topic itself is unbounded
// per-subscriber internally, so the bounding and drop-oldest policy is
// implemented by the per-subscriber mailbox pump below, not by watermill.
func (b *Bus) Publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return &aiserrors.PersistenceError{Op: "bus.Publish.marshal", Err: err}
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return &aiserrors.PersistenceError{Op: "bus.Publish", Err: err}
	}
	return nil
}

// Subscribe registers a new subscriber identified by name (used only for
// logging/metrics) and returns a channel of events plus an unsubscribe
// function. The returned channel is closed when ctx is cancelled or
// Unsubscribe is called.
func (b *Bus) Subscribe(ctx context.Context, name string) (<-chan Event, func(), error) {
	wmCtx, cancel := context.WithCancel(ctx)
	msgs, err := b.pubsub.Subscribe(wmCtx, Topic)
	if err != nil {
		cancel()
		return nil, nil, &aiserrors.PersistenceError{Op: "bus.Subscribe", Err: err}
	}

	mb := newMailbox(name, b.mailboxCapacity)
	b.mu.Lock()
	b.subscribers[mb.id] = mb
	b.mu.Unlock()

	go mb.pump(wmCtx, msgs)

	unsubscribe := func() {
		cancel()
		b.mu.Lock()
		delete(b.subscribers, mb.id)
		b.mu.Unlock()
	}
	return mb.out, unsubscribe, nil
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// DroppedTotal sums the drop-oldest count across the currently registered
// subscribers; drops counted by a subscriber that has since unsubscribed
// are not included.
func (b *Bus) DroppedTotal() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	for _, mb := range b.subscribers {
		total += mb.dropped.Load()
	}
	return total
}

// Close shuts down the underlying pubsub. Any active subscriber channels
// are closed.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// String satisfies suture.Service for supervised restart; the bus itself
// does not run a loop so Serve only waits for cancellation, but it is
// listed here so the supervisor tree can track its lifetime alongside
// the driver and websocket hub.
type Service struct {
	Bus *Bus
}

func (s *Service) Serve(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *Service) String() string {
	return "bus.Service"
}

// mailbox adapts an unbounded watermill message channel into a bounded,
// drop-oldest event channel for a single subscriber, so one slow
// consumer never backs up the producer or other subscribers.
type mailbox struct {
	id      string
	name    string
	out     chan Event
	dropped atomic.Int64
}

func newMailbox(name string, capacity int) *mailbox {
	return &mailbox{
		id:   fmt.Sprintf("%s-%s", name, uuid.NewString()),
		name: name,
		out:  make(chan Event, capacity),
	}
}

func (mb *mailbox) pump(ctx context.Context, in <-chan *message.Message) {
	defer close(mb.out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logging.Error().Err(err).Str("subscriber", mb.name).Msg("bus: dropping undecodable message")
				msg.Ack()
				continue
			}
			mb.deliver(event)
			msg.Ack()
		}
	}
}

func (mb *mailbox) deliver(event Event) {
	select {
	case mb.out <- event:
		return
	default:
	}
	// Mailbox full: drop the oldest queued event to make room, never
	// block the producer.
	select {
	case <-mb.out:
		mb.dropped.Add(1)
		metrics.RecordBusDropped()
	default:
	}
	select {
	case mb.out <- event:
	default:
		// Lost a race with another drain; give up silently rather than
		// spin, the next Publish will try again.
	}
}

// TickInterval is how often the replay driver emits progress ticks
// absent an end-of-source event: every 100 points.
const TickInterval = 100
