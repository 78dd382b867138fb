package gps

import (
	"log/slog"
	"sync"

	"github.com/Bucknalla/go-route-simulator/log"
)

// DefaultEventBufferSize is the per-subscriber buffer of an EventBus.
const DefaultEventBufferSize = 64

// EventBus broadcasts events to every current subscriber. Publishing never
// blocks: when a subscriber's buffer is full its oldest pending event is
// dropped to make room. Subscribers only see events published after they
// subscribed. Delivery is best effort.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	lg          *log.Logger
}

// Subscription is one subscriber's view of an EventBus.
type Subscription struct {
	bus     *EventBus
	ch      chan Event
	once    sync.Once
	dropped int
}

func NewEventBus(lg *log.Logger) *EventBus {
	return NewEventBusWithBuffer(DefaultEventBufferSize, lg)
}

func NewEventBusWithBuffer(size int, lg *log.Logger) *EventBus {
	if size < 1 {
		size = 1
	}
	return &EventBus{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  size,
		lg:          lg,
	}
}

// Subscribe registers a new subscriber.
func (b *EventBus) Subscribe() *Subscription {
	sub := &Subscription{bus: b, ch: make(chan Event, b.bufferSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = struct{}{}
	return sub
}

// Publish delivers e to all subscribers without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lg.Debug("publishing event", slog.String("event", EventName(e)), slog.Any("payload", e))

	for sub := range b.subscribers {
		for {
			select {
			case sub.ch <- e:
			default:
				// Full: discard the oldest pending event and retry.
				select {
				case old := <-sub.ch:
					sub.dropped++
					b.lg.Warn("event bus subscriber is lagging, dropped event",
						slog.String("event", EventName(old)), slog.Int("dropped", sub.dropped))
				default:
				}
				continue
			}
			break
		}
	}
}

// Events returns the channel on which events are delivered. It is closed
// by Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were discarded for this subscriber.
func (s *Subscription) Dropped() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Unsubscribe removes the subscriber and closes its channel. It is safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subscribers, s)
		close(s.ch)
	})
}
