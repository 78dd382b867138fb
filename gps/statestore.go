package gps

import (
	"log/slog"
	"sync"

	"github.com/Bucknalla/go-route-simulator/log"
)

// StateListener is called after every event consumed by a StateStore.
type StateListener func(from, to State, e Event)

// StateStore derives the current State by folding events from an EventBus
// through Transition. It is the only writer of the derived state.
type StateStore struct {
	mu        sync.RWMutex
	state     State
	listeners []StateListener
	sub       *Subscription
	done      chan struct{}
	lg        *log.Logger
}

// NewStateStore starts consuming events from bus. The store begins Idle.
func NewStateStore(bus *EventBus, lg *log.Logger) *StateStore {
	s := &StateStore{
		state: Idle,
		sub:   bus.Subscribe(),
		done:  make(chan struct{}),
		lg:    lg,
	}
	go s.run()
	return s
}

func (s *StateStore) run() {
	defer close(s.done)

	for e := range s.sub.Events() {
		s.mu.Lock()
		from := s.state
		to := Transition(from, e)
		s.state = to
		listeners := append([]StateListener(nil), s.listeners...)
		s.mu.Unlock()

		if from != to {
			s.lg.Debug("state transition",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
				slog.String("event", EventName(e)))
		}

		for _, l := range listeners {
			l(from, to, e)
		}
	}
}

// State returns the current derived state.
func (s *StateStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AddListener registers a callback invoked from the store's goroutine for
// each consumed event. Listeners must not block for long.
func (s *StateStore) AddListener(l StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Close detaches the store from the bus and waits for it to finish.
func (s *StateStore) Close() {
	s.sub.Unsubscribe()
	<-s.done
}
