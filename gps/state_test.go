package gps

import (
	"sync"
	"testing"
	"time"
)

func allEvents() []Event {
	return []Event{
		SimulationInitialized{},
		SimulationStarted{},
		SimulationPaused{},
		SimulationResumed{},
		SimulationStopped{},
		SimulationProgress{Progress: 0.5},
		OriginSet{Location: Coordinate{1, 2}},
		DestinationSet{Location: Coordinate{3, 4}},
		SimulationError{Message: "boom"},
		RoutePlanned{Points: 3},
		RouteCleared{},
	}
}

func TestTransitionTable(t *testing.T) {
	failed := ErrorState("earlier failure")

	// Pairs not listed leave the state unchanged.
	table := map[StateKind]map[string]State{
		StateIdle: {
			"simulation_started": Running,
			"simulation_error":   ErrorState("boom"),
		},
		StateRunning: {
			"simulation_paused":  Paused,
			"simulation_stopped": Stopped,
			"simulation_error":   ErrorState("boom"),
		},
		StatePaused: {
			"simulation_resumed": Running,
			"simulation_stopped": Stopped,
			"simulation_error":   ErrorState("boom"),
		},
		StateStopped: {
			"simulation_started": Running,
			"simulation_error":   ErrorState("boom"),
		},
		StateError: {
			"simulation_started": Running,
		},
	}

	for _, current := range []State{Idle, Running, Paused, Stopped, failed} {
		for _, e := range allEvents() {
			name := current.String() + "/" + EventName(e)
			t.Run(name, func(t *testing.T) {
				expected, ok := table[current.Kind][EventName(e)]
				if !ok {
					expected = current
				}
				if got := Transition(current, e); got != expected {
					t.Errorf("Transition(%v, %s) = %v, want %v", current, EventName(e), got, expected)
				}
			})
		}
	}
}

func TestErrorStateAlwaysHasMessage(t *testing.T) {
	got := Transition(Running, SimulationError{})
	if got.Kind != StateError {
		t.Fatalf("Expected error state, got %v", got)
	}
	if got.Message == "" {
		t.Error("Error state must carry a message")
	}
	if got.String() != "Error("+unknownErrorMessage+")" {
		t.Errorf("Unexpected string form %q", got.String())
	}
}

func TestEventBusFanOut(t *testing.T) {
	bus := NewEventBus(nil)
	a, b := bus.Subscribe(), bus.Subscribe()

	bus.Publish(SimulationStarted{})

	for i, sub := range []*Subscription{a, b} {
		events := drain(sub)
		if len(events) != 1 || events[0] != (SimulationStarted{}) {
			t.Errorf("subscriber %d: expected one started event, got %v", i, events)
		}
	}
}

func TestEventBusLateSubscriberMissesHistory(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Publish(SimulationStarted{})

	late := bus.Subscribe()
	bus.Publish(SimulationPaused{})

	events := drain(late)
	if len(events) != 1 || events[0] != (SimulationPaused{}) {
		t.Errorf("Late subscriber should only see later events, got %v", events)
	}
}

func TestEventBusDropsOldestWhenFull(t *testing.T) {
	bus := NewEventBusWithBuffer(3, nil)
	sub := bus.Subscribe()

	for i := 1; i <= 5; i++ {
		bus.Publish(RoutePlanned{Points: i})
	}

	events := drain(sub)
	if len(events) != 3 {
		t.Fatalf("Expected buffer of 3 events, got %d", len(events))
	}
	for i, e := range events {
		if got := e.(RoutePlanned).Points; got != i+3 {
			t.Errorf("event %d: expected most recent events to survive, got Points=%d", i, got)
		}
	}
	if sub.Dropped() != 2 {
		t.Errorf("Expected 2 dropped events, got %d", sub.Dropped())
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil)
	sub := bus.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()

	bus.Publish(SimulationStarted{})

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected closed channel after Unsubscribe")
	}
}

func TestEventBusConcurrentPublishers(t *testing.T) {
	bus := NewEventBusWithBuffer(1000, nil)
	sub := bus.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(SimulationProgress{Progress: 0.1})
			}
		}()
	}
	wg.Wait()

	if n := len(drain(sub)); n != 500 {
		t.Errorf("Expected 500 events, got %d", n)
	}
}

func waitForState(t *testing.T, store *StateStore, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for state %v, still %v", want, store.State())
}

func TestStateStoreFollowsEvents(t *testing.T) {
	bus := NewEventBus(nil)
	store := NewStateStore(bus, nil)
	defer store.Close()

	transitions := make(chan [2]State, 10)
	store.AddListener(func(from, to State, _ Event) {
		if from != to {
			transitions <- [2]State{from, to}
		}
	})

	if store.State() != Idle {
		t.Fatalf("Expected initial state Idle, got %v", store.State())
	}

	bus.Publish(SimulationStarted{})
	waitForState(t, store, Running)
	bus.Publish(SimulationPaused{})
	waitForState(t, store, Paused)
	bus.Publish(SimulationError{Message: "sink rejected fix"})
	waitForState(t, store, ErrorState("sink rejected fix"))

	expected := [][2]State{
		{Idle, Running},
		{Running, Paused},
		{Paused, ErrorState("sink rejected fix")},
	}
	for i, want := range expected {
		select {
		case got := <-transitions:
			if got != want {
				t.Errorf("transition %d: expected %v, got %v", i, want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("transition %d not reported", i)
		}
	}
}
