package gps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// lineRoute plans n evenly spaced points from origin to destination.
type lineRoute struct {
	n     int
	err   error
	calls int
	mu    sync.Mutex
}

func (r *lineRoute) PlanRoute(_ context.Context, origin, destination Coordinate) ([]SimulationPoint, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	points := make([]SimulationPoint, r.n)
	for i := range points {
		f := float64(i) / float64(r.n-1)
		points[i] = NewSimulationPoint(
			origin.Latitude+f*(destination.Latitude-origin.Latitude),
			origin.Longitude+f*(destination.Longitude-origin.Longitude),
		)
	}
	return points, nil
}

func createTestSession(t *testing.T, router RouteSource, config Config) (*Session, *tickRecorder, chan struct{}) {
	t.Helper()

	ticks := newTickRecorder()
	completed := make(chan struct{}, 4)
	s, err := NewSession(SessionConfig{
		Config:     config,
		Router:     router,
		OnTick:     ticks.onTick,
		OnComplete: func() { completed <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, ticks, completed
}

func TestSessionPlansWhenBothEndsKnown(t *testing.T) {
	router := &lineRoute{n: 5}
	s, _, _ := createTestSession(t, router, DefaultConfig())
	sub := s.Bus().Subscribe()
	ctx := context.Background()

	if err := s.SetOrigin(ctx, Coordinate{52.37, 4.89}); err != nil {
		t.Fatalf("SetOrigin failed: %v", err)
	}
	if router.calls != 0 {
		t.Error("Route should not be planned before a destination is known")
	}
	if err := s.SetDestination(ctx, Coordinate{52.09, 5.12}); err != nil {
		t.Fatalf("SetDestination failed: %v", err)
	}

	if router.calls != 1 {
		t.Errorf("Expected one planning call, got %d", router.calls)
	}
	if n := len(s.Points()); n != 5 {
		t.Errorf("Expected 5 route points, got %d", n)
	}

	var names []string
	for _, e := range drain(sub) {
		names = append(names, EventName(e))
	}
	expected := []string{"origin_set", "destination_set", "route_planned"}
	if len(names) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("event %d: expected %s, got %s", i, expected[i], names[i])
		}
	}

	status := s.Status()
	if status.Origin == nil || status.Destination == nil || status.RoutePoints != 5 {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestSessionPlanningErrors(t *testing.T) {
	ctx := context.Background()

	failing := &lineRoute{err: errors.New("quota exceeded")}
	s, _, _ := createTestSession(t, failing, DefaultConfig())
	s.SetOrigin(ctx, Coordinate{1, 1})
	if err := s.SetDestination(ctx, Coordinate{2, 2}); !errors.Is(err, failing.err) {
		t.Errorf("Expected planning error, got %v", err)
	}

	noRouter, _, _ := createTestSession(t, nil, DefaultConfig())
	noRouter.SetOrigin(ctx, Coordinate{1, 1})
	if err := noRouter.SetDestination(ctx, Coordinate{2, 2}); !errors.Is(err, ErrNoRouteSource) {
		t.Errorf("Expected ErrNoRouteSource, got %v", err)
	}

	if err := noRouter.SetOrigin(ctx, Coordinate{123, 0}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestSessionStartRequiresRoute(t *testing.T) {
	s, _, _ := createTestSession(t, nil, DefaultConfig())

	if err := s.StartPlaying(); !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute, got %v", err)
	}
}

func TestSessionPauseOrResumeWhileIdle(t *testing.T) {
	s, _, _ := createTestSession(t, nil, DefaultConfig())
	waitForState(t, s.store, Idle)
	sub := s.Bus().Subscribe()

	s.PauseOrResume()

	if s.State() != Idle {
		t.Errorf("Expected Idle, got %v", s.State())
	}
	if events := drain(sub); len(events) != 0 {
		t.Errorf("Expected no events, got %v", events)
	}
}

func TestSessionPlaybackLifecycle(t *testing.T) {
	s, ticks, completed := createTestSession(t, nil, DefaultConfig().With(WithDelay(30*time.Millisecond)))
	s.LoadRoute(createTestPoints(6))

	if err := s.StartPlaying(); err != nil {
		t.Fatalf("StartPlaying failed: %v", err)
	}
	waitForState(t, s.store, Running)

	s.PauseOrResume()
	waitForState(t, s.store, Paused)
	if st := s.Status(); !st.Paused || !st.Active {
		t.Errorf("Expected active paused status, got %+v", st)
	}

	paused := ticks.count()
	time.Sleep(100 * time.Millisecond)
	if ticks.count() != paused {
		t.Error("Ticks emitted while paused")
	}

	s.PauseOrResume()
	waitForState(t, s.store, Running)

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for completion")
	}

	if n := ticks.count(); n != 6 {
		t.Errorf("Expected 6 ticks, got %d", n)
	}
	// a finished run is reported as stopped
	waitForState(t, s.store, Stopped)

	if err := s.StartPlaying(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	waitForState(t, s.store, Running)
	s.StopPlaying()
	waitForState(t, s.store, Stopped)
}

func TestSessionErrorState(t *testing.T) {
	s, err := NewSession(SessionConfig{
		Config: DefaultConfig().With(WithDelay(0)),
		OnTick: func(context.Context, SimulationPoint) error { return errors.New("device unplugged") },
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer s.Close()

	s.LoadRoute(createTestPoints(2))
	if err := s.StartPlaying(); err != nil {
		t.Fatalf("StartPlaying failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.State().Kind != StateError {
		if time.Now().After(deadline) {
			t.Fatalf("Expected error state, got %v", s.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.State().Message == "" {
		t.Error("Error state must carry a message")
	}

	// a new run is always possible after a failure
	if err := s.StartPlaying(); err != nil {
		t.Errorf("Expected restart after error, got %v", err)
	}
}

func TestSessionClearRoute(t *testing.T) {
	s, _, _ := createTestSession(t, &lineRoute{n: 3}, DefaultConfig())
	ctx := context.Background()
	s.SetOrigin(ctx, Coordinate{1, 1})
	s.SetDestination(ctx, Coordinate{2, 2})

	s.ClearRoute()

	st := s.Status()
	if st.Origin != nil || st.Destination != nil || st.RoutePoints != 0 {
		t.Errorf("Expected cleared route, got %+v", st)
	}
}

func TestSessionUpdateConfiguration(t *testing.T) {
	s, _, _ := createTestSession(t, nil, DefaultConfig())

	if err := s.UpdateConfiguration(DefaultConfig().With(WithSpeedMultiplier(-1))); !errors.Is(err, ErrInvalidSpeedMultiplier) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if err := s.ModifyConfiguration(WithNoise(4)); err != nil {
		t.Fatalf("ModifyConfiguration failed: %v", err)
	}
	if s.Config().NoiseLevelInMeters != 4 || s.Status().Config.NoiseLevelInMeters != 4 {
		t.Error("Configuration change not visible")
	}
}
