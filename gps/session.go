package gps

import (
	"context"
	"fmt"
	"sync"

	"github.com/Bucknalla/go-route-simulator/log"
)

// RouteSource plans the points travelled between two coordinates.
type RouteSource interface {
	PlanRoute(ctx context.Context, origin, destination Coordinate) ([]SimulationPoint, error)
}

// SessionConfig configures a Session. OnTick is required. OnComplete fires
// once when a non-looping run reaches its last point; OnError fires when a
// run fails.
type SessionConfig struct {
	Config     Config
	Router     RouteSource
	OnTick     TickFunc
	OnComplete func()
	OnError    func(error)
	Noise      *NoiseGenerator
	Logger     *log.Logger
}

// Session ties route selection to playback for one host (CLI or web
// server). It owns the event bus, the derived state and the simulator.
type Session struct {
	mu          sync.Mutex
	origin      *Coordinate
	destination *Coordinate

	router  RouteSource
	bus     *EventBus
	configs *ConfigManager
	points  *PointRepository
	store   *StateStore
	sim     *LocationSimulator

	onComplete func()
	onError    func(error)
	lg         *log.Logger
}

// NewSession builds a session and publishes SimulationInitialized.
func NewSession(c SessionConfig) (*Session, error) {
	configs, err := NewConfigManager(c.Config, c.Logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		router:     c.Router,
		bus:        NewEventBus(c.Logger),
		configs:    configs,
		points:     NewPointRepository(),
		onComplete: c.OnComplete,
		onError:    c.OnError,
		lg:         c.Logger,
	}
	s.store = NewStateStore(s.bus, c.Logger)

	s.sim, err = NewLocationSimulator(SimulatorConfig{
		OnTick:     c.OnTick,
		OnComplete: s.handleComplete,
		OnError:    s.handleError,
		Configs:    configs,
		Points:     s.points,
		Bus:        s.bus,
		Noise:      c.Noise,
		Logger:     c.Logger,
	})
	if err != nil {
		s.store.Close()
		return nil, err
	}

	s.bus.Publish(SimulationInitialized{})
	return s, nil
}

func (s *Session) handleComplete() {
	// Per-pass completions of a looping run arrive while it is still active.
	if s.sim.IsActive() {
		return
	}
	s.sim.Stop()
	if s.onComplete != nil {
		s.onComplete()
	}
}

func (s *Session) handleError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Bus returns the session's event bus.
func (s *Session) Bus() *EventBus { return s.bus }

// State returns the state derived from the events seen so far.
func (s *Session) State() State { return s.store.State() }

// OnStateChange registers l with the session's state store.
func (s *Session) OnStateChange(l StateListener) { s.store.AddListener(l) }

func (s *Session) Config() Config { return s.configs.Config() }

// Points returns a copy of the selected route.
func (s *Session) Points() []SimulationPoint { return s.points.Snapshot() }

// SetOrigin records the start of the route and plans it if a destination
// is already known.
func (s *Session) SetOrigin(ctx context.Context, c Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.origin = &c
	s.mu.Unlock()

	s.bus.Publish(OriginSet{Location: c})
	return s.planIfReady(ctx)
}

// SetDestination records the end of the route and plans it if an origin is
// already known.
func (s *Session) SetDestination(ctx context.Context, c Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.destination = &c
	s.mu.Unlock()

	s.bus.Publish(DestinationSet{Location: c})
	return s.planIfReady(ctx)
}

func (s *Session) planIfReady(ctx context.Context) error {
	s.mu.Lock()
	origin, destination := s.origin, s.destination
	s.mu.Unlock()

	if origin == nil || destination == nil {
		return nil
	}
	return s.PlanRoute(ctx, *origin, *destination)
}

// PlanRoute asks the route source for a route and installs it.
func (s *Session) PlanRoute(ctx context.Context, origin, destination Coordinate) error {
	if s.router == nil {
		return ErrNoRouteSource
	}

	s.lg.Infof("planning route %s -> %s", origin, destination)
	points, err := s.router.PlanRoute(ctx, origin, destination)
	if err != nil {
		return fmt.Errorf("planning route: %w", err)
	}
	if len(points) == 0 {
		return ErrNoRoute
	}
	s.LoadRoute(points)
	return nil
}

// LoadRoute installs a pre-built route and publishes RoutePlanned.
func (s *Session) LoadRoute(points []SimulationPoint) {
	s.points.Update(points)
	s.bus.Publish(RoutePlanned{Points: len(points)})
	s.lg.Infof("route loaded with %d points", len(points))
}

// ClearRoute forgets origin, destination and route points.
func (s *Session) ClearRoute() {
	s.mu.Lock()
	s.origin, s.destination = nil, nil
	s.mu.Unlock()

	s.points.Clear()
	s.bus.Publish(RouteCleared{})
}

// StartPlaying begins playback. It is ignored while a run is active and
// fails with ErrNoRoute when no route is loaded.
func (s *Session) StartPlaying() error {
	if s.sim.IsActive() {
		s.lg.Debug("start ignored, already playing")
		return nil
	}
	if s.points.IsEmpty() {
		return ErrNoRoute
	}
	s.sim.Start()
	return nil
}

// StopPlaying stops playback and resets progress.
func (s *Session) StopPlaying() {
	s.sim.Stop()
}

// PauseOrResume pauses a running simulation or resumes a paused one. It
// does nothing when no run is active.
func (s *Session) PauseOrResume() {
	if !s.sim.IsActive() {
		return
	}
	if s.sim.IsPaused() {
		s.sim.Resume()
		return
	}
	s.sim.Pause()
}

// Pause pauses an active run.
func (s *Session) Pause() {
	if s.sim.IsActive() && !s.sim.IsPaused() {
		s.sim.Pause()
	}
}

// Resume resumes a paused run.
func (s *Session) Resume() {
	if s.sim.IsActive() && s.sim.IsPaused() {
		s.sim.Resume()
	}
}

// UpdateConfiguration validates and applies cfg. An active run restarts
// under the new configuration.
func (s *Session) UpdateConfiguration(cfg Config) error {
	return s.configs.Update(cfg)
}

// ModifyConfiguration applies opts to the current configuration.
func (s *Session) ModifyConfiguration(opts ...Option) error {
	return s.configs.Modify(opts...)
}

// Status reports the session's current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	origin, destination := s.origin, s.destination
	s.mu.Unlock()

	state := s.store.State()
	return Status{
		State:       state.Kind.String(),
		Message:     state.Message,
		Progress:    s.sim.Progress(),
		Active:      s.sim.IsActive(),
		Paused:      s.sim.IsPaused(),
		Origin:      origin,
		Destination: destination,
		RoutePoints: s.points.Size(),
		Config:      s.configs.Config(),
	}
}

// Done returns a channel closed when the current run ends.
func (s *Session) Done() <-chan struct{} { return s.sim.Done() }

// Close stops playback and releases the session's goroutines.
func (s *Session) Close() {
	s.sim.Close()
	s.store.Close()
}
