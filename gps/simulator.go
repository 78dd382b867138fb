package gps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/lucsky/cuid"
)

// TickFunc receives each emitted point. The simulator does not advance to
// the next point until it returns; a non-nil error aborts the run.
type TickFunc func(ctx context.Context, p SimulationPoint) error

// SimulatorConfig wires a LocationSimulator to its collaborators. OnTick
// is required; nil collaborators are replaced by fresh defaults.
type SimulatorConfig struct {
	OnTick     TickFunc
	OnComplete func()
	OnError    func(error)

	Configs *ConfigManager
	Points  *PointRepository
	Bus     *EventBus
	Noise   *NoiseGenerator
	Logger  *log.Logger
}

// LocationSimulator plays the points of a PointRepository back through
// OnTick on a single background goroutine, with pacing, pause/resume and
// cancellation. At most one run is active at a time.
//
// OnComplete is called after every pass. For the final pass (no looping)
// and for OnError the run is already inactive when the callback fires, so
// those callbacks may call Start or Stop. OnTick and per-pass OnComplete
// calls of a looping run must not call Start or Stop.
type LocationSimulator struct {
	ctrl sync.Mutex // serializes Start, Stop and restarts

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	onTick     TickFunc
	onComplete func()
	onError    func(error)

	configs  *ConfigManager
	points   *PointRepository
	bus      *EventBus
	pause    *PauseController
	progress *ProgressTracker
	noise    *NoiseGenerator
	lg       *log.Logger

	unsubscribe func()
}

// NewLocationSimulator creates a simulator and subscribes it to
// configuration changes: a change while a run is active restarts playback
// from the first point under the new configuration.
func NewLocationSimulator(c SimulatorConfig) (*LocationSimulator, error) {
	if c.OnTick == nil {
		return nil, errors.New("gps: OnTick callback is required")
	}
	if c.Configs == nil {
		cm, err := NewConfigManager(DefaultConfig(), c.Logger)
		if err != nil {
			return nil, err
		}
		c.Configs = cm
	}
	if c.Points == nil {
		c.Points = NewPointRepository()
	}
	if c.Bus == nil {
		c.Bus = NewEventBus(c.Logger)
	}
	if c.OnComplete == nil {
		c.OnComplete = func() {}
	}
	if c.OnError == nil {
		c.OnError = func(error) {}
	}

	s := &LocationSimulator{
		onTick:     c.OnTick,
		onComplete: c.OnComplete,
		onError:    c.OnError,
		configs:    c.Configs,
		points:     c.Points,
		bus:        c.Bus,
		pause:      NewPauseController(c.Bus, c.Logger),
		progress:   NewProgressTracker(c.Bus, c.Logger),
		noise:      c.Noise,
		lg:         c.Logger,
	}
	s.unsubscribe = c.Configs.Subscribe(s.restartIfActive)

	s.lg.Debug("location simulator created")
	return s, nil
}

// Start launches a run. It does nothing if a run is already active.
func (s *LocationSimulator) Start() {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	s.startLocked()
}

func (s *LocationSimulator) startLocked() {
	if s.IsActive() {
		s.lg.Debug("start ignored, run already active")
		return
	}

	s.pause.ResetPause()
	s.progress.ResetProgress()

	config := s.configs.Config()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	lg := s.lg.With(slog.String("run", cuid.New()))

	// Published before the goroutine exists so that it always precedes any
	// event of this run.
	s.bus.Publish(SimulationStarted{})
	go s.run(ctx, done, config, lg)

	lg.Info("simulation started", slog.Any("config", config))
}

// Stop cancels the active run, waits for it to unwind, resets pause and
// progress, and publishes SimulationStopped. Stop on an inactive simulator
// only resets and publishes.
func (s *LocationSimulator) Stop() {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	s.stopLocked()
}

func (s *LocationSimulator) stopLocked() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.pause.ResetPause()
	s.progress.ResetProgress()
	s.bus.Publish(SimulationStopped{})
	s.lg.Info("simulation stopped")
}

func (s *LocationSimulator) restartIfActive(config Config) {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if !s.IsActive() {
		return
	}
	s.lg.Info("configuration changed during playback, restarting", slog.Any("config", config))
	s.stopLocked()
	s.startLocked()
}

// Pause holds playback before the next point is emitted.
func (s *LocationSimulator) Pause() { s.pause.Pause() }

// Resume continues a paused run.
func (s *LocationSimulator) Resume() { s.pause.Resume() }

func (s *LocationSimulator) IsPaused() bool { return s.pause.IsPaused() }

// Progress returns the fraction of the current pass already reached.
func (s *LocationSimulator) Progress() float64 { return s.progress.Progress() }

// IsActive reports whether a run goroutine is currently executing.
func (s *LocationSimulator) IsActive() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current run ends. If no run is
// active the returned channel is already closed.
func (s *LocationSimulator) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Close stops any run and detaches the simulator from configuration
// updates.
func (s *LocationSimulator) Close() {
	s.unsubscribe()
	s.Stop()
}

func (s *LocationSimulator) run(ctx context.Context, done chan struct{}, config Config, lg *log.Logger) {
	var runErr error
	completed := false

	defer func() {
		if runErr != nil {
			s.bus.Publish(SimulationError{Message: runErr.Error()})
		}
		close(done)

		switch {
		case runErr != nil:
			s.onError(runErr)
		case completed:
			s.onComplete()
		}
	}()

	for pass := 1; ; pass++ {
		err := s.runOnce(ctx, config, lg)
		if err != nil {
			if ctx.Err() != nil {
				lg.Info("simulation cancelled", slog.Int("pass", pass))
				return
			}
			lg.Error("simulation failed", slog.Int("pass", pass), slog.Any("error", err))
			runErr = err
			return
		}

		if !config.LoopIndefinitely {
			lg.Info("simulation completed")
			completed = true
			return
		}

		lg.Info("pass completed, looping", slog.Int("pass", pass))
		s.onComplete()
		if ctx.Err() != nil {
			return
		}
	}
}

// runOnce plays one pass over a snapshot of the route.
func (s *LocationSimulator) runOnce(ctx context.Context, config Config, lg *log.Logger) error {
	points := s.points.Snapshot()
	if len(points) == 0 {
		return ErrNoPoints
	}

	s.progress.SetSize(len(points))
	s.progress.ResetProgress()

	delays := NewDelayCalculator(config)
	pipeline := NewPipeline(config, s.noise)

	for i, p := range points {
		s.progress.UpdateProgress(i + 1)

		if err := s.pause.WaitIfPaused(ctx); err != nil {
			return err
		}
		if err := sleep(ctx, delays.Delay(i, p)); err != nil {
			return err
		}
		// A pause that arrived during the delay holds the point here; the
		// delay is not repeated after resuming.
		if err := s.pause.WaitIfPaused(ctx); err != nil {
			return err
		}

		processed := pipeline.Process(p)
		lg.Debug("tick", slog.Int("index", i), slog.String("point", processed.String()))
		if err := s.tick(ctx, processed); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

func (s *LocationSimulator) tick(ctx context.Context, p SimulationPoint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick callback panicked: %v", r)
		}
	}()
	return s.onTick(ctx, p)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
