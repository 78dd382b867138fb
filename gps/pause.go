package gps

import (
	"context"
	"sync"

	"github.com/Bucknalla/go-route-simulator/log"
)

// PauseController gates the playback loop. While paused, WaitIfPaused
// blocks until Resume is called or the context is cancelled.
type PauseController struct {
	mu      sync.Mutex
	paused  bool
	resumed chan struct{} // closed when paused flips back to false
	bus     *EventBus
	lg      *log.Logger
}

func NewPauseController(bus *EventBus, lg *log.Logger) *PauseController {
	return &PauseController{bus: bus, lg: lg}
}

// Pause stops the loop at its next pause check and publishes
// SimulationPaused.
func (p *PauseController) Pause() {
	p.mu.Lock()
	if !p.paused {
		p.paused = true
		p.resumed = make(chan struct{})
	}
	p.mu.Unlock()

	p.lg.Info("paused")
	p.publish(SimulationPaused{})
}

// Resume releases any waiter and publishes SimulationResumed.
func (p *PauseController) Resume() {
	p.clear()
	p.lg.Info("resumed")
	p.publish(SimulationResumed{})
}

// ResetPause clears the paused flag without publishing anything.
func (p *PauseController) ResetPause() {
	p.clear()
	p.lg.Debug("pause reset")
}

func (p *PauseController) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		close(p.resumed)
	}
}

// IsPaused reports whether the controller is currently paused.
func (p *PauseController) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// WaitIfPaused returns immediately when not paused. Otherwise it blocks
// until resumed, in which case it returns nil, or until ctx is done, in
// which case it returns ctx.Err().
func (p *PauseController) WaitIfPaused(ctx context.Context) error {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return ctx.Err()
	}
	resumed := p.resumed
	p.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PauseController) publish(e Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}
