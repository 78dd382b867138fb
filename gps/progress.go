package gps

import (
	"fmt"
	"sync"

	"github.com/Bucknalla/go-route-simulator/log"
)

// ProgressTracker records how far through the current pass playback is.
type ProgressTracker struct {
	mu       sync.Mutex
	size     int
	progress float64
	bus      *EventBus
	lg       *log.Logger
}

func NewProgressTracker(bus *EventBus, lg *log.Logger) *ProgressTracker {
	return &ProgressTracker{bus: bus, lg: lg}
}

// SetSize sets the number of points in the current pass. It must be called
// before UpdateProgress.
func (t *ProgressTracker) SetSize(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = n
}

// UpdateProgress records that current points out of size have been reached
// and publishes SimulationProgress. It panics unless 0 < current <= size.
func (t *ProgressTracker) UpdateProgress(current int) {
	t.mu.Lock()
	if t.size <= 0 || current <= 0 || current > t.size {
		size := t.size
		t.mu.Unlock()
		panic(fmt.Sprintf("gps: invalid progress update: current=%d, size=%d", current, size))
	}
	t.progress = float64(current) / float64(t.size)
	progress := t.progress
	size := t.size
	t.mu.Unlock()

	t.lg.Debugf("progress %d/%d", current, size)
	if t.bus != nil {
		t.bus.Publish(SimulationProgress{Progress: progress})
	}
}

// ResetProgress sets progress back to zero without publishing.
func (t *ProgressTracker) ResetProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = 0
}

// Progress returns the current fraction in [0, 1].
func (t *ProgressTracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Size returns the number of points in the current pass.
func (t *ProgressTracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}
