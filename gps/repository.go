package gps

import "sync"

// PointRepository holds the route currently selected for playback.
type PointRepository struct {
	mu     sync.RWMutex
	points []SimulationPoint
}

func NewPointRepository() *PointRepository {
	return &PointRepository{}
}

// Update replaces the stored route. The repository keeps its own copy.
func (r *PointRepository) Update(points []SimulationPoint) {
	cp := copyPoints(points)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = cp
}

func (r *PointRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = nil
}

func (r *PointRepository) IsEmpty() bool {
	return r.Size() == 0
}

func (r *PointRepository) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}

// Snapshot returns a deep copy of the stored route. Later updates to the
// repository do not affect a snapshot already taken.
func (r *PointRepository) Snapshot() []SimulationPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyPoints(r.points)
}

func copyPoints(points []SimulationPoint) []SimulationPoint {
	if points == nil {
		return nil
	}
	cp := make([]SimulationPoint, len(points))
	for i, p := range points {
		cp[i] = p.clone()
	}
	return cp
}
