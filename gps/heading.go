package gps

// HeadingCalculator derives the heading of each point from the point seen
// before it. A calculator is scoped to a single playback pass; create a new
// one (or call Reset) before replaying a route.
type HeadingCalculator struct {
	previous *Coordinate
}

func NewHeadingCalculator() *HeadingCalculator {
	return &HeadingCalculator{}
}

// FromPrevious returns the bearing from the previously seen point to p and
// records p as the new reference. The first call returns ok == false.
func (h *HeadingCalculator) FromPrevious(p Coordinate) (bearing float64, ok bool) {
	prev := h.previous
	h.previous = &p
	if prev == nil {
		return 0, false
	}
	return Bearing(*prev, p), true
}

// Reset forgets the reference point.
func (h *HeadingCalculator) Reset() {
	h.previous = nil
}
