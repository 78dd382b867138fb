package gps

import "time"

// DelayCalculator computes how long to wait before emitting each point of
// a run. It keeps the elapsed travel time of the previous point, so a new
// calculator (or Reset) is needed for every pass over a route.
type DelayCalculator struct {
	config          Config
	previousElapsed time.Duration
}

func NewDelayCalculator(config Config) *DelayCalculator {
	return &DelayCalculator{config: config}
}

// Delay returns the pacing delay before point index is emitted.
//
// The first point of a pass is always emitted immediately. With realistic
// timing disabled every later point waits DelayBetweenEmissions. With
// realistic timing a point waits for the travel time elapsed since the
// previous point, divided by the speed multiplier. Points without an
// elapsed travel time are emitted immediately and do not move the
// reference.
func (d *DelayCalculator) Delay(index int, p SimulationPoint) time.Duration {
	if !d.config.UseRealisticTiming {
		if index == 0 {
			return 0
		}
		return d.config.DelayBetweenEmissions
	}

	if p.ElapsedTravelTime == nil {
		return 0
	}
	current := *p.ElapsedTravelTime

	if index == 0 {
		d.previousElapsed = current
		return 0
	}

	delta := current - d.previousElapsed
	d.previousElapsed = current
	if delta <= 0 {
		return 0
	}

	multiplier := d.config.SpeedMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return time.Duration(float64(delta) / multiplier)
}

// Reset clears the reference elapsed time.
func (d *DelayCalculator) Reset() {
	d.previousElapsed = 0
}
