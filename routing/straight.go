package routing

import (
	"context"
	"math"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
)

const (
	DefaultStraightLineSpeed   = 13.9 // m/s, roughly 50 km/h
	DefaultStraightLineSpacing = 25.0 // meters
)

// StraightLine plans a great-circle path between the two coordinates at
// constant speed. It needs no network access.
type StraightLine struct {
	Speed   float64 // meters per second
	Spacing float64 // meters between consecutive points
}

func NewStraightLine() *StraightLine {
	return &StraightLine{Speed: DefaultStraightLineSpeed, Spacing: DefaultStraightLineSpacing}
}

func (s *StraightLine) PlanRoute(_ context.Context, origin, destination gps.Coordinate) ([]gps.SimulationPoint, error) {
	speed, spacing := s.Speed, s.Spacing
	if speed <= 0 {
		speed = DefaultStraightLineSpeed
	}
	if spacing <= 0 {
		spacing = DefaultStraightLineSpacing
	}

	total := gps.Distance(origin, destination)
	segments := int(math.Max(1, math.Ceil(total/spacing)))
	bearing := gps.Bearing(origin, destination)

	points := make([]gps.SimulationPoint, 0, segments+1)
	for i := 0; i <= segments; i++ {
		d := total * float64(i) / float64(segments)

		c := gps.Destination(origin, d, bearing)
		if i == segments {
			c = destination
		}

		p := gps.NewSimulationPoint(c.Latitude, c.Longitude).
			WithElapsedTravelTime(time.Duration(d / speed * float64(time.Second)))
		if i > 0 {
			p = p.WithSpeed(speed)
		}
		points = append(points, p)
	}
	return points, nil
}
