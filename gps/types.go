package gps

import (
	"fmt"
	"time"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports whether the coordinate lies within the valid ranges.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// SimulationPoint is one waypoint of a planned route. Optional fields are
// nil when unknown. Points are treated as immutable: the With helpers
// return modified copies.
type SimulationPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"` // meters
	Bearing   *float64 `json:"bearing,omitempty"`  // degrees

	// ElapsedTravelTime is the time since the start of the route at which
	// this point is reached.
	ElapsedTravelTime *time.Duration `json:"elapsed_travel_time,omitempty"`
	// Speed is the instantaneous speed at this point in meters per second.
	Speed *float64 `json:"speed,omitempty"`
}

// NewSimulationPoint returns a point at lat/lon with all optional fields unset.
func NewSimulationPoint(lat, lon float64) SimulationPoint {
	return SimulationPoint{Latitude: lat, Longitude: lon}
}

func (p SimulationPoint) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

func (p SimulationPoint) WithPosition(lat, lon float64) SimulationPoint {
	p.Latitude = lat
	p.Longitude = lon
	return p
}

func (p SimulationPoint) WithAltitude(meters float64) SimulationPoint {
	p.Altitude = &meters
	return p
}

func (p SimulationPoint) WithBearing(degrees float64) SimulationPoint {
	p.Bearing = &degrees
	return p
}

func (p SimulationPoint) WithElapsedTravelTime(d time.Duration) SimulationPoint {
	p.ElapsedTravelTime = &d
	return p
}

func (p SimulationPoint) WithSpeed(mps float64) SimulationPoint {
	p.Speed = &mps
	return p
}

// clone returns a deep copy of p so that no pointer field is shared.
func (p SimulationPoint) clone() SimulationPoint {
	if p.Altitude != nil {
		p = p.WithAltitude(*p.Altitude)
	}
	if p.Bearing != nil {
		p = p.WithBearing(*p.Bearing)
	}
	if p.ElapsedTravelTime != nil {
		p = p.WithElapsedTravelTime(*p.ElapsedTravelTime)
	}
	if p.Speed != nil {
		p = p.WithSpeed(*p.Speed)
	}
	return p
}

func (p SimulationPoint) String() string {
	s := fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
	if p.ElapsedTravelTime != nil {
		s += fmt.Sprintf(" t=%v", *p.ElapsedTravelTime)
	}
	if p.Speed != nil {
		s += fmt.Sprintf(" v=%.1fm/s", *p.Speed)
	}
	return s
}

// Satellite represents a GPS satellite
type Satellite struct {
	ID        int `json:"id"`
	Elevation int `json:"elevation"` // degrees above horizon
	Azimuth   int `json:"azimuth"`   // degrees from north
	SNR       int `json:"snr"`       // signal-to-noise ratio
}

// DefaultAccuracy is the horizontal accuracy reported for synthetic fixes.
const DefaultAccuracy = 10.0

// Position is a location fix as handed to an output sink.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Speed     float64   `json:"speed"`  // meters per second
	Course    float64   `json:"course"` // degrees
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// FixAt converts a simulation point into a fix stamped with t. Missing
// optional values are reported as zero.
func FixAt(p SimulationPoint, t time.Time) Position {
	pos := Position{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  DefaultAccuracy,
		Timestamp: t,
	}
	if p.Altitude != nil {
		pos.Altitude = *p.Altitude
	}
	if p.Bearing != nil {
		pos.Course = *p.Bearing
	}
	if p.Speed != nil {
		pos.Speed = *p.Speed
	}
	return pos
}

// Status is a snapshot of a playback session.
type Status struct {
	State       string      `json:"state"`
	Message     string      `json:"message,omitempty"`
	Progress    float64     `json:"progress"`
	Active      bool        `json:"active"`
	Paused      bool        `json:"paused"`
	Origin      *Coordinate `json:"origin,omitempty"`
	Destination *Coordinate `json:"destination,omitempty"`
	RoutePoints int         `json:"route_points"`
	Config      Config      `json:"config"`
}
