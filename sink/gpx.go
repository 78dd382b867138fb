package sink

import (
	"context"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
)

// GPXSink records every fix into a GPX track written on Close.
type GPXSink struct {
	w   *gps.GPXWriter
	now func() time.Time
}

func NewGPXSink(filename string) (*GPXSink, error) {
	w, err := gps.NewGPXWriter(filename)
	if err != nil {
		return nil, err
	}
	return &GPXSink{w: w, now: time.Now}, nil
}

func (s *GPXSink) Send(_ context.Context, p gps.SimulationPoint) error {
	s.w.Add(gps.FixAt(p, s.now()))
	return nil
}

// Len returns the number of recorded fixes.
func (s *GPXSink) Len() int { return s.w.Len() }

func (s *GPXSink) Close() error {
	return s.w.Close()
}
