// Package sink delivers simulated fixes to their consumers: NMEA devices,
// GPX files, Kafka topics and Redis.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
)

// Sink accepts every point emitted by a simulation.
type Sink interface {
	Send(ctx context.Context, p gps.SimulationPoint) error
	Close() error
}

// TickFunc adapts s to the simulator's tick callback.
func TickFunc(s Sink) gps.TickFunc {
	return s.Send
}

// Multi fans each point out to all of its sinks in order. Send stops at the
// first failing sink.
type Multi []Sink

func (m Multi) Send(ctx context.Context, p gps.SimulationPoint) error {
	for _, s := range m {
		if err := s.Send(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns all errors encountered.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(ctx context.Context, p gps.SimulationPoint) error

func (f FuncSink) Send(ctx context.Context, p gps.SimulationPoint) error { return f(ctx, p) }

func (f FuncSink) Close() error { return nil }

// Message is the JSON form of a fix published to message brokers and
// websocket clients.
type Message struct {
	Device string `json:"device,omitempty"`
	gps.Position
}

func newMessage(device string, p gps.SimulationPoint, t time.Time) Message {
	return Message{Device: device, Position: gps.FixAt(p, t)}
}
