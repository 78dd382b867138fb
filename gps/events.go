package gps

import "fmt"

// Event is a lifecycle notification carried by the EventBus.
type Event interface{ isEvent() }

// SimulationInitialized is published once when a session is created.
type SimulationInitialized struct{}

func (SimulationInitialized) isEvent() {}

type SimulationStarted struct{}

func (SimulationStarted) isEvent() {}

type SimulationPaused struct{}

func (SimulationPaused) isEvent() {}

type SimulationResumed struct{}

func (SimulationResumed) isEvent() {}

type SimulationStopped struct{}

func (SimulationStopped) isEvent() {}

// SimulationProgress reports the fraction of the current pass that has
// been reached, in [0, 1].
type SimulationProgress struct {
	Progress float64 `json:"progress"`
}

func (SimulationProgress) isEvent() {}

type OriginSet struct {
	Location Coordinate `json:"location"`
}

func (OriginSet) isEvent() {}

type DestinationSet struct {
	Location Coordinate `json:"location"`
}

func (DestinationSet) isEvent() {}

// SimulationError reports a failed playback run.
type SimulationError struct {
	Message string `json:"message"`
}

func (SimulationError) isEvent() {}

// RoutePlanned indicates a route is available for playback.
type RoutePlanned struct {
	Points int `json:"points"`
}

func (RoutePlanned) isEvent() {}

type RouteCleared struct{}

func (RouteCleared) isEvent() {}

// EventName returns a stable name for e, suitable for wire encodings.
func EventName(e Event) string {
	switch e.(type) {
	case SimulationInitialized:
		return "simulation_initialized"
	case SimulationStarted:
		return "simulation_started"
	case SimulationPaused:
		return "simulation_paused"
	case SimulationResumed:
		return "simulation_resumed"
	case SimulationStopped:
		return "simulation_stopped"
	case SimulationProgress:
		return "simulation_progress"
	case OriginSet:
		return "origin_set"
	case DestinationSet:
		return "destination_set"
	case SimulationError:
		return "simulation_error"
	case RoutePlanned:
		return "route_planned"
	case RouteCleared:
		return "route_cleared"
	default:
		return fmt.Sprintf("%T", e)
	}
}
