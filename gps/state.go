package gps

import "fmt"

// StateKind enumerates the lifecycle states of a simulation.
type StateKind int

const (
	StateIdle StateKind = iota
	StateRunning
	StatePaused
	StateStopped
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// State is the derived lifecycle state. Message is only set for StateError.
type State struct {
	Kind    StateKind
	Message string
}

var (
	Idle    = State{Kind: StateIdle}
	Running = State{Kind: StateRunning}
	Paused  = State{Kind: StatePaused}
	Stopped = State{Kind: StateStopped}
)

const unknownErrorMessage = "unknown error occurred during simulation"

// ErrorState returns an error state. An empty message is replaced so that
// error states always carry a description.
func ErrorState(message string) State {
	if message == "" {
		message = unknownErrorMessage
	}
	return State{Kind: StateError, Message: message}
}

func (s State) String() string {
	if s.Kind == StateError {
		return fmt.Sprintf("Error(%s)", s.Message)
	}
	return s.Kind.String()
}

// Transition returns the state that follows current when e is observed.
// Pairs without a defined transition leave the state unchanged.
func Transition(current State, e Event) State {
	switch current.Kind {
	case StateIdle, StateStopped:
		switch ev := e.(type) {
		case SimulationStarted:
			return Running
		case SimulationError:
			return ErrorState(ev.Message)
		}

	case StateRunning:
		switch ev := e.(type) {
		case SimulationPaused:
			return Paused
		case SimulationStopped:
			return Stopped
		case SimulationError:
			return ErrorState(ev.Message)
		}

	case StatePaused:
		switch ev := e.(type) {
		case SimulationResumed:
			return Running
		case SimulationStopped:
			return Stopped
		case SimulationError:
			return ErrorState(ev.Message)
		}

	case StateError:
		if _, ok := e.(SimulationStarted); ok {
			return Running
		}
	}
	return current
}
