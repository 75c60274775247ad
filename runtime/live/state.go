package live

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event is not allowed in a state.
var ErrInvalidTransition = errors.New("invalid session state transition")

// State is the controller lifecycle state.
type State int

// Lifecycle states.
const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event drives a lifecycle transition.
type Event int

// Lifecycle events.
const (
	// EventStart is a Start request.
	EventStart Event = iota
	// EventDenied means devices could not be acquired.
	EventDenied
	// EventReady means per-session resources are running.
	EventReady
	// EventFail is a resource or transport failure.
	EventFail
	// EventStop is a Stop request.
	EventStop
	// EventStopped means teardown finished.
	EventStopped
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventDenied:
		return "denied"
	case EventReady:
		return "ready"
	case EventFail:
		return "fail"
	case EventStop:
		return "stop"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// transition is the lifecycle table:
//
//	idle     --start-->   starting
//	starting --denied-->  idle
//	starting --ready-->   active
//	starting --fail-->    error
//	active   --fail-->    error
//	active   --stop-->    stopping
//	error    --stop-->    stopping
//	stopping --stopped--> idle
func transition(s State, e Event) (State, error) {
	switch {
	case s == StateIdle && e == EventStart:
		return StateStarting, nil
	case s == StateStarting && e == EventDenied:
		return StateIdle, nil
	case s == StateStarting && e == EventReady:
		return StateActive, nil
	case (s == StateStarting || s == StateActive) && e == EventFail:
		return StateError, nil
	case (s == StateActive || s == StateError) && e == EventStop:
		return StateStopping, nil
	case s == StateStopping && e == EventStopped:
		return StateIdle, nil
	default:
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
}
