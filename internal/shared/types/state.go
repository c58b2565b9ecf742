package types

// ApplicationState represents instance lifecycle states
type ApplicationState string

const (
	StateStarting      ApplicationState = "starting"       // Launched, main window not correlated yet
	StateRunning       ApplicationState = "running"        // Window known, not foreground
	StateActive        ApplicationState = "active"         // Window is foreground
	StateMinimized     ApplicationState = "minimized"      // Window minimized
	StateNotResponding ApplicationState = "not_responding" // Process alive, window missing or stuck
	StateClosing       ApplicationState = "closing"        // Termination requested, awaiting confirmation
	StateTerminated    ApplicationState = "terminated"     // Process gone, terminal
	StateError         ApplicationState = "error"          // Unrecoverable failure, terminal
	StateSuspended     ApplicationState = "suspended"      // Frozen by the host
)

// States lists all states in declaration order
func States() []ApplicationState {
	return []ApplicationState{
		StateStarting, StateRunning, StateActive, StateMinimized,
		StateNotResponding, StateClosing, StateTerminated, StateError,
		StateSuspended,
	}
}

// transitions holds the allowed state changes. Self-transitions are implicit
// for every non-terminal state; terminal states have no outgoing edges.
var transitions = map[ApplicationState][]ApplicationState{
	StateStarting:      {StateRunning, StateActive, StateNotResponding, StateError, StateTerminated},
	StateRunning:       {StateActive, StateMinimized, StateNotResponding, StateClosing, StateSuspended},
	StateActive:        {StateRunning, StateMinimized, StateNotResponding, StateClosing, StateSuspended},
	StateMinimized:     {StateRunning, StateActive, StateNotResponding, StateClosing},
	StateNotResponding: {StateRunning, StateActive, StateClosing, StateError, StateTerminated},
	StateClosing:       {StateTerminated, StateError},
	StateSuspended:     {StateRunning, StateActive, StateTerminated},
	StateTerminated:    {},
	StateError:         {},
}

// Valid reports whether s is a known state
func (s ApplicationState) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s admits no further transitions
func (s ApplicationState) IsTerminal() bool {
	return s == StateTerminated || s == StateError
}

// Live reports whether an instance in s still occupies its application's
// single-instance slot
func (s ApplicationState) Live() bool {
	return s.Valid() && !s.IsTerminal()
}

// CanTransitionTo reports whether s -> to is an allowed transition.
// Non-terminal states may transition to themselves.
func (s ApplicationState) CanTransitionTo(to ApplicationState) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	if s == to {
		return !s.IsTerminal()
	}
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Transitions returns the allowed target states of s, excluding the implicit
// self-transition. The returned slice is a copy.
func (s ApplicationState) Transitions() []ApplicationState {
	out := make([]ApplicationState, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
