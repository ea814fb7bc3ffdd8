package stream

// State is the lifecycle state of a stream session.
//
//	STARTING → STREAMING → {COMPLETED, CANCELLED, TIMED_OUT, FAILED}
type State int

const (
	StateStarting State = iota
	StateStreaming
	StateCompleted
	StateCancelled
	StateTimedOut
	StateFailed
)

var stateNames = map[State]string{
	StateStarting:  "starting",
	StateStreaming: "streaming",
	StateCompleted: "completed",
	StateCancelled: "cancelled",
	StateTimedOut:  "timed_out",
	StateFailed:    "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// ParseState maps a state name back to its State. The second return value is
// false for unknown names.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return StateStarting, false
}
