package healthshare

// State is the lifecycle state of a Sharing instance.
type State int

const (
	// StateNotStarted is the initial state.
	StateNotStarted State = iota
	// StateStarted means the refresh task is scheduled.
	StateStarted
	// StateStopped is terminal.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateStarted:
		return "STARTED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
