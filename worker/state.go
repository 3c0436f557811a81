package worker

// State is the observable lifecycle state of a Worker. Paused and
// StateStopRequested are projections of independent flags over a running
// loop: a worker can be paused with a stop pending, and the stop wins.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopRequested
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopRequested:
		return "StopRequested"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
