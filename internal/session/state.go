package session

// State is the lifecycle state of a stream session
type State int

// Session lifecycle: STARTING → BUFFERING → RUNNING → STOPPING → TERMINATED,
// with ABORTED terminal if the capture process cannot be started.
const (
	StateStarting State = iota
	StateBuffering
	StateRunning
	StateStopping
	StateTerminated
	StateAborted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateBuffering:
		return "buffering"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
