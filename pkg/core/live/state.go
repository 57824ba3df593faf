package live

// State is the lifecycle state of a live session. Sessions move
// Idle -> Starting -> Active and back to Idle on stop; a failed start
// returns to Idle without passing through Active.
type State int

const (
	// StateIdle means no connection or devices are held.
	StateIdle State = iota
	// StateStarting means the channel and devices are being acquired.
	StateStarting
	// StateActive means audio is flowing in both directions.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}
