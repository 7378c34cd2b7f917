package session

// State is the lifecycle phase of a Session.
type State int32

const (
	Idle State = iota
	Opening
	Streaming
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Streaming:
		return "streaming"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// canStart reports whether a new run may begin from s.
func (s State) canStart() bool {
	return s == Idle || s == Stopped
}
