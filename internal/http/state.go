package http

// State is the lifecycle position of a single fetch.
type State int

const (
	StateUnsent State = iota
	StateOpened
	StateHeadersReceived
	StateLoading
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUnsent:
		return "unsent"
	case StateOpened:
		return "opened"
	case StateHeadersReceived:
		return "headers_received"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
