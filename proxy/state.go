package proxy

// State indicates a request's progress through its life-cycle.
type State int

const (
	// StateReceived is the initial state of the request.
	StateReceived State = iota

	// StateResolved means that a destination has been chosen.
	StateResolved

	// StateForwarded means that the request has been sent to the destination.
	StateForwarded

	// StateResponded means that the response headers have been sent to the
	// client.
	StateResponded

	// StateFailed means that the request could not be forwarded, or the
	// exchange with the destination failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateResolved:
		return "resolved"
	case StateForwarded:
		return "forwarded"
	case StateResponded:
		return "responded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
