package strategy

import (
	"fmt"
	"strings"
)

// Mode is the role a process plays in the two-tier proxy.
type Mode int

const (
	// Edge forwards client traffic to the service endpoint bound to the
	// client's address, over HTTP/2.
	Edge Mode = iota

	// Worker forwards traffic to a member of the application's worker pool,
	// over HTTP/1.1.
	Worker
)

// ParseMode parses a mode name. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "edge":
		return Edge, nil
	case "worker":
		return Worker, nil
	default:
		return 0, fmt.Errorf("unknown mode '%s', expected 'edge' or 'worker'", s)
	}
}

func (m Mode) String() string {
	switch m {
	case Edge:
		return "edge"
	case Worker:
		return "worker"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
