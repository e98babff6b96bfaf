package strategy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/transport"
	"go.uber.org/zap"
)

var (
	// ErrHeaderMissing means a worker received a request without a usable
	// application header.
	ErrHeaderMissing = errors.New("application header missing")

	// ErrRouteNotFound means the routing tables have no entry for the request.
	ErrRouteNotFound = errors.New("route not found")

	// ErrPoolEmpty means the application's worker pool has no members.
	ErrPoolEmpty = errors.New("worker pool is empty")
)

const (
	// DefaultApplicationHeader carries the application name from the edge
	// tier to the worker tier.
	DefaultApplicationHeader = "X-Molnett-Application"

	// DefaultNodeHeader is added to every response to identify the node that
	// handled it.
	DefaultNodeHeader = "X-Molnett-Worker"
)

// Destination is where a single request is forwarded.
type Destination struct {
	Endpoint    backend.Endpoint
	Application string
	Protocol    transport.Protocol
}

// Routes is the read-only routing data a strategy resolves against.
// *routing.Store satisfies it.
type Routes interface {
	LookupEndpoint(client string) (backend.Endpoint, error)
	LookupApplication(client string) (string, error)
	LookupWorkerPool(app string) ([]backend.Endpoint, error)
}

// Strategy decides where and how a request is forwarded. Each process uses
// exactly one strategy, chosen at startup by its mode.
type Strategy interface {
	// Mode returns the mode this strategy implements.
	Mode() Mode

	// Resolve returns the destination for r. The error, if any, wraps one of
	// ErrHeaderMissing, ErrRouteNotFound or ErrPoolEmpty.
	Resolve(r *http.Request) (Destination, error)

	// Protocol returns the outbound protocol used by this strategy.
	Protocol() transport.Protocol

	// RewriteHeaders applies mode-specific changes to the outbound headers.
	RewriteHeaders(out http.Header, dest Destination)
}

// Options configures a strategy.
type Options struct {
	Routes            Routes
	Picker            backend.Picker
	ApplicationHeader string
	Logger            *zap.Logger
}

// New returns the strategy for mode.
func New(mode Mode, opts Options) (Strategy, error) {
	if opts.Routes == nil {
		return nil, errors.New("routing tables are required")
	}

	header := opts.ApplicationHeader
	if header == "" {
		header = DefaultApplicationHeader
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch mode {
	case Edge:
		return &EdgeStrategy{
			Routes:            opts.Routes,
			ApplicationHeader: header,
			Logger:            logger,
		}, nil
	case Worker:
		picker := opts.Picker
		if picker == nil {
			picker = backend.RandomPicker{}
		}
		return &WorkerStrategy{
			Routes:            opts.Routes,
			Picker:            picker,
			ApplicationHeader: header,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", mode)
	}
}
