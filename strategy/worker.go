package strategy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/name"
	"github.com/bittermandel/molnett-lb/transport"
)

// WorkerStrategy routes by the application named in the request header, to a
// random member of that application's worker pool.
type WorkerStrategy struct {
	Routes            Routes
	Picker            backend.Picker
	ApplicationHeader string
}

// Mode returns Worker.
func (s *WorkerStrategy) Mode() Mode { return Worker }

// Protocol returns transport.HTTP11.
func (s *WorkerStrategy) Protocol() transport.Protocol { return transport.HTTP11 }

// Resolve picks a worker for the application named by r's application header.
func (s *WorkerStrategy) Resolve(r *http.Request) (Destination, error) {
	value := r.Header.Get(s.ApplicationHeader)
	if value == "" {
		return Destination{}, fmt.Errorf("%w: %s", ErrHeaderMissing, s.ApplicationHeader)
	}

	app, err := name.ApplicationFromHeader(value)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %s: %w", ErrHeaderMissing, s.ApplicationHeader, err)
	}

	pool, err := s.Routes.LookupWorkerPool(app)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %w", ErrRouteNotFound, err)
	}

	if len(pool) == 0 {
		return Destination{}, fmt.Errorf("%w: application '%s'", ErrPoolEmpty, app)
	}

	picker := s.Picker
	if picker == nil {
		picker = backend.RandomPicker{}
	}

	ep, err := picker.Pick(pool)
	if errors.Is(err, backend.ErrEmptyPool) {
		return Destination{}, fmt.Errorf("%w: application '%s'", ErrPoolEmpty, app)
	} else if err != nil {
		return Destination{}, err
	}

	return Destination{
		Endpoint:    ep,
		Application: app,
		Protocol:    transport.HTTP11,
	}, nil
}

// RewriteHeaders leaves the outbound headers unchanged; the application header
// is forwarded as received.
func (s *WorkerStrategy) RewriteHeaders(http.Header, Destination) {}
