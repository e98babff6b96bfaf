package routing

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bittermandel/molnett-lb/backend"
)

// ErrNotFound is returned by lookups when the key is absent from the tables.
var ErrNotFound = errors.New("no route")

// Store provides read-only lookups against the current routing snapshot.
//
// Lookups take no locks; each lookup reads exactly one snapshot, so a
// concurrent Publish is never observed half-applied. The zero value behaves as
// a store with empty tables.
type Store struct {
	tables atomic.Pointer[Tables]
}

// NewStore returns a store serving the given snapshot.
func NewStore(t *Tables) *Store {
	s := &Store{}
	s.Publish(t)
	return s
}

// Publish atomically replaces the current snapshot.
func (s *Store) Publish(t *Tables) {
	if t == nil {
		t = (&Builder{}).Build()
	}
	s.tables.Store(t)
}

// Snapshot returns the current snapshot. It never returns nil.
func (s *Store) Snapshot() *Tables {
	if t := s.tables.Load(); t != nil {
		return t
	}
	return &Tables{}
}

// LookupEndpoint returns the destination endpoint bound to a client identity.
func (s *Store) LookupEndpoint(client string) (backend.Endpoint, error) {
	key := ClientKey(client)
	if ep, ok := s.Snapshot().endpoints[key]; ok {
		return ep, nil
	}
	return backend.Endpoint{}, fmt.Errorf("%w: no endpoint for client '%s'", ErrNotFound, key)
}

// LookupApplication returns the application name bound to a client identity.
func (s *Store) LookupApplication(client string) (string, error) {
	key := ClientKey(client)
	if app, ok := s.Snapshot().applications[key]; ok {
		return app, nil
	}
	return "", fmt.Errorf("%w: no application for client '%s'", ErrNotFound, key)
}

// LookupWorkerPool returns the worker endpoints of an application.
//
// The returned slice must not be modified. It may be empty if the application
// was configured with no endpoints.
func (s *Store) LookupWorkerPool(app string) ([]backend.Endpoint, error) {
	key := ApplicationKey(app)
	if pool, ok := s.Snapshot().pools[key]; ok {
		return pool, nil
	}
	return nil, fmt.Errorf("%w: no worker pool for application '%s'", ErrNotFound, key)
}
