package routing

import (
	"net"
	"strings"

	"github.com/bittermandel/molnett-lb/backend"
)

// Tables is an immutable snapshot of the routing state.
//
// Tables values are only produced by a Builder, which copies its input, so a
// published snapshot can be shared by any number of goroutines without
// locking.
type Tables struct {
	endpoints    map[string]backend.Endpoint
	applications map[string]string
	pools        map[string][]backend.Endpoint
}

// Endpoints returns the number of client identities with a bound endpoint.
func (t *Tables) Endpoints() int {
	if t == nil {
		return 0
	}
	return len(t.endpoints)
}

// Applications returns the number of client identities with a bound
// application.
func (t *Tables) Applications() int {
	if t == nil {
		return 0
	}
	return len(t.applications)
}

// Pools returns the number of applications with a worker pool.
func (t *Tables) Pools() int {
	if t == nil {
		return 0
	}
	return len(t.pools)
}

// Builder accumulates routing entries and produces an immutable Tables value.
//
// The zero value is ready to use. Later entries for the same key replace
// earlier ones.
type Builder struct {
	endpoints    map[string]backend.Endpoint
	applications map[string]string
	pools        map[string][]backend.Endpoint
}

// WithEndpoint binds the client identity to a single destination endpoint.
func (b *Builder) WithEndpoint(client string, ep backend.Endpoint) *Builder {
	if b.endpoints == nil {
		b.endpoints = map[string]backend.Endpoint{}
	}
	b.endpoints[ClientKey(client)] = ep
	return b
}

// WithApplication binds the client identity to an application name.
func (b *Builder) WithApplication(client, app string) *Builder {
	if b.applications == nil {
		b.applications = map[string]string{}
	}
	b.applications[ClientKey(client)] = ApplicationKey(app)
	return b
}

// WithPool binds the application name to a pool of worker endpoints. An empty
// pool is recorded as such.
func (b *Builder) WithPool(app string, pool ...backend.Endpoint) *Builder {
	if b.pools == nil {
		b.pools = map[string][]backend.Endpoint{}
	}
	b.pools[ApplicationKey(app)] = append([]backend.Endpoint{}, pool...)
	return b
}

// Merge copies every entry of t into the builder, replacing existing keys.
func (b *Builder) Merge(t *Tables) *Builder {
	if t == nil {
		return b
	}
	for k, v := range t.endpoints {
		b.WithEndpoint(k, v)
	}
	for k, v := range t.applications {
		b.WithApplication(k, v)
	}
	for k, v := range t.pools {
		b.WithPool(k, v...)
	}
	return b
}

// Build returns a snapshot of the builder's current entries. The builder may
// continue to be used; it never shares memory with the returned snapshot.
func (b *Builder) Build() *Tables {
	t := &Tables{
		endpoints:    make(map[string]backend.Endpoint, len(b.endpoints)),
		applications: make(map[string]string, len(b.applications)),
		pools:        make(map[string][]backend.Endpoint, len(b.pools)),
	}

	for k, v := range b.endpoints {
		t.endpoints[k] = v
	}
	for k, v := range b.applications {
		t.applications[k] = v
	}
	for k, v := range b.pools {
		t.pools[k] = append([]backend.Endpoint{}, v...)
	}

	return t
}

// ClientKey normalizes a client identity. IP addresses are rendered in their
// canonical form so that, for example, "::ffff:127.0.0.1" and "127.0.0.1"
// share a key.
func ClientKey(client string) string {
	client = strings.TrimSpace(client)
	if ip := net.ParseIP(client); ip != nil {
		return ip.String()
	}
	return client
}

// ApplicationKey normalizes an application name.
func ApplicationKey(app string) string {
	return strings.ToLower(strings.TrimSpace(app))
}
