// Package loader builds routing tables from configuration sources.
//
// Loaders run once, before the proxy starts serving. The forwarding path only
// ever reads the resulting routing.Store.
package loader

import (
	"context"
	"fmt"
	"net"

	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/name"
	"github.com/bittermandel/molnett-lb/routing"
	"go.uber.org/multierr"
)

// Loader produces routing tables from a configuration source.
type Loader interface {
	Load(ctx context.Context) (*routing.Tables, error)
}

// Aggregate is a Loader that merges the tables of several loaders. Entries
// from later loaders replace entries with the same key from earlier ones.
type Aggregate []Loader

// Load runs every loader in order. If any loader fails, the errors of all
// failing loaders are returned.
func (a Aggregate) Load(ctx context.Context) (*routing.Tables, error) {
	b := &routing.Builder{}

	var err error
	for _, l := range a {
		t, e := l.Load(ctx)
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		b.Merge(t)
	}

	if err != nil {
		return nil, err
	}

	return b.Build(), nil
}

// Defaults is a Loader that returns the built-in routing tables, used when no
// other source is configured.
type Defaults struct{}

// Load returns the built-in tables.
func (Defaults) Load(context.Context) (*routing.Tables, error) {
	return (&routing.Builder{}).
		WithEndpoint("127.0.0.1", backend.Endpoint{Address: "localhost:8081"}).
		WithApplication("127.0.0.1", "molnett").
		WithPool(
			"molnett",
			backend.Endpoint{Address: "localhost:8082"},
			backend.Endpoint{Address: "localhost:8000"},
		).
		Build(), nil
}

// addClient validates and records an edge binding.
func addClient(b *routing.Builder, client, endpoint, app string) error {
	ip := net.ParseIP(client)
	if ip == nil {
		return fmt.Errorf("client address '%s' is not an IP address", client)
	}

	ep, err := backend.ParseEndpoint(endpoint)
	if err != nil {
		return fmt.Errorf("client '%s': %w", client, err)
	}

	app, err = name.ApplicationFromHeader(app)
	if err != nil {
		return fmt.Errorf("client '%s': %w", client, err)
	}

	b.WithEndpoint(ip.String(), ep).WithApplication(ip.String(), app)
	return nil
}

// addPool validates and records a worker pool. An empty list of addresses
// records an empty pool.
func addPool(b *routing.Builder, app string, addresses []string) error {
	normalized, err := name.ApplicationFromHeader(app)
	if err != nil {
		return err
	}

	pool := make([]backend.Endpoint, 0, len(addresses))
	for _, addr := range addresses {
		ep, e := backend.ParseEndpoint(addr)
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("application '%s': %w", normalized, e))
			continue
		}
		pool = append(pool, ep)
	}

	if err != nil {
		return err
	}

	b.WithPool(normalized, pool...)
	return nil
}
