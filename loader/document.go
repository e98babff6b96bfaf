package loader

import (
	"fmt"
	"sort"

	"github.com/bittermandel/molnett-lb/routing"
	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"
)

// Document is the YAML form of the routing tables:
//
//	clients:
//	  - address: 127.0.0.1
//	    endpoint: localhost:8081
//	    application: molnett
//	applications:
//	  molnett: [localhost:8082, localhost:8000]
type Document struct {
	Clients      []ClientEntry       `yaml:"clients"`
	Applications map[string][]string `yaml:"applications"`
}

// ClientEntry binds one client address to an endpoint and an application.
type ClientEntry struct {
	Address     string `yaml:"address"`
	Endpoint    string `yaml:"endpoint"`
	Application string `yaml:"application"`
}

// ParseDocument decodes a YAML routing document and builds its tables.
func ParseDocument(data []byte) (*routing.Tables, error) {
	var doc Document
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("invalid routing document: %w", err)
	}

	return doc.Tables()
}

// Tables validates the document and builds its routing tables.
func (doc Document) Tables() (*routing.Tables, error) {
	b := &routing.Builder{}

	var err error
	for i, c := range doc.Clients {
		if e := addClient(b, c.Address, c.Endpoint, c.Application); e != nil {
			err = multierr.Append(err, fmt.Errorf("clients[%d]: %w", i, e))
		}
	}

	apps := make([]string, 0, len(doc.Applications))
	for app := range doc.Applications {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	for _, app := range apps {
		if e := addPool(b, app, doc.Applications[app]); e != nil {
			err = multierr.Append(err, fmt.Errorf("applications[%s]: %w", app, e))
		}
	}

	if err != nil {
		return nil, err
	}

	return b.Build(), nil
}
