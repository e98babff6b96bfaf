package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/bittermandel/molnett-lb/routing"
	"go.uber.org/zap"
)

// File is a Loader that reads a YAML routing document from disk.
type File struct {
	Path   string
	Logger *zap.Logger
}

// Load reads and parses the file.
func (l *File) Load(context.Context) (*routing.Tables, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to read routes file: %w", err)
	}

	t, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}

	if l.Logger != nil {
		l.Logger.Info(
			"loaded routes from file",
			zap.String("path", l.Path),
			zap.Int("clients", t.Endpoints()),
			zap.Int("applications", t.Pools()),
		)
	}

	return t, nil
}
