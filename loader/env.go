package loader

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bittermandel/molnett-lb/routing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Env is a Loader that reads routes from environment variables of the form:
//
//	ROUTE_EDGE_<TAG>=<client-ip> <host:port> <application>
//	ROUTE_POOL_<TAG>=<application> [<host:port>[,<host:port>...]]
type Env struct {
	// Environ returns the environment as "KEY=value" pairs. If nil,
	// os.Environ is used.
	Environ func() []string
	Logger  *zap.Logger
}

// Load parses every route variable. All invalid variables are reported.
func (l *Env) Load(context.Context) (*routing.Tables, error) {
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}

	b := &routing.Builder{}
	count, err := fromEnv(b, environ())
	if err != nil {
		return nil, err
	}

	if l.Logger != nil && count > 0 {
		l.Logger.Info("loaded routes from environment", zap.Int("routes", count))
	}

	return b.Build(), nil
}

func fromEnv(b *routing.Builder, env []string) (count int, err error) {
	for _, kv := range env {
		if groups := edgePattern.FindStringSubmatch(kv); groups != nil {
			if e := addClient(b, groups[2], groups[3], groups[4]); e != nil {
				err = multierr.Append(err, fmt.Errorf("ROUTE_EDGE_%s: %w", groups[1], e))
				continue
			}
			count++
		} else if groups := poolPattern.FindStringSubmatch(kv); groups != nil {
			var addresses []string
			if groups[3] != "" {
				addresses = strings.Split(groups[3], ",")
			}
			if e := addPool(b, groups[2], addresses); e != nil {
				err = multierr.Append(err, fmt.Errorf("ROUTE_POOL_%s: %w", groups[1], e))
				continue
			}
			count++
		} else if strings.HasPrefix(kv, "ROUTE_EDGE_") || strings.HasPrefix(kv, "ROUTE_POOL_") {
			key, _, _ := strings.Cut(kv, "=")
			err = multierr.Append(err, fmt.Errorf("%s: malformed route", key))
		}
	}

	return count, err
}

var (
	edgePattern = regexp.MustCompile(`^ROUTE_EDGE_([^\s=]+)=(\S+)\s+(\S+)\s+(\S+)\s*$`)
	poolPattern = regexp.MustCompile(`^ROUTE_POOL_([^\s=]+)=(\S+)(?:\s+(\S+))?\s*$`)
)
