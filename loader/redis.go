package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bittermandel/molnett-lb/routing"
	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultRedisPrefix is the key prefix used when Redis.Prefix is empty.
const DefaultRedisPrefix = "molnett"

// Redis is a Loader that reads routes from a Redis server.
//
// Each edge client is a hash at "<prefix>:clients:<ip>" with the fields
// "endpoint" and "application". Each worker pool is a set of "host:port"
// members at "<prefix>:pools:<application>".
type Redis struct {
	Client redis.Cmdable
	Prefix string
	Logger *zap.Logger
}

// Load scans the server for client and pool keys.
func (l *Redis) Load(ctx context.Context) (*routing.Tables, error) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	b := &routing.Builder{}

	clients, err := l.keys(ctx, prefix+":clients:")
	if err != nil {
		return nil, err
	}

	pools, err := l.keys(ctx, prefix+":pools:")
	if err != nil {
		return nil, err
	}

	var invalid error

	for _, key := range clients {
		fields, err := l.Client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", key, err)
		}

		client := strings.TrimPrefix(key, prefix+":clients:")
		if e := addClient(b, client, fields["endpoint"], fields["application"]); e != nil {
			invalid = multierr.Append(invalid, fmt.Errorf("%s: %w", key, e))
		}
	}

	for _, key := range pools {
		members, err := l.Client.SMembers(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", key, err)
		}
		sort.Strings(members)

		app := strings.TrimPrefix(key, prefix+":pools:")
		if e := addPool(b, app, members); e != nil {
			invalid = multierr.Append(invalid, fmt.Errorf("%s: %w", key, e))
		}
	}

	if invalid != nil {
		return nil, invalid
	}

	if l.Logger != nil {
		l.Logger.Info(
			"loaded routes from redis",
			zap.String("prefix", prefix),
			zap.Int("clients", len(clients)),
			zap.Int("applications", len(pools)),
		)
	}

	return b.Build(), nil
}

func (l *Redis) keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := l.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("unable to scan %s*: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}
