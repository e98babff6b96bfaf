package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration values for commands.
type Config struct {
	Mode              string
	InstanceID        int
	BindHost          string
	BasePort          int
	NodeName          string
	ApplicationHeader string
	NodeHeader        string
	ProxyProtocol     bool
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	LogLevel          zapcore.Level
	Upstream          upstreamConfig
	Routes            routesConfig
}

type upstreamConfig struct {
	DialTimeout          time.Duration
	ResponseTimeout      time.Duration
	IdleConnTimeout      time.Duration
	IdleTransportTimeout time.Duration
	MaxIdleConnsPerHost  int
}

type routesConfig struct {
	File          string
	RedisAddress  string
	RedisPassword string
	RedisPrefix   string
	Bucket        bucketConfig
}

type bucketConfig struct {
	Endpoint        string
	Region          string
	Name            string
	Key             string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// GetConfigFromEnvironment creates a Config based on the shell environment.
//
// args are the command-line arguments, excluding the program name. If present,
// the first argument is the mode and takes precedence over MODE.
func GetConfigFromEnvironment(args []string) (*Config, error) {
	var err error

	mode := env("MODE", "edge")
	if len(args) > 0 {
		mode = args[0]
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	id := envInt(&err, "INSTANCE_ID", 0)
	if id < 0 {
		err = multierr.Append(err, fmt.Errorf("INSTANCE_ID must not be negative, got %d", id))
	}

	var level zapcore.Level
	if e := level.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); e != nil {
		err = multierr.Append(err, fmt.Errorf("LOG_LEVEL: %w", e))
	}

	config := &Config{
		Mode:              mode,
		InstanceID:        int(id),
		BindHost:          env("BIND_HOST", "127.0.0.1"),
		BasePort:          int(envInt(&err, "BASE_PORT", 8080)),
		NodeName:          env("NODE_NAME", fmt.Sprintf("%s-%d", mode, id)),
		ApplicationHeader: env("APPLICATION_HEADER", "X-Molnett-Application"),
		NodeHeader:        env("NODE_HEADER", "X-Molnett-Worker"),
		ProxyProtocol:     envBool(&err, "PROXY_PROTOCOL", false),
		ReadHeaderTimeout: envDuration(&err, "READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownTimeout:   envDuration(&err, "SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:          level,
		Upstream: upstreamConfig{
			DialTimeout:          envDuration(&err, "DIAL_TIMEOUT", 10*time.Second),
			ResponseTimeout:      envDuration(&err, "UPSTREAM_TIMEOUT", 30*time.Second),
			IdleConnTimeout:      envDuration(&err, "IDLE_CONN_TIMEOUT", 90*time.Second),
			IdleTransportTimeout: envDuration(&err, "IDLE_TRANSPORT_TIMEOUT", 5*time.Minute),
			MaxIdleConnsPerHost:  int(envInt(&err, "MAX_IDLE_CONNS_PER_HOST", 0)),
		},
		Routes: routesConfig{
			File:          env("ROUTES_FILE", ""),
			RedisAddress:  env("REDIS_ADDR", ""),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisPrefix:   env("REDIS_PREFIX", "molnett"),
			Bucket: bucketConfig{
				Endpoint:        env("ROUTES_BUCKET_ENDPOINT", ""),
				Region:          env("ROUTES_BUCKET_REGION", "us-east-1"),
				Name:            env("ROUTES_BUCKET", ""),
				Key:             env("ROUTES_BUCKET_KEY", "routes.yaml"),
				AccessKeyID:     env("ROUTES_BUCKET_ACCESS_KEY", ""),
				SecretAccessKey: env("ROUTES_BUCKET_SECRET_KEY", ""),
				UseSSL:          envBool(&err, "ROUTES_BUCKET_SSL", true),
			},
		},
	}

	if err != nil {
		return nil, err
	}

	return config, nil
}

func env(key string, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return def
}

func envInt(errs *error, key string, def int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return i
	}

	return def
}

func envBool(errs *error, key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return b
	}

	return def
}

func envDuration(errs *error, key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}

	return def
}
