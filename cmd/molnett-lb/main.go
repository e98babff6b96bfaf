package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/cmd"
	"github.com/bittermandel/molnett-lb/frontend"
	"github.com/bittermandel/molnett-lb/loader"
	"github.com/bittermandel/molnett-lb/proxy"
	"github.com/bittermandel/molnett-lb/routing"
	"github.com/bittermandel/molnett-lb/strategy"
	"github.com/bittermandel/molnett-lb/transport"
	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var version = "notset"

func main() {
	config, err := cmd.GetConfigFromEnvironment(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	logger.Info("stopped")
}

func run(ctx context.Context, config *cmd.Config, logger *zap.Logger) (err error) {
	mode, err := strategy.ParseMode(config.Mode)
	if err != nil {
		return err
	}

	addr, err := frontend.ListenAddress(config.BindHost, config.BasePort, config.InstanceID)
	if err != nil {
		return err
	}

	tables, err := loadRoutes(ctx, config, logger)
	if err != nil {
		return err
	}

	s, err := strategy.New(mode, strategy.Options{
		Routes:            routing.NewStore(tables),
		Picker:            backend.RandomPicker{},
		ApplicationHeader: config.ApplicationHeader,
		Logger:            logger.Named("strategy"),
	})
	if err != nil {
		return err
	}

	pool := &transport.Pool{
		DialTimeout:          config.Upstream.DialTimeout,
		ResponseTimeout:      config.Upstream.ResponseTimeout,
		IdleConnTimeout:      config.Upstream.IdleConnTimeout,
		IdleTransportTimeout: config.Upstream.IdleTransportTimeout,
		MaxIdleConnsPerHost:  config.Upstream.MaxIdleConnsPerHost,
		Logger:               logger.Named("transport"),
	}
	defer func() {
		err = multierr.Append(err, pool.Close())
	}()

	server := &frontend.Server{
		Address:           addr,
		ProxyProtocol:     config.ProxyProtocol,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		ShutdownTimeout:   config.ShutdownTimeout,
		Logger:            logger,
		Handler: &proxy.Handler{
			Strategy:   s,
			Transport:  pool,
			NodeHeader: config.NodeHeader,
			NodeName:   config.NodeName,
			Logger:     logger.Named("access"),
		},
	}

	listener, err := server.Listen()
	if err != nil {
		return err
	}

	logger.Info(
		"started",
		zap.String("version", version),
		zap.Stringer("mode", mode),
		zap.String("node", config.NodeName),
		zap.Int("clients", tables.Endpoints()),
		zap.Int("applications", tables.Pools()),
	)

	return server.Serve(ctx, listener)
}

// loadRoutes builds the routing tables from every configured source. The
// built-in defaults are used if the sources provide no routes at all.
func loadRoutes(ctx context.Context, config *cmd.Config, logger *zap.Logger) (*routing.Tables, error) {
	var loaders loader.Aggregate

	if config.Routes.File != "" {
		loaders = append(loaders, &loader.File{
			Path:   config.Routes.File,
			Logger: logger,
		})
	}

	if config.Routes.Bucket.Name != "" {
		client, err := loader.NewObjectClient(
			config.Routes.Bucket.Endpoint,
			config.Routes.Bucket.Region,
			config.Routes.Bucket.AccessKeyID,
			config.Routes.Bucket.SecretAccessKey,
			config.Routes.Bucket.UseSSL,
		)
		if err != nil {
			return nil, err
		}

		loaders = append(loaders, &loader.Object{
			Client: client,
			Bucket: config.Routes.Bucket.Name,
			Key:    config.Routes.Bucket.Key,
			Logger: logger,
		})
	}

	if config.Routes.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Routes.RedisAddress,
			Password: config.Routes.RedisPassword,
		})
		defer rdb.Close()

		loaders = append(loaders, &loader.Redis{
			Client: rdb,
			Prefix: config.Routes.RedisPrefix,
			Logger: logger,
		})
	}

	loaders = append(loaders, &loader.Env{Logger: logger})

	tables, err := loaders.Load(ctx)
	if err != nil {
		return nil, err
	}

	if tables.Endpoints() == 0 && tables.Applications() == 0 && tables.Pools() == 0 {
		logger.Warn("no routes configured, using built-in defaults")
		return loader.Defaults{}.Load(ctx)
	}

	return tables, nil
}

func newLogger(config *cmd.Config) (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(config.LogLevel)

	logger, err := c.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("node", config.NodeName),
		zap.Int("instance", config.InstanceID),
	), nil
}
