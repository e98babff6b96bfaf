package frontend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bittermandel/molnett-lb/proxyprotocol"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// DefaultShutdownTimeout is the time allowed for in-flight requests to
// complete once Serve's context is canceled.
const DefaultShutdownTimeout = 10 * time.Second

// ListenAddress returns the address an instance listens on. The port is the
// base port offset by the instance id.
func ListenAddress(host string, basePort, id int) (string, error) {
	port := basePort + id
	if id < 0 || port < 1 || port > 65535 {
		return "", fmt.Errorf("instance %d with base port %d gives invalid port %d", id, basePort, port)
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// Server accepts inbound connections and serves both HTTP/1.1 and cleartext
// HTTP/2 on the same port.
type Server struct {
	Address           string
	ProxyProtocol     bool
	Handler           http.Handler
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.Logger
}

// Listen binds the server's address.
func (s *Server) Listen() (net.Listener, error) {
	l, err := net.Listen("tcp", s.Address)
	if err != nil {
		return nil, fmt.Errorf("unable to bind %s: %w", s.Address, err)
	}

	if s.ProxyProtocol {
		l = proxyprotocol.NewListener(l)
	}

	return l, nil
}

// Serve accepts connections on l until ctx is canceled or the listener fails.
//
// Cancelling ctx shuts the server down gracefully, in which case the return
// value is the result of the shutdown rather than http.ErrServerClosed.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	logger := s.logger()

	server := &http.Server{
		Handler:           h2c.NewHandler(s.Handler, &http2.Server{}),
		ReadHeaderTimeout: s.ReadHeaderTimeout,
		ConnContext:       WithConn,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	logger.Info("listening", zap.String("address", l.Addr().String()), zap.Bool("proxy_protocol", s.ProxyProtocol))

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(l)
	}()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down", zap.Duration("timeout", timeout))
	err := server.Shutdown(shutdownCtx)

	if serveErr := <-served; !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}

	return err
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
