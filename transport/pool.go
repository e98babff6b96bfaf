package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDialTimeout is used when Pool.DialTimeout is zero.
	DefaultDialTimeout = 10 * time.Second

	// DefaultIdleTransportTimeout is used when Pool.IdleTransportTimeout is zero.
	DefaultIdleTransportTimeout = 5 * time.Minute
)

// Pool is an http.RoundTripper that keeps one pooled round tripper per
// destination.
//
// A destination is the pair of protocol (chosen by the request URL's scheme,
// see Protocol.Scheme) and "host:port". Each destination's round tripper
// reuses its connections across requests. A destination that sees no requests
// for IdleTransportTimeout is evicted and its connections closed.
type Pool struct {
	// DialTimeout bounds establishing a TCP connection.
	DialTimeout time.Duration

	// IdleConnTimeout is how long an idle connection stays open. Zero leaves
	// idle connections open until their destination is evicted.
	IdleConnTimeout time.Duration

	// IdleTransportTimeout is how long a destination may go unused before it
	// is evicted.
	IdleTransportTimeout time.Duration

	// ResponseTimeout bounds the time from sending the request until the
	// response headers are received. Zero means no bound.
	ResponseTimeout time.Duration

	// MaxIdleConnsPerHost limits idle HTTP/1.1 connections kept per
	// destination. Zero uses the net/http default.
	MaxIdleConnsPerHost int

	// Clock is the time source for timeouts and eviction. If nil, the real
	// clock is used.
	Clock clockwork.Clock

	// Logger receives debug messages about destinations. If nil, nothing is
	// logged.
	Logger *zap.Logger

	once    sync.Once
	ctx     context.Context //nolint:containedctx
	cancel  context.CancelFunc
	workers sync.WaitGroup

	mu      sync.RWMutex
	targets map[target]*targetEntry
	closed  bool
}

type target struct {
	protocol Protocol
	hostPort string
}

func (t target) String() string {
	return t.protocol.Scheme() + "://" + t.hostPort
}

type targetEntry struct {
	roundTripper http.RoundTripper
	close        func()
	activity     chan struct{}
}

func (p *Pool) init() {
	p.once.Do(func() {
		p.ctx, p.cancel = context.WithCancel(context.Background())
		p.targets = map[target]*targetEntry{}
	})
}

// RoundTrip sends the request to the destination named by its URL.
//
// The request URL's scheme selects the protocol: "h2c" for HTTP/2 over
// clear-text, "http" for HTTP/1.1.
func (p *Pool) RoundTrip(request *http.Request) (*http.Response, error) {
	protocol, ok := ProtocolFromScheme(request.URL.Scheme)
	if !ok {
		closeBody(request)
		return nil, fmt.Errorf("%w: unsupported URL scheme '%s'", ErrUpstreamUnreachable, request.URL.Scheme)
	}

	entry, err := p.getOrCreate(target{protocol, request.URL.Host})
	if err != nil {
		closeBody(request)
		return nil, err
	}

	if request.URL.Scheme != "http" {
		request = withScheme(request, "http")
	}

	return p.exchange(entry.roundTripper, request)
}

// Targets returns the number of destinations currently held by the pool.
func (p *Pool) Targets() int {
	p.init()

	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.targets)
}

// Close evicts every destination and closes its idle connections. Requests
// made after Close fail with ErrClosed.
func (p *Pool) Close() error {
	p.init()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	entries := p.targets
	p.targets = map[target]*targetEntry{}
	p.mu.Unlock()

	p.cancel()
	p.workers.Wait()

	var grp errgroup.Group
	for _, entry := range entries {
		entry := entry
		grp.Go(func() error {
			entry.close()
			return nil
		})
	}

	return grp.Wait()
}

// exchange performs the round trip, bounding the wait for response headers.
func (p *Pool) exchange(rt http.RoundTripper, request *http.Request) (*http.Response, error) {
	parent := request.Context()

	if p.ResponseTimeout <= 0 {
		response, err := rt.RoundTrip(request)
		if err != nil {
			return nil, classify(parent, err, false)
		}
		return response, nil
	}

	ctx, cancel := context.WithCancel(parent)
	var timedOut atomic.Bool
	timer := p.clock().AfterFunc(p.ResponseTimeout, func() {
		timedOut.Store(true)
		cancel()
	})

	response, err := rt.RoundTrip(request.WithContext(ctx))
	timer.Stop()

	if err != nil {
		cancel()
		return nil, classify(parent, err, timedOut.Load())
	}

	if timedOut.Load() {
		response.Body.Close()
		cancel()
		return nil, classify(parent, context.DeadlineExceeded, true)
	}

	// The context must outlive the round trip so the body can be read.
	if rwc, ok := response.Body.(io.ReadWriteCloser); ok {
		response.Body = &cancelOnCloseWriter{ReadWriteCloser: rwc, cancel: cancel}
	} else {
		response.Body = &cancelOnClose{ReadCloser: response.Body, cancel: cancel}
	}

	return response, nil
}

// getOrCreate returns the entry for dest, creating one if none exists.
func (p *Pool) getOrCreate(dest target) (*targetEntry, error) {
	p.init()

	p.mu.RLock()
	closed := p.closed
	entry := p.getLocked(dest)
	p.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if entry != nil {
		return entry, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// double-check in case things changed while upgrading lock
	if p.closed {
		return nil, ErrClosed
	}
	if entry = p.getLocked(dest); entry != nil {
		return entry, nil
	}

	rt, closeFunc := p.newRoundTripper(dest)
	entry = &targetEntry{
		roundTripper: rt,
		close:        closeFunc,
		activity:     make(chan struct{}, 1),
	}
	p.targets[dest] = entry

	p.workers.Add(1)
	go p.closeWhenIdle(dest, entry)

	p.logger().Debug("transport: created destination", zap.Stringer("target", dest))

	return entry, nil
}

func (p *Pool) getLocked(dest target) *targetEntry {
	entry := p.targets[dest]
	if entry != nil {
		// Signalling activity while the lock is held avoids racing with the
		// idle timer trying to evict this destination.
		select {
		case entry.activity <- struct{}{}:
		default:
		}
	}
	return entry
}

func (p *Pool) closeWhenIdle(dest target, entry *targetEntry) {
	defer p.workers.Done()

	timeout := p.IdleTransportTimeout
	if timeout <= 0 {
		timeout = DefaultIdleTransportTimeout
	}

	timer := p.clock().NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.Chan():
			if p.tryRemove(dest, entry) {
				entry.close()
				p.logger().Debug("transport: evicted idle destination", zap.Stringer("target", dest))
				return
			}
			// Concurrent activity, so try again later.
			timer.Reset(timeout)
		case <-entry.activity:
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
			timer.Reset(timeout)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) tryRemove(dest target, entry *targetEntry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	// need to check activity after lock acquired to make
	// sure we aren't racing with use of this destination
	select {
	case <-entry.activity:
		return false
	default:
	}

	if p.targets[dest] == entry {
		delete(p.targets, dest)
	}
	return true
}

func (p *Pool) newRoundTripper(dest target) (http.RoundTripper, func()) {
	dialer := &net.Dialer{
		Timeout:   p.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if dialer.Timeout <= 0 {
		dialer.Timeout = DefaultDialTimeout
	}

	if dest.protocol == HTTP2 {
		t := &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
			IdleConnTimeout:    p.IdleConnTimeout,
			DisableCompression: true,
		}
		return t, t.CloseIdleConnections
	}

	t := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConnsPerHost:   p.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.IdleConnTimeout,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
		// A non-nil, empty map disables HTTP/2 upgrades.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	return t, t.CloseIdleConnections
}

func (p *Pool) clock() clockwork.Clock {
	if p.Clock == nil {
		return clockwork.NewRealClock()
	}
	return p.Clock
}

func (p *Pool) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// withScheme returns a shallow copy of request with a different URL scheme.
func withScheme(request *http.Request, scheme string) *http.Request {
	r := new(http.Request)
	*r = *request
	u := *request.URL
	u.Scheme = scheme
	r.URL = &u
	return r
}

func closeBody(request *http.Request) {
	if request.Body != nil {
		request.Body.Close()
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// cancelOnCloseWriter preserves io.Writer on bodies of 101 Switching Protocols
// responses, which httputil.ReverseProxy needs to relay upgraded connections.
type cancelOnCloseWriter struct {
	io.ReadWriteCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseWriter) Close() error {
	err := b.ReadWriteCloser.Close()
	b.cancel()
	return err
}
