package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	"github.com/bittermandel/molnett-lb/statuspage"
	"github.com/bittermandel/molnett-lb/strategy"
	"github.com/bittermandel/molnett-lb/transport"
	"go.uber.org/zap"
)

// Handler is an http.Handler that forwards each request to the destination
// chosen by its strategy.
type Handler struct {
	Strategy strategy.Strategy

	// Transport sends outbound requests. It must understand the "h2c" scheme
	// if the strategy uses HTTP/2, as *transport.Pool does.
	Transport http.RoundTripper

	// NodeHeader and NodeName identify this process to clients. If NodeHeader
	// is non-empty it is added to every response.
	NodeHeader string
	NodeName   string

	StatusPageWriter statuspage.Writer
	Logger           *zap.Logger

	// FlushInterval is passed to httputil.ReverseProxy. A negative value
	// flushes after every write.
	FlushInterval time.Duration

	once  sync.Once
	proxy *httputil.ReverseProxy
}

// ServeHTTP forwards the request to its destination.
func (handler *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	txn := NewTransaction(writer, request)

	defer func() {
		txn.Close()
		logTransaction(handler.Logger, txn)
	}()

	defer handler.recoverPanic(txn)

	dest, err := handler.Strategy.Resolve(request)
	if err != nil {
		handler.fail(txn, err)
		return
	}
	txn.Resolve(dest)

	outbound := request.WithContext(withTransaction(request.Context(), txn))
	if request.Body != nil && request.Body != http.NoBody {
		outbound.Body = &countingReader{request.Body, &txn.Metrics.BytesIn}
	}

	handler.reverseProxy().ServeHTTP(txn.Writer, outbound)
}

func (handler *Handler) reverseProxy() *httputil.ReverseProxy {
	handler.once.Do(func() {
		handler.proxy = &httputil.ReverseProxy{
			Rewrite:        handler.rewrite,
			Transport:      handler.Transport,
			FlushInterval:  handler.FlushInterval,
			ModifyResponse: handler.modifyResponse,
			ErrorHandler:   handler.handleError,
			ErrorLog:       zap.NewStdLog(handler.logger().Named("reverseproxy")),
		}
	})

	return handler.proxy
}

func (handler *Handler) rewrite(pr *httputil.ProxyRequest) {
	txn, _ := TransactionFromContext(pr.In.Context())
	dest := txn.Destination

	pr.Out.URL.Scheme = dest.Protocol.Scheme()
	pr.Out.URL.Host = dest.Endpoint.Address
	pr.Out.Host = dest.Endpoint.Address

	// ReverseProxy drops query parameters it cannot parse before calling
	// Rewrite. The upstream gets the query exactly as the client sent it.
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	if pr.Out.URL.Path == "" && pr.Out.URL.Opaque == "" {
		pr.Out.URL.Path = "/"
		pr.Out.URL.RawPath = ""
	}

	pr.Out.Proto = dest.Protocol.String()
	pr.Out.ProtoMajor, pr.Out.ProtoMinor = dest.Protocol.Version()

	removeHopByHop(pr.In.Header, pr.Out.Header, dest.Protocol != transport.HTTP2)
	setForwardedFor(pr.In, pr.Out.Header)
	handler.Strategy.RewriteHeaders(pr.Out.Header, dest)

	txn.Forward()
}

func (handler *Handler) modifyResponse(response *http.Response) error {
	if handler.NodeHeader != "" {
		response.Header.Add(handler.NodeHeader, handler.NodeName)
	}

	if response.StatusCode == http.StatusSwitchingProtocols {
		if txn, ok := TransactionFromContext(response.Request.Context()); ok {
			txn.HeadersSent(response.StatusCode)
			logTransaction(handler.Logger, txn)
		}
	}

	return nil
}

func (handler *Handler) handleError(_ http.ResponseWriter, request *http.Request, err error) {
	txn, ok := TransactionFromContext(request.Context())
	if !ok {
		return
	}

	if errors.Is(err, context.Canceled) && request.Context().Err() != nil {
		// The client went away, there is no one to send a response to.
		txn.Fail(err)
		return
	}

	handler.fail(txn, err)
}

// fail records err against txn and, if no response has been started, sends an
// error page.
func (handler *Handler) fail(txn *Transaction, err error) {
	txn.Fail(err)

	if txn.StatusCode != 0 {
		return
	}

	statusWriter := handler.StatusPageWriter
	if statusWriter == nil {
		statusWriter = statuspage.DefaultWriter
	}

	if handler.NodeHeader != "" {
		txn.Writer.Header().Add(handler.NodeHeader, handler.NodeName)
	}

	page := statuspage.Page{
		Kind:      pageError(err).Kind,
		Node:      handler.NodeName,
		RequestID: txn.ID.String(),
	}

	if _, werr := statusWriter.Write(txn.Writer, txn.Request, page); werr != nil {
		handler.logger().Debug(
			"unable to write status page",
			zap.String("id", txn.ID.String()),
			zap.Error(werr),
		)
	}
}

// recoverPanic converts a panic into a 500 response. http.ErrAbortHandler is
// re-raised so that net/http aborts the response.
func (handler *Handler) recoverPanic(txn *Transaction) {
	v := recover()
	if v == nil {
		return
	}

	if v == http.ErrAbortHandler { //nolint:errorlint // compared by identity, as net/http does
		txn.Fail(fmt.Errorf("response aborted: %w", http.ErrAbortHandler))
		panic(v)
	}

	handler.logger().Error(
		"panic while handling request",
		zap.String("id", txn.ID.String()),
		zap.Any("panic", v),
		zap.Stack("stack"),
	)

	handler.fail(txn, statuspage.Error{
		Kind:  statuspage.Internal,
		Inner: fmt.Errorf("panic: %v", v),
	})
}

func (handler *Handler) logger() *zap.Logger {
	if handler.Logger == nil {
		return zap.NewNop()
	}
	return handler.Logger
}
