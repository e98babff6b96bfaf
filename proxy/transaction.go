package proxy

import (
	"context"
	"net/http"

	"github.com/bittermandel/molnett-lb/strategy"
	"github.com/google/uuid"
)

// Transaction stores the state of an HTTP request across its lifetime.
type Transaction struct {
	// ID uniquely identifies the request in logs.
	ID uuid.UUID

	// State stores the current state of the request.
	State State

	// Request is the original HTTP request from the client.
	Request *http.Request

	// Writer is a wrapper around the original HTTP response writer which
	// updates the transaction with information about the response.
	Writer *ResponseWriter

	// Destination is where the request is forwarded. It is only meaningful
	// once the transaction has been resolved.
	Destination strategy.Destination

	// IsResolved is true once a destination has been chosen.
	IsResolved bool

	// IsUpgrade is true if the client requested a protocol upgrade.
	IsUpgrade bool

	// StatusCode is the HTTP status code sent in response to this request.
	// A value of zero means that no headers have been written.
	StatusCode int

	// Error is the final error state of the request. If it is non-nil it is
	// logged.
	Error error

	// Metrics captures timing and size information of the request.
	Metrics Metrics
}

// NewTransaction creates a new transaction for the given request/response
// pair and starts its timer.
func NewTransaction(
	writer http.ResponseWriter,
	request *http.Request,
) *Transaction {
	txn := &Transaction{
		ID:        uuid.New(),
		Request:   request,
		IsUpgrade: isUpgrade(request.Header),
	}

	txn.Writer = &ResponseWriter{
		Inner:       writer,
		Transaction: txn,
	}

	txn.Metrics.Start()

	return txn
}

// Resolve records the destination of the request.
func (txn *Transaction) Resolve(dest strategy.Destination) {
	txn.Destination = dest
	txn.IsResolved = true
	txn.State = StateResolved
}

// Forward marks the request as sent to its destination.
func (txn *Transaction) Forward() {
	if txn.State == StateResolved {
		txn.State = StateForwarded
	}
}

// HeadersSent updates the transaction to reflect that the HTTP response
// headers have been sent.
func (txn *Transaction) HeadersSent(statusCode int) {
	txn.Metrics.FirstByteSent()
	txn.StatusCode = statusCode
	if txn.State != StateFailed {
		txn.State = StateResponded
	}
}

// Fail records err as the outcome of the request.
func (txn *Transaction) Fail(err error) {
	txn.State = StateFailed
	txn.Error = err
}

// Close marks the request as complete.
func (txn *Transaction) Close() {
	txn.Metrics.LastByteSent()
}

type transactionKey struct{}

func withTransaction(ctx context.Context, txn *Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, txn)
}

// TransactionFromContext returns the transaction of the request that ctx
// belongs to.
func TransactionFromContext(ctx context.Context) (*Transaction, bool) {
	txn, ok := ctx.Value(transactionKey{}).(*Transaction)
	return txn, ok
}
