package proxy

import (
	"io"
	"net/http"
)

// ResponseWriter wraps an http.ResponseWriter, recording the response status
// and size in a transaction.
type ResponseWriter struct {
	Inner       http.ResponseWriter
	Transaction *Transaction
}

// Header forwards to writer.Inner.Header()
func (writer *ResponseWriter) Header() http.Header {
	return writer.Inner.Header()
}

// Write forwards to writer.Inner.Write()
func (writer *ResponseWriter) Write(data []byte) (int, error) {
	if writer.Transaction.StatusCode == 0 {
		writer.WriteHeader(http.StatusOK)
	}

	size, err := writer.Inner.Write(data)
	writer.Transaction.Metrics.BytesOut += int64(size)

	return size, err
}

// WriteHeader forwards to writer.Inner.WriteHeader()
//
// Informational responses other than 101 are passed through without changing
// the transaction, as the final response is still to come.
func (writer *ResponseWriter) WriteHeader(statusCode int) {
	if statusCode < 200 && statusCode != http.StatusSwitchingProtocols {
		writer.Inner.WriteHeader(statusCode)
		return
	}

	if writer.Transaction.StatusCode == 0 {
		writer.Transaction.HeadersSent(statusCode)
	}

	writer.Inner.WriteHeader(statusCode)
}

// Flush forwards to writer.Inner.Flush() if it implements http.Flusher,
// otherwise it does nothing.
func (writer *ResponseWriter) Flush() {
	if flusher, ok := writer.Inner.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap returns the wrapped writer, for use by http.ResponseController.
func (writer *ResponseWriter) Unwrap() http.ResponseWriter {
	return writer.Inner
}

// countingReader counts the bytes read from a request body.
type countingReader struct {
	io.ReadCloser
	count *int64
}

func (r *countingReader) Read(data []byte) (int, error) {
	n, err := r.ReadCloser.Read(data)
	*r.count += int64(n)
	return n, err
}
