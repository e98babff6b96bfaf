package proxy

import "time"

// Metrics stores basic measurements for a request.
type Metrics struct {
	// BytesIn is the number of request body bytes read from the client.
	BytesIn int64

	// BytesOut is the number of response body bytes written to the client.
	BytesOut int64

	StartedAt       time.Time
	TimeToFirstByte time.Duration
	TimeToLastByte  time.Duration
}

// Start the timer.
func (metrics *Metrics) Start() {
	metrics.StartedAt = time.Now()
}

// FirstByteSent records the time offset to the first byte.
func (metrics *Metrics) FirstByteSent() {
	if metrics.TimeToFirstByte == 0 {
		metrics.TimeToFirstByte = sinceNonZero(metrics.StartedAt)
	}
}

// IsFirstByteSent returns true if the first byte has been sent.
func (metrics *Metrics) IsFirstByteSent() bool {
	return metrics.TimeToFirstByte > 0
}

// LastByteSent records the time offset to the last byte.
func (metrics *Metrics) LastByteSent() {
	metrics.TimeToLastByte = sinceNonZero(metrics.StartedAt)
}

// IsLastByteSent returns true if the last byte has been sent.
func (metrics *Metrics) IsLastByteSent() bool {
	return metrics.TimeToLastByte > 0
}

// sinceNonZero returns the time elapsed since t, rounded up to 1ns so that a
// recorded event is always distinguishable from an unrecorded one.
func sinceNonZero(t time.Time) time.Duration {
	if d := time.Since(t); d > 0 {
		return d
	}
	return 1
}
