package proxy

import (
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logTransaction writes an access log entry for txn.
//
// The event is "HTTP" for a regular request, "UP/CN" for an upgraded
// connection that is being established and "UP/DC" once it has closed.
// Unknown values are logged as "-".
func logTransaction(logger *zap.Logger, txn *Transaction) {
	if logger == nil || isMuted(txn) {
		return
	}

	level := zapcore.InfoLevel
	if txn.State == StateFailed && txn.StatusCode >= 500 {
		level = zapcore.WarnLevel
	}

	ce := logger.Check(level, "request")
	if ce == nil {
		return
	}

	request := txn.Request
	fields := []zap.Field{
		zap.String("event", event(txn)),
		zap.String("id", txn.ID.String()),
		zap.String("remote", request.RemoteAddr),
		zap.String("frontend", orHyphen(request.Host)),
		zap.String("request", fmt.Sprintf(
			"%s %s %s",
			request.Method,
			request.URL.RequestURI(),
			request.Proto,
		)),
		zap.String("state", txn.State.String()),
	}

	if txn.IsResolved {
		fields = append(
			fields,
			zap.String("backend", txn.Destination.Protocol.Scheme()+"://"+txn.Destination.Endpoint.Address),
			zap.String("app", orHyphen(txn.Destination.Application)),
		)
	} else {
		fields = append(fields, zap.String("backend", "-"), zap.String("app", "-"))
	}

	if txn.StatusCode != 0 {
		fields = append(fields, zap.Int("status", txn.StatusCode))
	} else {
		fields = append(fields, zap.String("status", "-"))
	}

	fields = append(
		fields,
		zap.String("ttfb", formatDuration("f/", txn.Metrics.TimeToFirstByte, txn.Metrics.IsFirstByteSent())),
		zap.String("ttlb", formatDuration("l/", txn.Metrics.TimeToLastByte, txn.Metrics.IsLastByteSent())),
		zap.String("in", "i/"+humanize.FormatFloat("#,###.", float64(txn.Metrics.BytesIn))),
		zap.String("out", "o/"+humanize.FormatFloat("#,###.", float64(txn.Metrics.BytesOut))),
	)

	if txn.Error != nil {
		fields = append(fields, zap.Error(txn.Error))
	}

	ce.Write(fields...)
}

func event(txn *Transaction) string {
	switch {
	case !txn.IsUpgrade || txn.StatusCode != 101:
		return "HTTP"
	case txn.Metrics.IsLastByteSent():
		return "UP/DC"
	default:
		return "UP/CN"
	}
}

func formatDuration(prefix string, d time.Duration, ok bool) string {
	if !ok {
		return "-"
	}
	ms := float64(d) / float64(time.Millisecond)
	return prefix + humanize.FormatFloat("#,###.##", ms) + "ms"
}

func orHyphen(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// isMuted returns true for successful favicon requests, which are not logged.
func isMuted(txn *Transaction) bool {
	if txn.Request.URL.Path != "/favicon.ico" {
		return false
	}

	return 200 <= txn.StatusCode && txn.StatusCode < 500
}
