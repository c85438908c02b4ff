package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for the iSCSI engine.
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	SessionKey string    // "ISID:TSIH"
	CID        uint16    // Connection identifier within the session
	ITT        uint32    // Initiator task tag of the in-flight command
	RemoteAddr string    // Peer transport address
	TargetIQN  string    // Target IQN being served
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly accepted transport.
func NewLogContext(remoteAddr string) *LogContext {
	return &LogContext{
		RemoteAddr: remoteAddr,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithSession returns a copy with the session key set
func (lc *LogContext) WithSession(isid string, tsih uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionKey = sessionKey(isid, tsih)
	}
	return clone
}

// WithConnection returns a copy with the connection ID set
func (lc *LogContext) WithConnection(cid uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.CID = cid
	}
	return clone
}

// WithITT returns a copy with the initiator task tag set
func (lc *LogContext) WithITT(itt uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ITT = itt
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

func sessionKey(isid string, tsih uint16) string {
	if isid == "" {
		return ""
	}
	return isid + ":" + itoa16(tsih)
}

func itoa16(v uint16) string {
	if v == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
