package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one HTTP request across logs and outbound calls.
// SessionID is filled in by the chat handler once it has settled on one.
type TraceData struct {
	TraceID   string
	RequestID string
	SessionID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// SetSessionID records the chat session on the request's trace data, if any.
func SetSessionID(ctx context.Context, sessionID string) {
	if td := GetTraceData(ctx); td != nil {
		td.SessionID = sessionID
	}
}

// Default returns ctx, or context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
