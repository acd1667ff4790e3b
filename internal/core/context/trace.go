package context

import (
	"context"

	"retailhub/internal/core/id"
)

// TraceContext holds request correlation IDs.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetTraceID returns the trace ID or "" outside a request.
func GetTraceID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.TraceID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTraceContext generates fresh IDs. requestID is kept when the client sent one.
func NewTraceContext(requestID string) *TraceContext {
	if requestID == "" {
		requestID = id.New().String()
	}
	return &TraceContext{
		TraceID:   id.New().String(),
		RequestID: requestID,
	}
}
