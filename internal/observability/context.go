package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	searchIDKey  contextKey = "search_id"
	traceIDKey   contextKey = "trace_id"
	spanIDKey    contextKey = "span_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithSearchID adds the aggregated search ID to the context.
func WithSearchID(ctx context.Context, searchID string) context.Context {
	return context.WithValue(ctx, searchIDKey, searchID)
}

// SearchIDFromContext retrieves the search ID from context.
// Returns empty string if not present.
func SearchIDFromContext(ctx context.Context) string {
	return stringValue(ctx, searchIDKey)
}

// WithTraceSpan adds trace and span IDs to the context.
func WithTraceSpan(ctx context.Context, traceID, spanID string) context.Context {
	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, spanID)
	return ctx
}

// TraceSpanFromContext retrieves trace and span IDs from context.
// Returns empty strings if not present.
func TraceSpanFromContext(ctx context.Context) (traceID, spanID string) {
	return stringValue(ctx, traceIDKey), stringValue(ctx, spanIDKey)
}

// SearchContext contains the observability data of one search request.
type SearchContext struct {
	RequestID string
	SearchID  string
	TraceID   string
	SpanID    string
}

// WithSearchContextFull adds all non-empty search context values to ctx.
func WithSearchContextFull(ctx context.Context, sc SearchContext) context.Context {
	if sc.RequestID != "" {
		ctx = WithRequestID(ctx, sc.RequestID)
	}
	if sc.SearchID != "" {
		ctx = WithSearchID(ctx, sc.SearchID)
	}
	if sc.TraceID != "" || sc.SpanID != "" {
		ctx = WithTraceSpan(ctx, sc.TraceID, sc.SpanID)
	}
	return ctx
}

// SearchContextFromContext extracts all search context from the context.
func SearchContextFromContext(ctx context.Context) SearchContext {
	traceID, spanID := TraceSpanFromContext(ctx)
	return SearchContext{
		RequestID: RequestIDFromContext(ctx),
		SearchID:  SearchIDFromContext(ctx),
		TraceID:   traceID,
		SpanID:    spanID,
	}
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
