// Package requestcontext carries per-request metadata (correlation ID, caller
// channel) through context so lower layers can enrich audit entries without
// threading transport types.
package requestcontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	channelKey   contextKey = "channel"
)

// WithRequestID stores the correlation ID for the request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the correlation ID, or empty when unset.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithChannel stores the caller's device/channel classification.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

// Channel returns the caller channel, or empty when unset.
func Channel(ctx context.Context) string {
	v, _ := ctx.Value(channelKey).(string)
	return v
}
