// Package requestcontext carries per-request metadata (request ID, client
// address, user agent) through context so services and stores never touch
// *http.Request directly.
package requestcontext

import "context"

type requestIDKey struct{}
type clientMetadataKey struct{}

type clientMetadata struct {
	ip        string
	userAgent string
}

// WithRequestID stores the correlation ID for the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation ID, or "" when none was set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithClientMetadata stores the resolved client IP and user agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientMetadataKey{}, clientMetadata{ip: ip, userAgent: userAgent})
}

// ClientIP returns the resolved source address, or "" when none was set.
func ClientIP(ctx context.Context) string {
	if m, ok := ctx.Value(clientMetadataKey{}).(clientMetadata); ok {
		return m.ip
	}
	return ""
}

// UserAgent returns the raw User-Agent header value, or "" when none was set.
func UserAgent(ctx context.Context) string {
	if m, ok := ctx.Value(clientMetadataKey{}).(clientMetadata); ok {
		return m.userAgent
	}
	return ""
}
