package goSession

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a request identifier to ctx. Send stamps it on the
// outgoing request instead of generating a new one, and audit events carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
