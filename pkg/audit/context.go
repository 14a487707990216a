package audit

import "context"

type ctxKey int

const (
	userIDKey ctxKey = iota
	requestIDKey
	transportKey
)

// WithUserID binds the authenticated user to the request context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// WithRequestID binds a correlation id to the request context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithTransport records which surface the request arrived on.
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, transportKey, transport)
}

func Transport(ctx context.Context) string {
	v, _ := ctx.Value(transportKey).(string)
	return v
}
