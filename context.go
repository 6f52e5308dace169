package bridge

import "context"

type ctxKey string

const (
	ctxKeyIdentity  ctxKey = "bridge_identity"
	ctxKeyRequestID ctxKey = "bridge_request_id"
)

// WithIdentity stores a verified user identity in the context.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, identity)
}

// IdentityFromContext extracts the verified user identity from the context.
func IdentityFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyIdentity).(string)
	return v
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request id from the context.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
