package bridge

import (
	"context"
	"time"
)

// IdentityCodec turns a durable user identity into a tamper-evident token
// that is safe to place in a public URL, and back.
// Implementations: identity/.
type IdentityCodec interface {
	// Encode returns the opaque "payload.signature" form of identity.
	// identity must be non-empty for the result to decode.
	Encode(identity string) string

	// Decode returns the identity carried by token. ok is false for any
	// malformed or tampered token; Decode never panics on bad input.
	Decode(token string) (identity string, ok bool)
}

// OTPEngine issues and checks short-lived numeric codes bound to one identity.
// Implementations: otp/.
type OTPEngine interface {
	// Generate returns the code valid for identity in the current time step.
	Generate(identity string) (string, error)

	// Verify reports whether code is valid for identity now. It fails closed.
	Verify(identity, code string) bool

	// NextExpiry returns the instant the step containing now ends.
	NextExpiry(now time.Time) time.Time
}

// SessionOrchestrator starts or resumes the asynchronous scrape job for a
// verified identity. Failures are reported as *OrchestratorError.
// Implementations: session/, orchestrator/, fake/.
type SessionOrchestrator interface {
	StartSession(ctx context.Context, identity string, region Region, token string) (*HandoffResult, error)
}

// SignatureVerifier authenticates inbound chat-platform webhooks.
// Implementations: signature/.
type SignatureVerifier interface {
	// Verify checks signature over timestamp||body.
	Verify(timestamp string, body []byte, signature string) error
}
