// Package signature provides a SignatureVerifier for chat-platform webhooks
// signed with ed25519 over timestamp||body.
package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	bridge "github.com/chimerakang/bridge-go"
)

// Header names carrying the signature material.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

var (
	// ErrMissing is returned when the signature or timestamp is absent.
	ErrMissing = errors.New("signature: missing signature or timestamp")

	// ErrInvalid is returned when the signature does not verify.
	ErrInvalid = errors.New("signature: invalid signature")

	// ErrStale is returned when the timestamp is outside the allowed window.
	ErrStale = errors.New("signature: stale timestamp")
)

// Verifier implements bridge.SignatureVerifier with the platform's
// published ed25519 public key.
type Verifier struct {
	key    ed25519.PublicKey
	maxAge time.Duration
	now    func() time.Time
}

// compile-time check
var _ bridge.SignatureVerifier = (*Verifier)(nil)

// Option configures the Verifier.
type Option func(*Verifier)

// WithMaxAge rejects requests whose unix timestamp is further than d from
// now. Zero, the default, disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) { v.maxAge = d }
}

// WithClock overrides the wall clock used by WithMaxAge.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier parses a hex-encoded ed25519 public key.
func NewVerifier(hexKey string, opts ...Option) (*Verifier, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("signature: decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("signature: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	v := &Verifier{key: ed25519.PublicKey(raw), now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Verify checks the hex signature over timestamp||body.
func (v *Verifier) Verify(timestamp string, body []byte, sig string) error {
	if timestamp == "" || sig == "" {
		return ErrMissing
	}
	raw, err := hex.DecodeString(sig)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return ErrInvalid
	}

	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	if !ed25519.Verify(v.key, msg, raw) {
		return ErrInvalid
	}

	if v.maxAge > 0 {
		secs, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return ErrStale
		}
		age := v.now().Sub(time.Unix(secs, 0))
		if age > v.maxAge || age < -v.maxAge {
			return ErrStale
		}
	}
	return nil
}
