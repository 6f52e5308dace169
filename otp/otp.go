// Package otp issues six-digit time-based one-time passwords bound to a
// single user identity.
//
// Each identity gets its own TOTP key, HMAC-derived from the master secret,
// so nothing per-user is ever stored and a code for one identity is useless
// for another. The key is HMAC(HMAC(master, "otp"), identity): the "otp"
// label keeps it apart from the identity codec's signature, which is
// HMAC(master, identity) and travels in every bridge link. Codes live in 600 second steps. Verification accepts the
// adjacent step on either side to absorb clock skew, which means a code can
// remain acceptable for up to three steps (about 20 to 30 minutes) after the
// step it was issued in began.
package otp

import (
	"encoding/base32"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/secret"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Step is the lifetime of a single code.
	Step = 600 * time.Second

	// Digits is the code length.
	Digits = 6

	// Skew is how many steps either side of the current one still verify.
	Skew = 1
)

// keyLabel separates OTP keys from the identity codec's signatures, which
// are published inside bridge links.
const keyLabel = "otp"

// Engine implements bridge.OTPEngine on RFC 6238 TOTP.
type Engine struct {
	keys *secret.Master
	now  func() time.Time
	opts totp.ValidateOpts
}

// compile-time check
var _ bridge.OTPEngine = (*Engine)(nil)

// Option configures the Engine.
type Option func(*Engine)

// WithClock overrides the wall clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an OTP engine keyed by master.
func New(master *secret.Master, opts ...Option) *Engine {
	e := &Engine{
		keys: master.Sub(keyLabel),
		now:  time.Now,
		opts: totp.ValidateOpts{
			Period:    uint(Step / time.Second),
			Skew:      Skew,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Generate returns the code for identity in the current step.
func (e *Engine) Generate(identity string) (string, error) {
	return e.GenerateAt(identity, e.now())
}

// GenerateAt returns the code for identity in the step containing t.
func (e *Engine) GenerateAt(identity string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(e.keyFor(identity), t, e.opts)
}

// Verify reports whether code is currently valid for identity.
func (e *Engine) Verify(identity, code string) bool {
	return e.VerifyAt(identity, code, e.now())
}

// VerifyAt reports whether code is valid for identity at t. Empty input
// always fails.
func (e *Engine) VerifyAt(identity, code string, t time.Time) bool {
	if identity == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, e.keyFor(identity), t, e.opts)
	return err == nil && ok
}

// NextExpiry returns the instant the step containing now ends, rounded up
// to the next step boundary in epoch milliseconds. Display only.
func (e *Engine) NextExpiry(now time.Time) time.Time {
	return NextExpiry(now)
}

// NextExpiry is ceil(now / Step) * Step on the millisecond scale.
func NextExpiry(now time.Time) time.Time {
	step := Step.Milliseconds()
	ms := now.UnixMilli()
	if ms <= 0 {
		// integer division truncates toward zero, which is ceil here
		return time.UnixMilli(ms / step * step)
	}
	return time.UnixMilli((ms + step - 1) / step * step)
}

func (e *Engine) keyFor(identity string) string {
	return base32.StdEncoding.EncodeToString(e.keys.Derive(identity))
}
