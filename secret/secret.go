// Package secret holds the process-wide master secret and derives the
// per-user keys the identity codec and the OTP engine are built on.
package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// ErrEmpty is returned when the master secret is missing.
var ErrEmpty = errors.New("secret: master secret is empty")

// Master is the immutable master secret. The zero value is unusable;
// construct it with New.
type Master struct {
	key []byte
}

// New wraps raw as a Master. An empty value is an error, never a default.
func New(raw string) (*Master, error) {
	if raw == "" {
		return nil, ErrEmpty
	}
	return &Master{key: []byte(raw)}, nil
}

// Derive returns HMAC-SHA256(master, identity). The result is recomputed
// on every call and must not be persisted.
func (m *Master) Derive(identity string) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(identity))
	return mac.Sum(nil)
}

// Sub returns a master keyed by HMAC-SHA256(master, label). Keys derived
// from different labels are independent, so a value published under one
// purpose reveals nothing about another.
func (m *Master) Sub(label string) *Master {
	return &Master{key: m.Derive(label)}
}

// Equal compares a and b in constant time. Slices of different length are
// never equal, and the comparison does not depend on how many leading
// bytes match.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
