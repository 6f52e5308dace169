package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Audience is the aud claim the Session Orchestrator expects.
const Audience = "session-orchestrator"

// TokenSource mints short-lived HS256 service tokens for calls to the
// Session Orchestrator and caches them until shortly before expiry.
type TokenSource struct {
	key           []byte
	issuer        string
	ttl           time.Duration
	refreshBuffer time.Duration
	now           func() time.Time

	mu      sync.RWMutex
	token   string
	expires time.Time

	sf singleflight.Group
}

// TokenOption configures the TokenSource.
type TokenOption func(*TokenSource)

// WithTTL sets the lifetime of minted tokens. Default: 5 minutes.
func WithTTL(d time.Duration) TokenOption {
	return func(s *TokenSource) { s.ttl = d }
}

// WithRefreshBuffer sets how long before expiry a cached token is replaced.
// Default: 1 minute.
func WithRefreshBuffer(d time.Duration) TokenOption {
	return func(s *TokenSource) { s.refreshBuffer = d }
}

// WithTokenClock overrides the wall clock.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenSource) { s.now = now }
}

// NewTokenSource creates a token source signing with key on behalf of issuer.
func NewTokenSource(key []byte, issuer string, opts ...TokenOption) (*TokenSource, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("orchestrator: signing key is required")
	}
	s := &TokenSource{
		key:           key,
		issuer:        issuer,
		ttl:           5 * time.Minute,
		refreshBuffer: 1 * time.Minute,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.refreshBuffer >= s.ttl {
		return nil, fmt.Errorf("orchestrator: refresh buffer %s must be shorter than ttl %s", s.refreshBuffer, s.ttl)
	}
	return s, nil
}

// Token returns a valid cached token, or mints a new one if it is about to
// expire.
func (s *TokenSource) Token() (string, error) {
	s.mu.RLock()
	if s.token != "" && s.now().Before(s.expires.Add(-s.refreshBuffer)) {
		defer s.mu.RUnlock()
		return s.token, nil
	}
	s.mu.RUnlock()

	// singleflight prevents a burst of handoffs from minting in parallel
	result, err, _ := s.sf.Do("token", func() (interface{}, error) {
		return s.mint()
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *TokenSource) mint() (string, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.issuer,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("orchestrator: sign service token: %w", err)
	}

	s.mu.Lock()
	s.token = signed
	s.expires = exp
	s.mu.Unlock()
	return signed, nil
}
