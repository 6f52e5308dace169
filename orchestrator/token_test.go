package orchestrator_test

import (
	"sync"
	"testing"
	"time"

	"github.com/chimerakang/bridge-go/orchestrator"
	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenSource_RequiresKey(t *testing.T) {
	if _, err := orchestrator.NewTokenSource(nil, "app"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestNewTokenSource_BufferShorterThanTTL(t *testing.T) {
	_, err := orchestrator.NewTokenSource([]byte("k"), "app",
		orchestrator.WithTTL(time.Minute),
		orchestrator.WithRefreshBuffer(time.Minute),
	)
	if err == nil {
		t.Fatal("expected error when refresh buffer >= ttl")
	}
}

func TestToken_Claims(t *testing.T) {
	key := []byte("signing-key")
	s, err := orchestrator.NewTokenSource(key, "app-123")
	if err != nil {
		t.Fatal(err)
	}

	raw, err := s.Token()
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(orchestrator.Audience),
		jwt.WithIssuer("app-123"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", ttl)
	}
}

func TestToken_CachedUntilBuffer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	s, _ := orchestrator.NewTokenSource([]byte("k"), "app", orchestrator.WithTokenClock(clock))

	first, _ := s.Token()
	advance(3 * time.Minute)
	second, _ := s.Token()
	if first != second {
		t.Error("token should be cached inside the refresh window")
	}

	advance(90 * time.Second)
	third, _ := s.Token()
	if third == first {
		t.Error("token should be refreshed once inside the refresh buffer")
	}
}

func TestToken_Concurrent(t *testing.T) {
	s, _ := orchestrator.NewTokenSource([]byte("k"), "app")

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.Token()
			if err != nil {
				t.Errorf("Token() error: %v", err)
			}
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		if tok == "" {
			t.Fatal("empty token")
		}
	}
}
