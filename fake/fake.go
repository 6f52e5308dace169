// Package fake provides in-memory collaborators for testing the bridge.
//
// Use fake.NewClient() in unit tests to get a fully wired *bridge.Client
// with a real codec and OTP engine, an in-memory orchestrator, and a
// webhook signer whose public key the client trusts.
package fake

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/identity"
	"github.com/chimerakang/bridge-go/otp"
	"github.com/chimerakang/bridge-go/secret"
	"github.com/chimerakang/bridge-go/signature"
)

// Call records one StartSession invocation.
type Call struct {
	Identity string
	Region   bridge.Region
	Token    string
}

// Orchestrator is an in-memory bridge.SessionOrchestrator.
type Orchestrator struct {
	mu     sync.Mutex
	calls  []Call
	result *bridge.HandoffResult
	err    error
	nextID int
}

// compile-time check
var _ bridge.SessionOrchestrator = (*Orchestrator)(nil)

// NewOrchestrator returns an orchestrator that succeeds with generated
// session ids and status "queued".
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// SetResult makes every following call return res.
func (o *Orchestrator) SetResult(res *bridge.HandoffResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result, o.err = res, nil
}

// SetError makes every following call fail with err.
func (o *Orchestrator) SetError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result, o.err = nil, err
}

// Calls returns the calls received so far.
func (o *Orchestrator) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Call(nil), o.calls...)
}

// StartSession records the call and returns the configured outcome.
func (o *Orchestrator) StartSession(_ context.Context, identity string, region bridge.Region, token string) (*bridge.HandoffResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, Call{Identity: identity, Region: region, Token: token})
	if o.err != nil {
		return nil, o.err
	}
	if o.result != nil {
		res := *o.result
		return &res, nil
	}
	o.nextID++
	return &bridge.HandoffResult{SessionID: fmt.Sprintf("sess-%d", o.nextID), Status: "queued"}, nil
}

// Signer signs webhook requests the way the chat platform does.
type Signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewSigner generates a fresh ed25519 key pair.
func NewSigner() *Signer {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("fake: generate key: %v", err))
	}
	return &Signer{pub: pub, priv: priv}
}

// PublicKeyHex returns the public key in the form the verifier is configured with.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}

// Sign returns the hex signature over timestamp||body.
func (s *Signer) Sign(timestamp string, body []byte) string {
	msg := append([]byte(timestamp), body...)
	return hex.EncodeToString(ed25519.Sign(s.priv, msg))
}

// SignRequest sets both signature headers on req for body.
func (s *Signer) SignRequest(req *http.Request, body []byte) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(signature.HeaderTimestamp, ts)
	req.Header.Set(signature.HeaderSignature, s.Sign(ts, body))
}

// Env bundles a client with the fakes behind it.
type Env struct {
	Client       *bridge.Client
	Config       bridge.Config
	Codec        *identity.Codec
	OTP          *otp.Engine
	Orchestrator *Orchestrator
	Signer       *Signer
}

// Option configures NewClient.
type Option func(*options)

type options struct {
	cfg          bridge.Config
	clock        func() time.Time
	orchestrator bridge.SessionOrchestrator
}

// WithConfig overrides fields of the default test configuration.
func WithConfig(mutate func(*bridge.Config)) Option {
	return func(o *options) { mutate(&o.cfg) }
}

// WithClock pins the OTP engine's clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithOrchestrator replaces the in-memory orchestrator on the client.
func WithOrchestrator(orch bridge.SessionOrchestrator) Option {
	return func(o *options) { o.orchestrator = orch }
}

// DefaultConfig is the configuration NewClient starts from.
func DefaultConfig() bridge.Config {
	return bridge.Config{
		MasterSecret:     "fake-master-secret",
		ApplicationID:    "100000000000000001",
		PublicURL:        "https://bridge.example.test",
		ThirdPartyOrigin: "https://www.hoyolab.com",
		CookieName:       "ltoken_v2",
		CookieLength:     64,
		TokenScheme:      "ltoken",
		DashboardURL:     "https://scores.example.test",
	}
}

// NewClient creates a *bridge.Client wired to in-memory fakes.
func NewClient(opts ...Option) *Env {
	o := &options{cfg: DefaultConfig(), clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	master, err := secret.New(o.cfg.MasterSecret)
	if err != nil {
		panic(fmt.Sprintf("fake: %v", err))
	}
	signer := NewSigner()
	verifier, err := signature.NewVerifier(signer.PublicKeyHex())
	if err != nil {
		panic(fmt.Sprintf("fake: %v", err))
	}
	o.cfg.ChatPublicKey = signer.PublicKeyHex()

	env := &Env{
		Config:       o.cfg,
		Codec:        identity.New(master),
		OTP:          otp.New(master, otp.WithClock(o.clock)),
		Orchestrator: NewOrchestrator(),
		Signer:       signer,
	}
	var orch bridge.SessionOrchestrator = env.Orchestrator
	if o.orchestrator != nil {
		orch = o.orchestrator
	}

	c, err := bridge.NewClient(o.cfg,
		bridge.WithIdentityCodec(env.Codec),
		bridge.WithOTPEngine(env.OTP),
		bridge.WithSignatureVerifier(verifier),
		bridge.WithOrchestrator(orch),
	)
	if err != nil {
		panic(fmt.Sprintf("fake: %v", err))
	}
	env.Client = c
	return env
}
