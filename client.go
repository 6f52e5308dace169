// Package bridge links a chat-bot identity to an external game account
// session without exposing the chat identity, the raw game-session token,
// or a replayable secret to the browser in between.
//
// The package defines the shared types and the collaborator interfaces
// (identity codec, OTP engine, signature verifier, session orchestrator).
// Concrete implementations are injected via Option functions:
//
//	ms, _ := secret.New(cfg.MasterSecret)
//	client, err := bridge.NewClient(cfg,
//	    bridge.WithIdentityCodec(identity.New(ms)),
//	    bridge.WithOTPEngine(otp.New(ms)),
//	    bridge.WithSignatureVerifier(verifier),
//	    bridge.WithOrchestrator(orch),
//	)
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Client carries the immutable configuration and the injected collaborators
// shared by the webhook gateway and the handoff endpoint.
type Client struct {
	config       Config
	origin       string
	logger       *slog.Logger
	codec        IdentityCodec
	otp          OTPEngine
	verifier     SignatureVerifier
	orchestrator SessionOrchestrator
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIdentityCodec sets the opaque identifier codec.
func WithIdentityCodec(codec IdentityCodec) Option {
	return func(c *Client) { c.codec = codec }
}

// WithOTPEngine sets the one-time password engine.
func WithOTPEngine(e OTPEngine) Option {
	return func(c *Client) { c.otp = e }
}

// WithSignatureVerifier sets the webhook signature verifier.
func WithSignatureVerifier(v SignatureVerifier) Option {
	return func(c *Client) { c.verifier = v }
}

// WithOrchestrator sets the Session Orchestrator implementation.
func WithOrchestrator(o SessionOrchestrator) Option {
	return func(c *Client) { c.orchestrator = o }
}

// NewClient creates a bridge client with the given configuration and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ApplicationID == "" {
		return nil, fmt.Errorf("bridge: application id is required")
	}
	origin, err := ParseOrigin(cfg.ThirdPartyOrigin)
	if err != nil {
		return nil, fmt.Errorf("bridge: third-party origin: %w", err)
	}
	if cfg.TokenScheme == "" {
		cfg.TokenScheme = "ltoken"
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	c := &Client{config: cfg, origin: origin}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// ThirdPartyOrigin returns the normalized scheme://host the bridge script
// must run on.
func (c *Client) ThirdPartyOrigin() string { return c.origin }

// Logger returns the configured logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Codec returns the identity codec, or nil if not configured.
func (c *Client) Codec() IdentityCodec { return c.codec }

// OTP returns the OTP engine, or nil if not configured.
func (c *Client) OTP() OTPEngine { return c.otp }

// Verifier returns the webhook signature verifier, or nil if not configured.
func (c *Client) Verifier() SignatureVerifier { return c.verifier }

// Orchestrator returns the Session Orchestrator, or nil if not configured.
func (c *Client) Orchestrator() SessionOrchestrator { return c.orchestrator }

// NormalizeToken prefixes token with the configured scheme marker unless it
// already carries it.
func (c *Client) NormalizeToken(token string) string {
	prefix := c.config.TokenScheme + "://"
	if strings.HasPrefix(token, prefix) {
		return token
	}
	return prefix + token
}

// ValidToken reports whether token, with or without the scheme marker, is
// exactly CookieLength cookie octets.
func (c *Client) ValidToken(token string) bool {
	raw := strings.TrimPrefix(token, c.config.TokenScheme+"://")
	if len(raw) != c.config.CookieLength {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if !isCookieOctet(raw[i]) {
			return false
		}
	}
	return true
}

// isCookieOctet follows the cookie-octet grammar of RFC 6265.
func isCookieOctet(b byte) bool {
	if b < 0x21 || b > 0x7e {
		return false
	}
	return b != '"' && b != ',' && b != ';' && b != '\\'
}

// HealthCheck reports whether every collaborator the HTTP surfaces need
// has been injected.
func (c *Client) HealthCheck(_ context.Context) error {
	var missing []string
	if c.codec == nil {
		missing = append(missing, "identity codec")
	}
	if c.otp == nil {
		missing = append(missing, "otp engine")
	}
	if c.verifier == nil {
		missing = append(missing, "signature verifier")
	}
	if c.orchestrator == nil {
		missing = append(missing, "orchestrator")
	}
	if len(missing) > 0 {
		return fmt.Errorf("bridge: not configured: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Close releases all resources held by the client.
// Any injected collaborator that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []any{c.codec, c.otp, c.verifier, c.orchestrator}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
