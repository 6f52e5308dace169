// Package orchestrator is an HTTP client for the external Session
// Orchestrator. Each call carries a short-lived HS256 service token and the
// caller's trace context.
//
// Usage:
//
//	tokens, _ := orchestrator.NewTokenSource(key, cfg.ApplicationID)
//	backend := orchestrator.New(cfg.OrchestratorURL, tokens)
//	svc := session.New(backend)
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// maxResponseBody bounds how much of a response is read.
const maxResponseBody = 1 << 20

// Client starts sessions on the Session Orchestrator over HTTP.
type Client struct {
	baseURL    string
	tokens     *TokenSource
	httpClient *http.Client
}

// compile-time check
var _ bridge.SessionOrchestrator = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient = &http.Client{Timeout: d} }
}

// New creates a client for the orchestrator at baseURL.
func New(baseURL string, tokens *TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type startRequest struct {
	UserID string `json:"userId"`
	Region string `json:"region"`
	Token  string `json:"token"`
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

// StartSession posts to /v1/sessions and maps the orchestrator's status
// codes onto bridge.OrchestratorError reasons.
func (c *Client) StartSession(ctx context.Context, identity string, region bridge.Region, token string) (*bridge.HandoffResult, error) {
	body, err := json.Marshal(startRequest{UserID: identity, Region: string(region), Token: token})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid := bridge.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	if c.tokens != nil {
		bearer, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read response: %w", err)
	}

	var out startResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return nil, fmt.Errorf("orchestrator: decode response: %w", decodeErr)
		}
		return &bridge.HandoffResult{SessionID: out.SessionID, Status: out.Status}, nil
	}

	msg := strings.TrimSpace(out.Error)
	if decodeErr != nil || msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &bridge.OrchestratorError{
		Reason:  reasonForStatus(resp.StatusCode),
		Message: msg,
		Err:     fmt.Errorf("orchestrator: status %d", resp.StatusCode),
	}
}

func reasonForStatus(code int) bridge.OrchestratorReason {
	switch code {
	case http.StatusConflict:
		return bridge.ReasonConflict
	case http.StatusTooManyRequests:
		return bridge.ReasonRateLimited
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return bridge.ReasonNoTokenFound
	default:
		return bridge.ReasonOther
	}
}
