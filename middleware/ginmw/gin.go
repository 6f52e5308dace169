// Package ginmw provides Gin HTTP middleware for the bridge surfaces.
//
// All middleware functions accept a *bridge.Client and use its
// configuration and interfaces (SignatureVerifier) with no direct
// dependency on a concrete implementation.
package ginmw

import (
	"errors"
	"io"
	"net/http"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/signature"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys for storing bridge data in gin.Context.
const (
	KeyRawBody   = "bridge_raw_body"
	KeyRequestID = "bridge_request_id"
)

// HeaderRequestID carries the request id on requests and responses.
const HeaderRequestID = "X-Request-ID"

// MaxWebhookBody bounds the webhook body read before verification.
const MaxWebhookBody = 1 << 20

// RequestID returns Gin middleware that assigns every request an id, reusing
// a well-formed inbound X-Request-ID, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(KeyRequestID, id)
		c.Request = c.Request.WithContext(bridge.WithRequestID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// CORS returns Gin middleware that scopes cross-origin access to exactly the
// client's third-party origin. The headers are set on every response,
// success or failure. Preflight requests are answered with 204.
func CORS(client *bridge.Client) gin.HandlerFunc {
	origin := client.ThirdPartyOrigin()
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", "600")
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SignatureOption configures Signature middleware behavior.
type SignatureOption func(*signatureConfig)

type signatureConfig struct {
	onReject func(c *gin.Context, reason string)
}

// WithRejectHook registers fn to run when a request is rejected. reason is
// "missing" or "invalid".
func WithRejectHook(fn func(c *gin.Context, reason string)) SignatureOption {
	return func(cfg *signatureConfig) { cfg.onReject = fn }
}

// Signature returns Gin middleware that authenticates chat-platform webhooks
// via client.Verifier(). The raw body is read once, verified, and stored in
// the context (retrievable via GetRawBody). Nothing downstream runs for an
// unverified request. Responds with 401 if a header is missing or the
// signature does not verify.
func Signature(client *bridge.Client, opts ...SignatureOption) gin.HandlerFunc {
	cfg := &signatureConfig{}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		sig := c.GetHeader(signature.HeaderSignature)
		ts := c.GetHeader(signature.HeaderTimestamp)
		if sig == "" || ts == "" {
			rejectSignature(c, client, cfg, signature.ErrMissing)
			return
		}

		verifier := client.Verifier()
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "signature verifier not configured"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBody+1))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad request."})
			return
		}
		if len(body) > MaxWebhookBody {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Bad request."})
			return
		}

		if err := verifier.Verify(ts, body, sig); err != nil {
			rejectSignature(c, client, cfg, err)
			return
		}

		c.Set(KeyRawBody, body)
		c.Next()
	}
}

func rejectSignature(c *gin.Context, client *bridge.Client, cfg *signatureConfig, err error) {
	reason := "invalid"
	if errors.Is(err, signature.ErrMissing) {
		reason = "missing"
	}
	client.Logger().WarnContext(c.Request.Context(), "webhook signature rejected",
		"request_id", GetRequestID(c),
		"reason", reason,
	)
	if cfg.onReject != nil {
		cfg.onReject(c, reason)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
}

// --- Context helpers ---

// GetRawBody returns the verified webhook body from the Gin context.
func GetRawBody(c *gin.Context) []byte {
	v, _ := c.Get(KeyRawBody)
	b, _ := v.([]byte)
	return b
}

// GetRequestID returns the request id from the Gin context.
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(KeyRequestID)
	s, _ := v.(string)
	return s
}
