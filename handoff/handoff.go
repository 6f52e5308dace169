// Package handoff implements the endpoint the bridge script submits to. It
// revalidates the opaque user id and OTP, normalizes the session token and
// asks the Session Orchestrator to start the scrape job.
package handoff

import (
	"context"
	"net/http"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/audit"
	"github.com/chimerakang/bridge-go/metrics"
	"github.com/chimerakang/bridge-go/middleware/ginmw"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/chimerakang/bridge-go/handoff"

// Form is the submitted handoff. Empty fields count as absent.
type Form struct {
	User   string
	OTP    string
	Token  string
	Region string
}

// Handler serves POST /bridge-handoff.
type Handler struct {
	client  *bridge.Client
	metrics *metrics.Metrics
	audit   *audit.Logger
	tracer  trace.Tracer
}

// Option configures the Handler.
type Option func(*Handler)

// WithMetrics records handoff outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithAudit records every handoff on a.
func WithAudit(a *audit.Logger) Option {
	return func(h *Handler) { h.audit = a }
}

// WithTracer overrides the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// New creates a Handler using client's codec, OTP engine and orchestrator.
func New(client *bridge.Client, opts ...Option) *Handler {
	h := &Handler{client: client}
	for _, o := range opts {
		o(h)
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(tracerName)
	}
	return h
}

// Handle is the gin handler. CORS headers are set by ginmw.CORS.
func (h *Handler) Handle(c *gin.Context) {
	form := Form{
		User:   c.PostForm("user"),
		OTP:    c.PostForm("otp"),
		Token:  c.PostForm("token"),
		Region: c.PostForm("region"),
	}
	ctx := bridge.WithRequestID(c.Request.Context(), ginmw.GetRequestID(c))

	identity, res, err := h.Submit(ctx, form)

	event := audit.Event{
		RequestID: bridge.RequestIDFromContext(ctx),
		UserID:    identity,
		Action:    audit.ActionHandoff,
		Region:    string(bridge.ParseRegion(form.Region)),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	if err != nil {
		be := bridge.Classify(err)
		status := bridge.HTTPStatus(be.Kind)

		event.Result = audit.ResultFailure
		if status == http.StatusUnauthorized {
			event.Result = audit.ResultDenied
		}
		event.Error = be.Kind.String()
		h.audit.Log(event)
		h.metrics.RecordHandoff(be.Kind.String())

		level := h.client.Logger().WarnContext
		if be.Kind == bridge.KindUnexpected {
			level = h.client.Logger().ErrorContext
		}
		level(ctx, "handoff failed",
			"request_id", event.RequestID,
			"kind", be.Kind.String(),
			"status", status,
			"error", err,
		)

		c.JSON(status, gin.H{"success": false, "error": be.Message})
		return
	}

	event.Result = audit.ResultSuccess
	event.Details = "session " + res.SessionID
	h.audit.Log(event)
	h.metrics.RecordHandoff("success")
	h.client.Logger().InfoContext(ctx, "handoff accepted",
		"request_id", event.RequestID,
		"region", event.Region,
		"session_id", res.SessionID,
	)

	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": res.SessionID, "status": res.Status})
}

// Submit validates form and starts the session. It returns the decoded
// identity (empty if decoding did not get that far) alongside the result.
// Errors are *bridge.Error for validation failures and orchestrator errors
// otherwise.
func (h *Handler) Submit(ctx context.Context, form Form) (string, *bridge.HandoffResult, error) {
	ctx, span := h.tracer.Start(ctx, "handoff.Submit")
	defer span.End()

	identity, res, err := h.submit(ctx, form)
	if err != nil {
		kind := bridge.Classify(err).Kind
		span.SetAttributes(attribute.String("bridge.error_kind", kind.String()))
		span.SetStatus(codes.Error, kind.String())
		return identity, nil, err
	}
	span.SetStatus(codes.Ok, "")
	return identity, res, nil
}

func (h *Handler) submit(ctx context.Context, form Form) (string, *bridge.HandoffResult, error) {
	if form.User == "" || form.OTP == "" || form.Token == "" {
		return "", nil, bridge.NewError(bridge.KindMalformedRequest, bridge.MsgMissingFields)
	}
	if !h.client.ValidToken(form.Token) {
		return "", nil, bridge.NewError(bridge.KindMalformedRequest, bridge.MsgInvalidToken)
	}

	codec, engine, orch := h.client.Codec(), h.client.OTP(), h.client.Orchestrator()
	if codec == nil || engine == nil || orch == nil {
		return "", nil, bridge.NewError(bridge.KindUnexpected, bridge.MsgUnexpected)
	}

	identity, ok := codec.Decode(form.User)
	if !ok {
		return "", nil, bridge.NewError(bridge.KindInvalidIdentity, bridge.MsgInvalidIdentifier)
	}
	if !engine.Verify(identity, form.OTP) {
		return identity, nil, bridge.NewError(bridge.KindInvalidOTP, bridge.MsgInvalidOTP)
	}

	region := bridge.ParseRegion(form.Region)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("bridge.region", string(region)))
	ctx = bridge.WithIdentity(ctx, identity)

	res, err := orch.StartSession(ctx, identity, region, h.client.NormalizeToken(form.Token))
	if err != nil {
		return identity, nil, err
	}
	if res == nil {
		return identity, nil, bridge.NewError(bridge.KindUnexpected, bridge.MsgUnexpected)
	}
	return identity, res, nil
}
