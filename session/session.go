// Package session provides the SessionOrchestrator used by the handoff
// endpoint. It validates input, times and traces each call, and normalises
// every backend failure into a *bridge.OrchestratorError.
package session

import (
	"context"
	"errors"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/chimerakang/bridge-go/session"

// Backend defines the contract for pluggable orchestrator transports
// (HTTP, in-memory, etc.).
type Backend interface {
	// StartSession starts or resumes the scrape job for identity.
	StartSession(ctx context.Context, identity string, region bridge.Region, token string) (*bridge.HandoffResult, error)
}

// Service implements bridge.SessionOrchestrator with a configurable backend.
// It holds no per-identity state; concurrency control belongs to the
// backend.
type Service struct {
	backend Backend
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// compile-time check
var _ bridge.SessionOrchestrator = (*Service)(nil)

// Option configures the Service.
type Option func(*Service)

// WithMetrics records call durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer overrides the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// New creates a new SessionOrchestrator with the given backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend}
	for _, o := range opts {
		o(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

var (
	errNoIdentity = errors.New("session: identity cannot be empty")
	errNoResult   = errors.New("session: orchestrator returned no session")
	errMismatch   = errors.New("session: identity does not match the verified identity")
)

// StartSession validates the request and forwards it to the backend. When
// ctx carries a verified identity (bridge.WithIdentity), identity must
// match it.
func (s *Service) StartSession(ctx context.Context, identity string, region bridge.Region, token string) (*bridge.HandoffResult, error) {
	if identity == "" {
		return nil, &bridge.OrchestratorError{Reason: bridge.ReasonOther, Message: "Identity is required.", Err: errNoIdentity}
	}
	verified := bridge.IdentityFromContext(ctx)
	if verified != "" && verified != identity {
		return nil, &bridge.OrchestratorError{Reason: bridge.ReasonOther, Message: bridge.MsgUnexpected, Err: errMismatch}
	}
	if token == "" {
		return nil, &bridge.OrchestratorError{Reason: bridge.ReasonNoTokenFound, Message: "No token found for this account."}
	}

	ctx, span := s.tracer.Start(ctx, "session.StartSession",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bridge.region", string(region)),
			attribute.Bool("bridge.identity_verified", verified != ""),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := s.backend.StartSession(ctx, identity, region, token)
	if err == nil && (res == nil || res.SessionID == "") {
		err = &bridge.OrchestratorError{Reason: bridge.ReasonOther, Message: bridge.MsgUnexpected, Err: errNoResult}
	}
	if err != nil {
		oe := bridge.AsOrchestratorError(err)
		s.metrics.ObserveOrchestrator(oe.Reason.String(), time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, oe.Reason.String())
		return nil, oe
	}

	s.metrics.ObserveOrchestrator("success", time.Since(start).Seconds())
	span.SetAttributes(attribute.String("bridge.session_status", res.Status))
	return res, nil
}
