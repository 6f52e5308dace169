// Package server wires the bridge's HTTP surfaces into one gin engine:
//
//	GET/OPTIONS  /bridge-script   bridge script, CORS scoped to the third-party origin
//	POST/OPTIONS /bridge-handoff  handoff endpoint, CORS scoped to the third-party origin
//	POST         /webhook         signature-authenticated chat webhook
//	GET          /healthz         liveness
//	GET          /metrics         prometheus scrape (when metrics are enabled)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/audit"
	"github.com/chimerakang/bridge-go/bridgescript"
	"github.com/chimerakang/bridge-go/handoff"
	"github.com/chimerakang/bridge-go/metrics"
	"github.com/chimerakang/bridge-go/middleware/ginmw"
	"github.com/chimerakang/bridge-go/webhook"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route paths.
const (
	PathBridgeScript  = "/bridge-script"
	PathBridgeHandoff = "/bridge-handoff"
	PathWebhook       = "/webhook"
	PathHealth        = "/healthz"
	PathMetrics       = "/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server serves every bridge route.
type Server struct {
	client   *bridge.Client
	engine   *gin.Engine
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	audit    *audit.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics records request metrics on m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) { s.metrics, s.gatherer = m, g }
}

// WithAudit records links, handoffs and rejected webhooks on a.
func WithAudit(a *audit.Logger) Option {
	return func(s *Server) { s.audit = a }
}

// New builds the router.
func New(client *bridge.Client, opts ...Option) (*Server, error) {
	s := &Server{client: client}
	for _, o := range opts {
		o(s)
	}

	emitter, err := bridgescript.New(client)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	gateway := webhook.New(client, webhook.WithMetrics(s.metrics), webhook.WithAudit(s.audit))
	handoffs := handoff.New(client, handoff.WithMetrics(s.metrics), handoff.WithAudit(s.audit))

	r := gin.New()
	r.Use(gin.Recovery(), ginmw.RequestID())

	cors := ginmw.CORS(client)
	r.GET(PathBridgeScript, cors, emitter.Handle)
	r.OPTIONS(PathBridgeScript, cors)
	r.POST(PathBridgeHandoff, cors, handoffs.Handle)
	r.OPTIONS(PathBridgeHandoff, cors)

	r.POST(PathWebhook, ginmw.Signature(client, ginmw.WithRejectHook(s.webhookRejected)), gateway.Handle)

	r.GET(PathHealth, s.health)
	if s.gatherer != nil {
		r.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	s.engine = r
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.client.Logger().Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.client.Logger().Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	if err := s.client.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) webhookRejected(c *gin.Context, reason string) {
	s.metrics.RecordWebhook("rejected_" + reason)
	s.audit.Log(audit.Event{
		RequestID: ginmw.GetRequestID(c),
		Action:    audit.ActionWebhookRejected,
		Result:    audit.ResultDenied,
		Details:   reason,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
