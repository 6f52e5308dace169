// Command scorebridge runs the cross-domain identity bridge: the chat
// webhook, the bridge script, and the handoff endpoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/audit"
	"github.com/chimerakang/bridge-go/identity"
	"github.com/chimerakang/bridge-go/metrics"
	"github.com/chimerakang/bridge-go/orchestrator"
	"github.com/chimerakang/bridge-go/otp"
	"github.com/chimerakang/bridge-go/secret"
	"github.com/chimerakang/bridge-go/server"
	"github.com/chimerakang/bridge-go/session"
	"github.com/chimerakang/bridge-go/signature"
	"github.com/chimerakang/bridge-go/tracing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "scorebridge"

func main() {
	if err := run(); err != nil {
		slog.Error("scorebridge exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := bridge.LoadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Setup(serviceName, tracing.WithStdout(cfg.TraceStdout))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	master, err := secret.New(cfg.MasterSecret)
	if err != nil {
		return err
	}
	verifier, err := signature.NewVerifier(cfg.ChatPublicKey)
	if err != nil {
		return err
	}
	tokens, err := orchestrator.NewTokenSource([]byte(cfg.OrchestratorSigningKey), cfg.ApplicationID)
	if err != nil {
		return err
	}

	m := metrics.New(cfg.MetricsEnabled)
	auditLog := audit.New(cfg.AuditBuffer, audit.WithSlogHandler(logger.With("component", "audit")))
	defer func() { _ = auditLog.Close() }()

	backend := orchestrator.New(cfg.OrchestratorURL, tokens, orchestrator.WithTimeout(cfg.OrchestratorTimeout))
	sessions := session.New(backend, session.WithMetrics(m))

	client, err := bridge.NewClient(cfg,
		bridge.WithLogger(logger),
		bridge.WithIdentityCodec(identity.New(master)),
		bridge.WithOTPEngine(otp.New(master)),
		bridge.WithSignatureVerifier(verifier),
		bridge.WithOrchestrator(sessions),
	)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	opts := []server.Option{server.WithAudit(auditLog)}
	if cfg.MetricsEnabled {
		opts = append(opts, server.WithMetrics(m, prometheus.DefaultGatherer))
	}
	srv, err := server.New(client, opts...)
	if err != nil {
		return err
	}

	logger.Info("scorebridge starting",
		"addr", cfg.HTTPAddr,
		"public_url", cfg.PublicURL,
		"third_party_origin", client.ThirdPartyOrigin(),
	)
	return srv.Run(ctx, cfg.HTTPAddr)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
