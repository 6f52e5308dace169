//go:build integration

package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/orchestrator"
	"github.com/chimerakang/bridge-go/session"
)

// These tests talk to a running Session Orchestrator.
// Run with: go test -tags=integration ./orchestrator/...
//
// Required environment:
//   - BRIDGE_ORCHESTRATOR_URL          orchestrator base URL
//   - BRIDGE_ORCHESTRATOR_SIGNING_KEY  key it verifies service tokens with
//   - BRIDGE_CHAT_APPLICATION_ID       issuer it expects

func integrationClient(t *testing.T) *session.Service {
	t.Helper()
	url := os.Getenv("BRIDGE_ORCHESTRATOR_URL")
	key := os.Getenv("BRIDGE_ORCHESTRATOR_SIGNING_KEY")
	if url == "" || key == "" {
		t.Skip("Skipping integration test (BRIDGE_ORCHESTRATOR_URL or BRIDGE_ORCHESTRATOR_SIGNING_KEY not set)")
	}
	tokens, err := orchestrator.NewTokenSource([]byte(key), os.Getenv("BRIDGE_CHAT_APPLICATION_ID"))
	if err != nil {
		t.Fatal(err)
	}
	return session.New(orchestrator.New(url, tokens, orchestrator.WithTimeout(10*time.Second)))
}

func TestIntegration_UnknownTokenRejected(t *testing.T) {
	svc := integrationClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := svc.StartSession(ctx, "integration-user", bridge.RegionIntl, "ltoken://not-a-real-token")
	if err == nil {
		t.Fatal("expected the orchestrator to refuse an unknown token")
	}
	var oe *bridge.OrchestratorError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OrchestratorError, got %T: %v", err, err)
	}
	if oe.Message == "" {
		t.Error("refusals should carry a user-facing message")
	}
}

func TestIntegration_ConcurrentStartsConflict(t *testing.T) {
	token := os.Getenv("BRIDGE_INTEGRATION_TOKEN")
	if token == "" {
		t.Skip("Skipping integration test (BRIDGE_INTEGRATION_TOKEN not set)")
	}
	svc := integrationClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first, err := svc.StartSession(ctx, "integration-user", bridge.RegionIntl, token)
	if err != nil {
		t.Fatalf("first StartSession() error: %v", err)
	}
	if first.SessionID == "" {
		t.Fatal("first StartSession() returned no session id")
	}

	_, err = svc.StartSession(ctx, "integration-user", bridge.RegionIntl, token)
	if oe := bridge.AsOrchestratorError(err); err != nil && oe.Reason != bridge.ReasonConflict {
		t.Errorf("second StartSession() reason = %v, want conflict or success", oe.Reason)
	}
}
