package bridge_test

import (
	"testing"
	"time"

	bridge "github.com/chimerakang/bridge-go"
)

func requiredVars() map[string]string {
	return map[string]string{
		"BRIDGE_MASTER_SECRET":       "master",
		"BRIDGE_CHAT_PUBLIC_KEY":     "00",
		"BRIDGE_CHAT_APPLICATION_ID": "app-1",
	}
}

func TestLoadConfigFrom_Defaults(t *testing.T) {
	cfg, err := bridge.LoadConfigFrom(requiredVars())
	if err != nil {
		t.Fatalf("LoadConfigFrom() error: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.ThirdPartyOrigin != "https://www.hoyolab.com" {
		t.Errorf("ThirdPartyOrigin = %q", cfg.ThirdPartyOrigin)
	}
	if cfg.CookieName != "ltoken_v2" || cfg.CookieLength != 64 {
		t.Errorf("cookie = %q/%d", cfg.CookieName, cfg.CookieLength)
	}
	if cfg.TokenScheme != "ltoken" {
		t.Errorf("TokenScheme = %q", cfg.TokenScheme)
	}
	if cfg.OrchestratorTimeout != 15*time.Second {
		t.Errorf("OrchestratorTimeout = %v", cfg.OrchestratorTimeout)
	}
	if cfg.OrchestratorSigningKey != "master" {
		t.Errorf("OrchestratorSigningKey = %q, want master secret fallback", cfg.OrchestratorSigningKey)
	}
	if !cfg.MetricsEnabled || cfg.AuditBuffer != 1000 || cfg.TraceStdout {
		t.Errorf("unexpected ambient defaults %+v", cfg)
	}
}

func TestLoadConfigFrom_Overrides(t *testing.T) {
	vars := requiredVars()
	vars["BRIDGE_COOKIE_LENGTH"] = "32"
	vars["BRIDGE_ORCHESTRATOR_SIGNING_KEY"] = "svc-key"
	vars["BRIDGE_ORCHESTRATOR_TIMEOUT"] = "3s"
	vars["BRIDGE_METRICS_ENABLED"] = "false"

	cfg, err := bridge.LoadConfigFrom(vars)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error: %v", err)
	}
	if cfg.CookieLength != 32 {
		t.Errorf("CookieLength = %d", cfg.CookieLength)
	}
	if cfg.OrchestratorSigningKey != "svc-key" {
		t.Errorf("OrchestratorSigningKey = %q", cfg.OrchestratorSigningKey)
	}
	if cfg.OrchestratorTimeout != 3*time.Second {
		t.Errorf("OrchestratorTimeout = %v", cfg.OrchestratorTimeout)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled should be false")
	}
}

func TestLoadConfigFrom_MissingRequired(t *testing.T) {
	for _, name := range []string{"BRIDGE_MASTER_SECRET", "BRIDGE_CHAT_PUBLIC_KEY", "BRIDGE_CHAT_APPLICATION_ID"} {
		t.Run(name, func(t *testing.T) {
			vars := requiredVars()
			delete(vars, name)
			if _, err := bridge.LoadConfigFrom(vars); err == nil {
				t.Errorf("expected error without %s", name)
			}
		})
	}
}

func TestLoadConfigFrom_EmptyMasterSecret(t *testing.T) {
	vars := requiredVars()
	vars["BRIDGE_MASTER_SECRET"] = ""
	if _, err := bridge.LoadConfigFrom(vars); err == nil {
		t.Error("an empty master secret must be fatal")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*bridge.Config)
	}{
		{"bad origin", func(c *bridge.Config) { c.ThirdPartyOrigin = "ftp://x" }},
		{"bad public url", func(c *bridge.Config) { c.PublicURL = "/relative" }},
		{"zero cookie length", func(c *bridge.Config) { c.CookieLength = 0 }},
		{"no cookie name", func(c *bridge.Config) { c.CookieName = "" }},
		{"scheme with separator", func(c *bridge.Config) { c.TokenScheme = "ltoken://" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.TokenScheme = "ltoken"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}

	cfg := baseConfig()
	cfg.TokenScheme = "ltoken"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on good config: %v", err)
	}
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"https://www.hoyolab.com", "https://www.hoyolab.com", true},
		{"HTTPS://WWW.HOYOLAB.COM/path?q=1", "https://www.hoyolab.com", true},
		{"http://localhost:8080", "http://localhost:8080", true},
		{"www.hoyolab.com", "", false},
		{"javascript:alert(1)", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := bridge.ParseOrigin(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseOrigin(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrigin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
