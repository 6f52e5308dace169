package bridge

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings. It is read once at start and never
// mutated afterwards.
type Config struct {
	// MasterSecret keys the identity codec and the per-user OTP keys.
	MasterSecret string `env:"BRIDGE_MASTER_SECRET,required,notEmpty,unset"`

	// ChatPublicKey is the hex ed25519 key the chat platform signs webhooks with.
	ChatPublicKey string `env:"BRIDGE_CHAT_PUBLIC_KEY,required,notEmpty"`

	// ApplicationID identifies this bot on the chat platform.
	ApplicationID string `env:"BRIDGE_CHAT_APPLICATION_ID,required,notEmpty"`

	HTTPAddr string `env:"BRIDGE_HTTP_ADDR" envDefault:":8080"`

	// PublicURL is where browsers reach this service; the bridge script
	// posts to PublicURL + "/bridge-handoff".
	PublicURL string `env:"BRIDGE_PUBLIC_URL" envDefault:"http://localhost:8080"`

	// ThirdPartyOrigin is the only origin allowed to run the bridge script
	// and call the handoff endpoint.
	ThirdPartyOrigin string `env:"BRIDGE_THIRD_PARTY_ORIGIN" envDefault:"https://www.hoyolab.com"`

	CookieName   string `env:"BRIDGE_COOKIE_NAME" envDefault:"ltoken_v2"`
	CookieLength int    `env:"BRIDGE_COOKIE_LENGTH" envDefault:"64"`

	// TokenScheme is prepended as "<scheme>://" to forwarded bridge tokens.
	TokenScheme string `env:"BRIDGE_TOKEN_SCHEME" envDefault:"ltoken"`

	DashboardURL string `env:"BRIDGE_DASHBOARD_URL" envDefault:"http://localhost:3000"`

	OrchestratorURL        string        `env:"BRIDGE_ORCHESTRATOR_URL" envDefault:"http://localhost:9090"`
	OrchestratorSigningKey string        `env:"BRIDGE_ORCHESTRATOR_SIGNING_KEY,unset"`
	OrchestratorTimeout    time.Duration `env:"BRIDGE_ORCHESTRATOR_TIMEOUT" envDefault:"15s"`

	MetricsEnabled bool   `env:"BRIDGE_METRICS_ENABLED" envDefault:"true"`
	AuditBuffer    int    `env:"BRIDGE_AUDIT_BUFFER" envDefault:"1000"`
	TraceStdout    bool   `env:"BRIDGE_TRACE_STDOUT" envDefault:"false"`
	LogLevel       string `env:"BRIDGE_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFrom reads Config from the given variables instead of the
// process environment.
func LoadConfigFrom(vars map[string]string) (Config, error) {
	return loadConfig(env.Options{Environment: vars})
}

func loadConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("bridge: parse env: %w", err)
	}
	if cfg.OrchestratorSigningKey == "" {
		cfg.OrchestratorSigningKey = cfg.MasterSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields every bridge component depends on.
func (c Config) Validate() error {
	if c.MasterSecret == "" {
		return fmt.Errorf("bridge: master secret is required")
	}
	if c.ApplicationID == "" {
		return fmt.Errorf("bridge: application id is required")
	}
	if _, err := ParseOrigin(c.ThirdPartyOrigin); err != nil {
		return fmt.Errorf("bridge: third-party origin: %w", err)
	}
	if _, err := ParseOrigin(c.PublicURL); err != nil {
		return fmt.Errorf("bridge: public url: %w", err)
	}
	if c.CookieLength <= 0 {
		return fmt.Errorf("bridge: cookie length must be positive")
	}
	if c.CookieName == "" {
		return fmt.Errorf("bridge: cookie name is required")
	}
	if c.TokenScheme == "" || strings.Contains(c.TokenScheme, "://") {
		return fmt.Errorf("bridge: token scheme %q is invalid", c.TokenScheme)
	}
	return nil
}

// ParseOrigin validates raw as an absolute http(s) URL and returns its
// scheme://host form.
func ParseOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute http(s) url", raw)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
