// Package webhook implements the chat-platform webhook gateway: it parses
// verified interactions, answers the handshake, and dispatches commands.
// Signature verification happens before this package sees the body (see
// ginmw.Signature).
//
// Usage:
//
//	gw := webhook.New(client, webhook.WithMetrics(m), webhook.WithAudit(a))
//	r.POST("/webhook", ginmw.Signature(client), gw.Handle)
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/audit"
	"github.com/chimerakang/bridge-go/metrics"
	"github.com/chimerakang/bridge-go/middleware/ginmw"
	"github.com/gin-gonic/gin"
)

// InviteURLFormat builds the bot invite link from the application id.
const InviteURLFormat = "https://discord.com/oauth2/authorize?client_id=%s&scope=applications.commands"

// Terminal rejection messages.
const (
	MsgBadRequest  = "Bad request."
	MsgUnsupported = "Unsupported interaction."
	MsgFailed      = "Something went wrong while handling this command. Please try again later."
)

// Outcomes recorded on the webhook metric.
const (
	OutcomeHandshake   = "handshake"
	OutcomeCommand     = "command"
	OutcomeUnsupported = "unsupported"
	OutcomeBadRequest  = "bad_request"
)

var errNoUser = errors.New("webhook: interaction has no user")

// Gateway parses and dispatches verified interactions.
type Gateway struct {
	client  *bridge.Client
	metrics *metrics.Metrics
	audit   *audit.Logger
	now     func() time.Time
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithMetrics records webhook and command counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithAudit records issued bridge links on a.
func WithAudit(a *audit.Logger) Option {
	return func(g *Gateway) { g.audit = a }
}

// WithClock overrides the clock used for expiry display.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates a Gateway backed by client's codec and OTP engine.
func New(client *bridge.Client, opts ...Option) *Gateway {
	g := &Gateway{client: client, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Handle is the gin handler for POST /webhook. It must run after
// ginmw.Signature.
func (g *Gateway) Handle(c *gin.Context) {
	ctx := bridge.WithRequestID(c.Request.Context(), ginmw.GetRequestID(c))
	status, payload := g.Dispatch(ctx, ginmw.GetRawBody(c))
	c.JSON(status, payload)
}

// Dispatch parses a verified body and returns the HTTP status and JSON
// payload to send back.
func (g *Gateway) Dispatch(ctx context.Context, body []byte) (int, any) {
	var head struct {
		Type InteractionType `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return g.reject(ctx, http.StatusBadRequest, OutcomeBadRequest, MsgBadRequest)
	}

	switch head.Type {
	case TypePing:
		g.metrics.RecordWebhook(OutcomeHandshake)
		return http.StatusOK, Pong()

	case TypeCommand:
		var in Interaction
		if err := json.Unmarshal(body, &in); err != nil || in.Data == nil {
			return g.reject(ctx, http.StatusBadRequest, OutcomeBadRequest, MsgBadRequest)
		}
		cmd, ok := ParseCommand(in.Data.Name)
		if !ok {
			return g.reject(ctx, http.StatusBadRequest, OutcomeUnsupported, MsgUnsupported)
		}
		g.metrics.RecordWebhook(OutcomeCommand)
		return http.StatusOK, g.Run(ctx, Request{
			Command:          cmd,
			UserID:           in.UserID(),
			ApplicationID:    g.client.Config().ApplicationID,
			InteractionToken: in.Token,
			RequestID:        bridge.RequestIDFromContext(ctx),
		})

	default:
		return g.reject(ctx, http.StatusBadRequest, OutcomeBadRequest, MsgBadRequest)
	}
}

func (g *Gateway) reject(ctx context.Context, status int, outcome, msg string) (int, any) {
	g.metrics.RecordWebhook(outcome)
	g.client.Logger().InfoContext(ctx, "webhook rejected",
		"request_id", bridge.RequestIDFromContext(ctx),
		"outcome", outcome,
	)
	return status, gin.H{"error": msg}
}

// Run executes one command. Handler failures and panics become a
// best-effort error reply.
func (g *Gateway) Run(ctx context.Context, req Request) (resp Response) {
	logger := g.client.Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "command panicked",
				"request_id", req.RequestID,
				"command", req.Command.String(),
				"panic", fmt.Sprint(r),
			)
			g.metrics.RecordCommand(req.Command.String(), "panic")
			resp = Reply(MsgFailed)
		}
	}()

	var (
		content string
		err     error
	)
	switch req.Command {
	case CommandInvite:
		content = g.invite(req)
	case CommandProfile, CommandProfileJP:
		content, err = g.profile(req)
	case CommandRefresh, CommandRefreshJP:
		content, err = g.refresh(ctx, req)
	default:
		return Reply(MsgUnsupported)
	}

	if err != nil {
		logger.WarnContext(ctx, "command failed",
			"request_id", req.RequestID,
			"command", req.Command.String(),
			"error", err,
		)
		g.metrics.RecordCommand(req.Command.String(), "error")
		return Reply(MsgFailed)
	}
	g.metrics.RecordCommand(req.Command.String(), "ok")
	return Reply(content)
}

func (g *Gateway) invite(req Request) string {
	link := fmt.Sprintf(InviteURLFormat, url.QueryEscape(req.ApplicationID))
	return "Add the bot to your server: " + link
}

func (g *Gateway) profile(req Request) (string, error) {
	if req.UserID == "" {
		return "", errNoUser
	}
	codec := g.client.Codec()
	if codec == nil {
		return "", errors.New("webhook: identity codec not configured")
	}
	return "Your profile: " + ProfileLink(g.client.Config().DashboardURL, codec.Encode(req.UserID), req.Command.Region()), nil
}

func (g *Gateway) refresh(ctx context.Context, req Request) (string, error) {
	if req.UserID == "" {
		return "", errNoUser
	}
	region := req.Command.Region()
	link, expires, err := g.IssueLink(req.UserID, region)
	if err != nil {
		g.audit.Log(audit.Event{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			Action:    audit.ActionLinkIssued,
			Region:    string(region),
			Result:    audit.ResultFailure,
			Error:     err.Error(),
		})
		return "", err
	}

	g.metrics.RecordLinkIssued(string(region))
	g.audit.Log(audit.Event{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Action:    audit.ActionLinkIssued,
		Region:    string(region),
		Result:    audit.ResultSuccess,
	})
	g.client.Logger().InfoContext(ctx, "bridge link issued",
		"request_id", req.RequestID,
		"region", string(region),
	)

	script := g.client.Config().PublicURL + "/bridge-script"
	return fmt.Sprintf("Open this link while signed in, then run the bridge script from %s:\n%s\nThe code expires <t:%d:R>.",
		script, link, expires.Unix()), nil
}

// IssueLink generates a fresh opaque identifier and OTP for identity and
// formats the bridge link carrying both. It does not contact the
// orchestrator.
func (g *Gateway) IssueLink(identity string, region bridge.Region) (string, time.Time, error) {
	codec, engine := g.client.Codec(), g.client.OTP()
	if codec == nil || engine == nil {
		return "", time.Time{}, errors.New("webhook: codec or otp engine not configured")
	}
	code, err := engine.Generate(identity)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("webhook: generate otp: %w", err)
	}
	link := BridgeLink(g.client.ThirdPartyOrigin(), code, codec.Encode(identity), region)
	return link, engine.NextExpiry(g.now()), nil
}

// BridgeLink formats origin/#otp=...&user=...&region=... The values travel
// in the fragment so they are never sent to a server by navigation.
func BridgeLink(origin, code, opaque string, region bridge.Region) string {
	return origin + "/#otp=" + url.QueryEscape(code) +
		"&user=" + url.QueryEscape(opaque) +
		"&region=" + url.QueryEscape(string(region))
}

// ProfileLink formats the dashboard profile page for an opaque identifier.
func ProfileLink(dashboard, opaque string, region bridge.Region) string {
	link := dashboard + "/profile/" + url.PathEscape(opaque)
	if region != bridge.RegionIntl {
		link += "?region=" + url.QueryEscape(string(region))
	}
	return link
}
