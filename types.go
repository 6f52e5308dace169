package bridge

import (
	"errors"
	"fmt"
	"strings"
)

// Region selects which game deployment the Session Orchestrator targets.
type Region string

const (
	RegionIntl Region = "intl"
	RegionJP   Region = "jp"
)

// ParseRegion maps a raw form or fragment value to a Region.
// Anything other than a recognised region falls back to RegionIntl.
func ParseRegion(raw string) Region {
	switch Region(strings.ToLower(strings.TrimSpace(raw))) {
	case RegionJP:
		return RegionJP
	default:
		return RegionIntl
	}
}

// HandoffResult is returned by the Session Orchestrator once a scrape job
// has been started or resumed. The bridge only echoes it back.
type HandoffResult struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

// OrchestratorReason tags why the Session Orchestrator refused a request.
type OrchestratorReason int

const (
	ReasonOther OrchestratorReason = iota
	ReasonConflict
	ReasonRateLimited
	ReasonNoTokenFound
)

func (r OrchestratorReason) String() string {
	switch r {
	case ReasonConflict:
		return "conflict"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonNoTokenFound:
		return "no_token_found"
	default:
		return "other"
	}
}

// OrchestratorError is the failure side of SessionOrchestrator.StartSession.
// Message is human readable and safe to show to the end user.
type OrchestratorError struct {
	Reason  OrchestratorReason
	Message string
	Err     error
}

func (e *OrchestratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("orchestrator %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("orchestrator %s: %s", e.Reason, e.Message)
}

func (e *OrchestratorError) Unwrap() error { return e.Err }

// AsOrchestratorError returns err as an *OrchestratorError. Typed errors are
// returned as is; untyped ones are classified by their message so a backend
// that only reports text (for example "a job is already in progress") still
// maps onto the right variant. The message is kept verbatim.
func AsOrchestratorError(err error) *OrchestratorError {
	if err == nil {
		return nil
	}
	var oe *OrchestratorError
	if errors.As(err, &oe) {
		return oe
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	reason := ReasonOther
	switch {
	case strings.Contains(lower, "already in progress"):
		reason = ReasonConflict
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "too many requests"):
		reason = ReasonRateLimited
	case strings.Contains(lower, "no token"):
		reason = ReasonNoTokenFound
	}
	return &OrchestratorError{Reason: reason, Message: msg, Err: err}
}
