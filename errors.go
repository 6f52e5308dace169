package bridge

import (
	"errors"
	"net/http"
)

// Kind classifies every failure the bridge can surface to a caller.
type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindMalformedRequest
	KindInvalidIdentity
	KindInvalidOTP
	KindOrchestratorConflict
	KindOrchestratorRateLimited
	KindOrchestratorInputRejected
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindMalformedRequest:
		return "malformed_request"
	case KindInvalidIdentity:
		return "invalid_identity"
	case KindInvalidOTP:
		return "invalid_otp"
	case KindOrchestratorConflict:
		return "orchestrator_conflict"
	case KindOrchestratorRateLimited:
		return "orchestrator_rate_limited"
	case KindOrchestratorInputRejected:
		return "orchestrator_input_rejected"
	default:
		return "unexpected"
	}
}

// HTTPStatus maps a Kind to the status code used on the handoff surface.
func HTTPStatus(k Kind) int {
	switch k {
	case KindUnauthenticated, KindInvalidIdentity, KindInvalidOTP:
		return http.StatusUnauthorized
	case KindMalformedRequest, KindOrchestratorInputRejected:
		return http.StatusBadRequest
	case KindOrchestratorConflict:
		return http.StatusConflict
	case KindOrchestratorRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is what the end user sees.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError creates a classified error with a user-facing message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "bridge: " + e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return "bridge: " + e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Messages shown to callers of the handoff endpoint.
const (
	MsgMissingFields     = "Missing required form fields."
	MsgInvalidIdentifier = "Invalid user identifier."
	MsgInvalidOTP        = "Invalid or expired OTP."
	MsgInvalidToken      = "Invalid session token."
	MsgUnexpected        = "Unexpected error."
)

// Classify converts any error into an *Error. Orchestrator refusals keep
// their message verbatim. Anything unrecognised becomes KindUnexpected with
// a generic message so internals never leak.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	if oe := AsOrchestratorError(err); oe != nil {
		switch oe.Reason {
		case ReasonConflict:
			return &Error{Kind: KindOrchestratorConflict, Message: oe.Message, Err: err}
		case ReasonRateLimited:
			return &Error{Kind: KindOrchestratorRateLimited, Message: oe.Message, Err: err}
		case ReasonNoTokenFound:
			return &Error{Kind: KindOrchestratorInputRejected, Message: oe.Message, Err: err}
		}
	}
	return &Error{Kind: KindUnexpected, Message: MsgUnexpected, Err: err}
}
