package reachfive

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is the numeric code a host can switch on without inspecting error types.
// HTTP statuses map to themselves; SDK-side failures use the 49000/52000 ranges.
type ErrorCode int

const (
	CodeOAuthAuthorizationError ErrorCode = 303

	CodeBadRequest          ErrorCode = 400
	CodeUnauthorized        ErrorCode = 401
	CodeForbidden           ErrorCode = 403
	CodeNotFound            ErrorCode = 404
	CodeConflict            ErrorCode = 409
	CodeTooManyRequests     ErrorCode = 429
	CodeInternalServerError ErrorCode = 500
	CodeNotImplemented      ErrorCode = 501
	CodeBadGateway          ErrorCode = 502
	CodeServiceUnavailable  ErrorCode = 503
	CodeGatewayTimeout      ErrorCode = 504

	CodeUnexpected      ErrorCode = 49000
	CodeUserCancelled   ErrorCode = 52000
	CodeWebFlowCanceled ErrorCode = 52001
	CodeNoPayload       ErrorCode = 52002
	CodeNoAuthCode      ErrorCode = 52003
	CodeNoPkce          ErrorCode = 52004
)

var (
	// ErrMissingFlowState is returned when a result arrives for a request code that
	// has no persisted PendingFlow or PKCE record, typically a duplicate or late callback.
	ErrMissingFlowState = &flowStateError{}

	// ErrUnmatched is returned when nothing claims a request code.
	ErrUnmatched = errors.New("reachfive: request code matches no flow")

	ErrUnmatchedProvider        = errors.New("reachfive: no provider for request")
	ErrUserCancelled            = errors.New("reachfive: flow cancelled by user")
	ErrNoAccessToken            = errors.New("reachfive: no access_token returned")
	ErrInvalidIDToken           = errors.New("reachfive: invalid id_token")
	ErrUnexpectedExternalResult = errors.New("reachfive: unexpected external result")
	ErrNoAuthCode               = errors.New("reachfive: no authorization code in redirect")
	ErrDuplicateRequestCode     = errors.New("reachfive: request code already claimed")
	ErrFlowInProgress           = errors.New("reachfive: a flow is already pending for this request code")
	ErrNotInitialized           = errors.New("reachfive: client not initialized")

	// ErrMfaRequired is returned when a password login needs a second factor.
	// Step-up is not supported, so no token is issued.
	ErrMfaRequired = errors.New("reachfive: second factor required")

	// ErrWebFlowCancelled is the browser-hosted flavour of ErrUserCancelled.
	ErrWebFlowCancelled = fmt.Errorf("reachfive: web flow closed: %w", ErrUserCancelled)
)

// flowStateError is the concrete type of ErrMissingFlowState. It also matches
// ErrUnmatched so callers that only care about "nothing to resume" can test for either.
type flowStateError struct{}

func (e *flowStateError) Error() string { return "reachfive: no pending flow state" }

func (e *flowStateError) Is(target error) bool { return target == ErrUnmatched }

// ValidationError reports malformed caller input detected before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "reachfive: invalid input: " + e.Message
	}
	return fmt.Sprintf("reachfive: invalid %s: %s", e.Field, e.Message)
}

// FieldDetail is a per-field explanation attached to a backend error.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is an error reported by the backend, passed through verbatim.
type APIError struct {
	StatusCode   int           `json:"-"`
	Code         string        `json:"error"`
	ID           string        `json:"error_id,omitempty"`
	UserMessage  string        `json:"error_user_msg,omitempty"`
	MessageKey   string        `json:"error_message_key,omitempty"`
	Description  string        `json:"error_description,omitempty"`
	FieldDetails []FieldDetail `json:"error_details,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("reachfive: api error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	return b.String()
}

// TransportError wraps a network or codec failure talking to the backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reachfive: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AsAPIError returns the backend error carried by err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsCancelled reports whether err is the neutral "flow not completed" signal.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrUserCancelled)
}

// CodeOf maps any SDK error to its numeric code. Nil maps to 0.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return 0
	}
	if apiErr, ok := AsAPIError(err); ok {
		if apiErr.StatusCode != 0 {
			return ErrorCode(apiErr.StatusCode)
		}
		return CodeBadRequest
	}
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return CodeBadRequest
	case errors.Is(err, ErrWebFlowCancelled):
		return CodeWebFlowCanceled
	case errors.Is(err, ErrUserCancelled):
		return CodeUserCancelled
	case errors.Is(err, ErrMissingFlowState):
		return CodeNoPkce
	case errors.Is(err, ErrNoAuthCode):
		return CodeNoAuthCode
	case errors.Is(err, ErrUnexpectedExternalResult):
		return CodeNoPayload
	case errors.Is(err, ErrMfaRequired):
		return CodeUnauthorized
	}
	return CodeUnexpected
}

// NewAPIError builds an APIError for an HTTP status when the body carried no
// structured error.
func NewAPIError(status int) *APIError {
	return &APIError{
		StatusCode:  status,
		Code:        strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		Description: "ReachFive API response error",
	}
}
