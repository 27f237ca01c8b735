package reachfive

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, 0},
		{"api error", &APIError{StatusCode: http.StatusConflict, Code: "email_already_exists"}, CodeConflict},
		{"api error without status", &APIError{Code: "x"}, CodeBadRequest},
		{"validation", &ValidationError{Field: "email", Message: "bad"}, CodeBadRequest},
		{"cancelled", ErrUserCancelled, CodeUserCancelled},
		{"web flow cancelled", ErrWebFlowCancelled, CodeWebFlowCanceled},
		{"missing flow", ErrMissingFlowState, CodeNoPkce},
		{"wrapped missing flow", fmt.Errorf("resume: %w", ErrMissingFlowState), CodeNoPkce},
		{"no auth code", ErrNoAuthCode, CodeNoAuthCode},
		{"no payload", ErrUnexpectedExternalResult, CodeNoPayload},
		{"mfa required", ErrMfaRequired, CodeUnauthorized},
		{"transport", &TransportError{Op: "GET /x", Err: errors.New("refused")}, CodeUnexpected},
		{"other", errors.New("boom"), CodeUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMissingFlowStateMatchesUnmatched(t *testing.T) {
	if !errors.Is(ErrMissingFlowState, ErrUnmatched) {
		t.Error("ErrMissingFlowState should match ErrUnmatched")
	}
	if errors.Is(ErrUnmatched, ErrMissingFlowState) {
		t.Error("ErrUnmatched should not match ErrMissingFlowState")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(ErrWebFlowCancelled) || !IsCancelled(fmt.Errorf("x: %w", ErrUserCancelled)) {
		t.Error("cancellations not detected")
	}
	if IsCancelled(ErrNoAuthCode) {
		t.Error("ErrNoAuthCode is not a cancellation")
	}
}

func TestNewAPIError(t *testing.T) {
	err := NewAPIError(http.StatusServiceUnavailable)
	if err.Code != "service_unavailable" || err.StatusCode != 503 {
		t.Errorf("NewAPIError() = %+v", err)
	}
	if got := err.Error(); got != "reachfive: api error (HTTP 503): service_unavailable: ReachFive API response error" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAuthorizationCode(t *testing.T) {
	code, err := AuthorizationCode(url.Values{"code": {"ABC123"}})
	if err != nil || code != "ABC123" {
		t.Errorf("AuthorizationCode() = %q, %v", code, err)
	}

	_, err = AuthorizationCode(url.Values{"error": {"access_denied"}, "error_description": {"denied"}, "error_id": {"e1"}})
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != int(CodeOAuthAuthorizationError) || apiErr.Code != "access_denied" || apiErr.ID != "e1" {
		t.Errorf("APIError = %+v", apiErr)
	}

	_, err = AuthorizationCode(url.Values{})
	if !errors.Is(err, ErrNoAuthCode) {
		t.Errorf("err = %v, want ErrNoAuthCode", err)
	}
}

func TestOutcomeCheck(t *testing.T) {
	if err := (Outcome{ResultCode: ResultOK}).Check(); err != nil {
		t.Errorf("OK outcome: %v", err)
	}
	if err := (Outcome{ResultCode: ResultCanceled}).Check(); !errors.Is(err, ErrUserCancelled) {
		t.Errorf("canceled outcome: %v", err)
	}
	agentErr := errors.New("agent crashed")
	err := (Outcome{ResultCode: ResultError, Err: agentErr}).Check()
	if !errors.Is(err, ErrUnexpectedExternalResult) || !errors.Is(err, agentErr) {
		t.Errorf("error outcome: %v", err)
	}
	if _, err := (Outcome{}).Query(); !errors.Is(err, ErrUnexpectedExternalResult) {
		t.Errorf("Query() without URL: %v", err)
	}
}
