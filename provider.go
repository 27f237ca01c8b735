package reachfive

import (
	"context"
	"fmt"
	"net/url"
)

// ResultCode is the coarse status an external agent reports back
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultCanceled
	ResultError
)

func (r ResultCode) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCanceled:
		return "canceled"
	case ResultError:
		return "error"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Outcome is what the host forwards once the external agent hands control back.
type Outcome struct {
	ResultCode ResultCode
	// RedirectURL is the deep link the browser returned to, for redirect based flows.
	RedirectURL string
	// Data is the raw payload of the external agent (credential JSON, provider token).
	Data []byte
	// Err is the agent's own failure, when ResultCode is ResultError.
	Err error
}

// Query parses the query string of RedirectURL
func (o Outcome) Query() (url.Values, error) {
	if o.RedirectURL == "" {
		return nil, ErrUnexpectedExternalResult
	}
	u, err := url.Parse(o.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedExternalResult, err)
	}
	return u.Query(), nil
}

// Check maps a non OK outcome to its error
func (o Outcome) Check() error {
	switch o.ResultCode {
	case ResultOK:
		return nil
	case ResultCanceled:
		return ErrUserCancelled
	}
	if o.Err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedExternalResult, o.Err)
	}
	return ErrUnexpectedExternalResult
}

// LoginRequest carries the per call parameters of a provider login
type LoginRequest struct {
	Origin string
	Scope  ScopeSet
	State  string
	Nonce  string
}

// Provider is one login modality. Providers that suspend persist what they need
// to resume in a PendingFlow before handing control away.
type Provider interface {
	Name() string
	RequestCode() int
	Login(ctx context.Context, req LoginRequest) error
	OnResult(ctx context.Context, flow *PendingFlow, outcome Outcome) (*AuthToken, error)
}

// PermissionHandler is implemented by providers that request runtime permissions
type PermissionHandler interface {
	OnPermissionResult(ctx context.Context, requestCode int, permissions []string, granted []bool) error
}

// Suspender is implemented by providers holding resources to release on process teardown
type Suspender interface {
	OnSuspend()
}

// LogoutProvider is implemented by providers with their own session to release
type LogoutProvider interface {
	Logout(ctx context.Context) error
}

// CodeSharer is implemented by providers that share one request code with
// others of their family. The pending flow records which of them started.
type CodeSharer interface {
	CodeOwner() string
}

// ClaimOwner is the owner p claims its request code under
func ClaimOwner(p Provider) string {
	if s, ok := p.(CodeSharer); ok {
		return s.CodeOwner()
	}
	return p.Name()
}

// OnPermissionResult forwards to p when it handles permissions
func OnPermissionResult(ctx context.Context, p Provider, requestCode int, permissions []string, granted []bool) error {
	if h, ok := p.(PermissionHandler); ok {
		return h.OnPermissionResult(ctx, requestCode, permissions, granted)
	}
	return nil
}

// Suspend notifies p of process teardown when it cares
func Suspend(p Provider) {
	if s, ok := p.(Suspender); ok {
		s.OnSuspend()
	}
}

// Logout releases the provider session when p has one
func Logout(ctx context.Context, p Provider) error {
	if l, ok := p.(LogoutProvider); ok {
		if err := l.Logout(ctx); err != nil {
			return fmt.Errorf("%s logout: %w", p.Name(), err)
		}
	}
	return nil
}

// ProviderConfig is a provider advertised by the backend
type ProviderConfig struct {
	Provider string   `json:"provider"`
	ClientID string   `json:"clientId,omitempty"`
	Scope    []string `json:"scope,omitempty"`
}

// Browser is the host surface that shows a URL and later forwards the redirect
// to the client's OnResult under requestCode.
type Browser interface {
	OpenURL(ctx context.Context, requestCode int, u string) error
}

// BrowserFunc adapts a function to Browser
type BrowserFunc func(ctx context.Context, requestCode int, u string) error

func (f BrowserFunc) OpenURL(ctx context.Context, requestCode int, u string) error {
	return f(ctx, requestCode, u)
}

// AuthorizationCode extracts the code from the query of an authorization redirect.
// A redirect carrying error parameters yields an *APIError with status 303.
func AuthorizationCode(q url.Values) (string, error) {
	if e := q.Get("error"); e != "" {
		return "", &APIError{
			StatusCode:  int(CodeOAuthAuthorizationError),
			Code:        e,
			ID:          q.Get("error_id"),
			Description: q.Get("error_description"),
			MessageKey:  q.Get("error_message_key"),
			UserMessage: q.Get("error_user_msg"),
		}
	}
	if code := q.Get("code"); code != "" {
		return code, nil
	}
	return "", ErrNoAuthCode
}
