package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// ClientConfig fetches the public client configuration
func (c *Client) ClientConfig(ctx context.Context) (*ClientConfigResponse, error) {
	var resp ClientConfigResponse
	q := url.Values{"client_id": {c.clientID}}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/identity/v1/config", query: q, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProvidersConfigs lists the providers enabled for the client
func (c *Client) ProvidersConfigs(ctx context.Context) ([]reachfive.ProviderConfig, error) {
	var resp ProvidersConfigsResult
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/v1/providers", out: &resp}); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Signup creates an account. The response carries no access_token when the
// identifier must be verified first.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*reachfive.TokenResponse, error) {
	req.ClientID = c.clientID
	var resp reachfive.TokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/signup-token", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginWithPassword checks credentials and returns the orchestration token
func (c *Client) LoginWithPassword(ctx context.Context, req LoginRequest) (*AuthenticationToken, error) {
	req.ClientID = c.clientID
	var resp AuthenticationToken
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/password/login", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginWithProvider exchanges a social provider credential for tokens
func (c *Client) LoginWithProvider(ctx context.Context, req LoginProviderRequest) (*reachfive.TokenResponse, error) {
	req.ClientID = c.clientID
	if req.ResponseType == "" {
		req.ResponseType = ResponseTypeToken
	}
	var resp reachfive.TokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/oauth/provider/token", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile returns the profile of the token owner
func (c *Client) GetProfile(ctx context.Context, auth string, fields []string) (*reachfive.Profile, error) {
	q := url.Values{}
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}
	var resp reachfive.Profile
	if err := c.do(ctx, call{method: http.MethodGet, path: "/identity/v1/userinfo", query: q, auth: auth, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile updates the profile fields set in profile
func (c *Client) UpdateProfile(ctx context.Context, auth string, profile *reachfive.Profile) (*reachfive.Profile, error) {
	var resp reachfive.Profile
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/update-profile", body: profile, auth: auth, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateEmail starts an email change
func (c *Client) UpdateEmail(ctx context.Context, auth string, req UpdateEmailRequest) (*reachfive.Profile, error) {
	var resp reachfive.Profile
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/update-email", body: req, auth: auth, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePhoneNumber starts a phone number change
func (c *Client) UpdatePhoneNumber(ctx context.Context, auth string, req UpdatePhoneNumberRequest) (*reachfive.Profile, error) {
	var resp reachfive.Profile
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/update-phone-number", body: req, auth: auth, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyPhoneNumber confirms a phone number
func (c *Client) VerifyPhoneNumber(ctx context.Context, auth string, req VerifyPhoneNumberRequest) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/verify-phone-number", body: req, auth: auth})
}

// UpdatePassword changes the password. auth is empty for the verification code variants.
func (c *Client) UpdatePassword(ctx context.Context, auth string, req UpdatePasswordRequest) error {
	if auth == "" {
		req.ClientID = c.clientID
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/update-password", body: req, auth: auth})
}

// RequestPasswordReset sends a reset link or code
func (c *Client) RequestPasswordReset(ctx context.Context, req RequestPasswordResetRequest) error {
	req.ClientID = c.clientID
	return c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/forgot-password", body: req})
}

// RequestAccountRecovery sends an account recovery link
func (c *Client) RequestAccountRecovery(ctx context.Context, req AccountRecoveryRequest) error {
	req.ClientID = c.clientID
	return c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/account-recovery", body: req})
}

// PasswordlessStart sends a magic link or SMS code bound to the PKCE challenge
func (c *Client) PasswordlessStart(ctx context.Context, req PasswordlessStartRequest) error {
	req.ClientID = c.clientID
	if req.ResponseType == "" {
		req.ResponseType = ResponseTypeCode
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/passwordless/start", body: req})
}

// PasswordlessVerify trades an SMS code for an authorization code
func (c *Client) PasswordlessVerify(ctx context.Context, req PasswordlessVerificationRequest) (*PasswordlessVerificationResponse, error) {
	var resp PasswordlessVerificationResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/passwordless/verify", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}
