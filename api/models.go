package api

import reachfive "github.com/ReachFive/identity-android-sdk-sub000"

// Grant and response types
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	ResponseTypeCode       = "code"
	ResponseTypeToken      = "token"
)

// ClientConfigResponse is the public configuration of the OAuth client
type ClientConfigResponse struct {
	Scope string `json:"scope"`
}

// ProvidersConfigsResult lists the providers enabled for the client
type ProvidersConfigsResult struct {
	Items  []reachfive.ProviderConfig `json:"items"`
	Status string                     `json:"status,omitempty"`
}

// SignupRequest creates an account and logs it in
type SignupRequest struct {
	ClientID    string                          `json:"client_id"`
	Data        *reachfive.ProfileSignupRequest `json:"data"`
	Scope       string                          `json:"scope"`
	RedirectURL string                          `json:"redirect_url,omitempty"`
	Origin      string                          `json:"origin,omitempty"`
}

// LoginRequest is a password login. Exactly one identifier is set.
type LoginRequest struct {
	Email            string `json:"email,omitempty"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	CustomIdentifier string `json:"custom_identifier,omitempty"`
	Password         string `json:"password"`
	ClientID         string `json:"client_id"`
	Scope            string `json:"scope"`
	Origin           string `json:"origin,omitempty"`
}

// AuthenticationToken is the short-lived orchestration token "tkn" that the
// authorize endpoint turns into an authorization code
type AuthenticationToken struct {
	Tkn         string `json:"tkn"`
	MfaRequired bool   `json:"mfa_required,omitempty"`
}

// LoginProviderRequest exchanges a social provider credential for tokens
type LoginProviderRequest struct {
	Provider      string `json:"provider"`
	ProviderToken string `json:"provider_token,omitempty"`
	Code          string `json:"code,omitempty"`
	IDToken       string `json:"id_token,omitempty"`
	Nonce         string `json:"nonce,omitempty"`
	Origin        string `json:"origin,omitempty"`
	ClientID      string `json:"client_id"`
	ResponseType  string `json:"response_type"`
	Scope         string `json:"scope"`
}

// AuthCodeRequest is the authorization_code grant
type AuthCodeRequest struct {
	ClientID     string `json:"client_id"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
	GrantType    string `json:"grant_type"`
}

// RefreshRequest is the refresh_token grant
type RefreshRequest struct {
	ClientID     string `json:"client_id"`
	RefreshToken string `json:"refresh_token"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	GrantType    string `json:"grant_type"`
}

// RevokeRequest revokes an access or refresh token
type RevokeRequest struct {
	ClientID      string `json:"client_id"`
	Token         string `json:"token"`
	TokenTypeHint string `json:"token_type_hint"`
}

// UpdateEmailRequest starts an email change
type UpdateEmailRequest struct {
	Email       string `json:"email"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// UpdatePhoneNumberRequest starts a phone number change
type UpdatePhoneNumberRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// VerifyPhoneNumberRequest confirms a phone number with the SMS code
type VerifyPhoneNumberRequest struct {
	PhoneNumber      string `json:"phone_number"`
	VerificationCode string `json:"verification_code"`
}

// UpdatePasswordRequest covers every password update variant: with a fresh
// access token (Password only), with the old password, or with a verification
// code sent to an email or phone number (ClientID required).
type UpdatePasswordRequest struct {
	Password         string `json:"password"`
	OldPassword      string `json:"old_password,omitempty"`
	Email            string `json:"email,omitempty"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	VerificationCode string `json:"verification_code,omitempty"`
	ClientID         string `json:"client_id,omitempty"`
}

// RequestPasswordResetRequest sends a password reset link or code
type RequestPasswordResetRequest struct {
	ClientID    string `json:"client_id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// AccountRecoveryRequest sends an account recovery link
type AccountRecoveryRequest struct {
	ClientID    string `json:"client_id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Passwordless auth types
const (
	PasswordlessMagicLink = "magic_link"
	PasswordlessSMS       = "sms"
)

// PasswordlessStartRequest sends a magic link or an SMS code
type PasswordlessStartRequest struct {
	ClientID            string `json:"client_id"`
	Email               string `json:"email,omitempty"`
	PhoneNumber         string `json:"phone_number,omitempty"`
	AuthType            string `json:"auth_type"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	ResponseType        string `json:"response_type"`
	RedirectURI         string `json:"redirect_uri"`
	Origin              string `json:"origin,omitempty"`
}

// PasswordlessVerificationRequest trades an SMS code for an authorization code
type PasswordlessVerificationRequest struct {
	PhoneNumber      string `json:"phone_number"`
	VerificationCode string `json:"verification_code"`
}

// PasswordlessVerificationResponse carries the authorization code
type PasswordlessVerificationResponse struct {
	AuthCode string `json:"code"`
}
