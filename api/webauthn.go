package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// WebAuthnRegistrationRequest asks for credential creation options.
// Profile and ClientID are only set for signup.
type WebAuthnRegistrationRequest struct {
	Origin       string                                  `json:"origin"`
	FriendlyName string                                  `json:"friendly_name"`
	Profile      *reachfive.ProfileWebAuthnSignupRequest `json:"profile,omitempty"`
	ClientID     string                                  `json:"client_id,omitempty"`
}

// WebAuthnLoginRequest asks for assertion options. Without email or phone
// number the login is discoverable.
type WebAuthnLoginRequest struct {
	ClientID    string `json:"client_id"`
	Origin      string `json:"origin"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// RelyingParty identifies the relying party
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEntity is the account the credential is created for.
// ID is the webauthn user id, opaque to the SDK.
type UserEntity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

// CredentialParameter is one acceptable key type
type CredentialParameter struct {
	Alg  int    `json:"alg"`
	Type string `json:"type"`
}

// CredentialDescriptor references an existing credential. ID is base64url.
type CredentialDescriptor struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Transports []string `json:"transports,omitempty"`
}

// AuthenticatorSelection is the backend's authenticator selection criteria
type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticator_attachment,omitempty"`
	RequireResidentKey      *bool  `json:"require_resident_key,omitempty"`
	ResidentKey             string `json:"resident_key,omitempty"`
	UserVerification        string `json:"user_verification,omitempty"`
}

// UnmarshalJSON accepts both the snake_case and camelCase spellings the backend emits
func (a *AuthenticatorSelection) UnmarshalJSON(data []byte) error {
	var aux struct {
		AuthenticatorAttachment      string `json:"authenticator_attachment"`
		AuthenticatorAttachmentCamel string `json:"authenticatorAttachment"`
		RequireResidentKey           *bool  `json:"require_resident_key"`
		RequireResidentKeyCamel      *bool  `json:"requireResidentKey"`
		ResidentKey                  string `json:"resident_key"`
		ResidentKeyCamel             string `json:"residentKey"`
		UserVerification             string `json:"user_verification"`
		UserVerificationCamel        string `json:"userVerification"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = AuthenticatorSelection{
		AuthenticatorAttachment: firstNonEmpty(aux.AuthenticatorAttachment, aux.AuthenticatorAttachmentCamel),
		RequireResidentKey:      aux.RequireResidentKey,
		ResidentKey:             firstNonEmpty(aux.ResidentKey, aux.ResidentKeyCamel),
		UserVerification:        firstNonEmpty(aux.UserVerification, aux.UserVerificationCamel),
	}
	if a.RequireResidentKey == nil {
		a.RequireResidentKey = aux.RequireResidentKeyCamel
	}
	return nil
}

// PublicKeyCreationOptions is the backend's PublicKeyCredentialCreationOptions.
// Binary values are base64url strings.
type PublicKeyCreationOptions struct {
	RP                     RelyingParty            `json:"rp"`
	User                   UserEntity              `json:"user"`
	Challenge              string                  `json:"challenge"`
	PubKeyCredParams       []CredentialParameter   `json:"pub_key_cred_params"`
	Timeout                *int                    `json:"timeout,omitempty"`
	ExcludeCredentials     []CredentialDescriptor  `json:"exclude_credentials,omitempty"`
	AuthenticatorSelection *AuthenticatorSelection `json:"authenticator_selection,omitempty"`
	Attestation            string                  `json:"attestation,omitempty"`
}

// UnmarshalJSON accepts both the snake_case and camelCase spellings the backend emits
func (o *PublicKeyCreationOptions) UnmarshalJSON(data []byte) error {
	type plain PublicKeyCreationOptions
	var aux struct {
		plain
		PubKeyCredParamsCamel       []CredentialParameter   `json:"pubKeyCredParams"`
		ExcludeCredentialsCamel     []CredentialDescriptor  `json:"excludeCredentials"`
		AuthenticatorSelectionCamel *AuthenticatorSelection `json:"authenticatorSelection"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = PublicKeyCreationOptions(aux.plain)
	if o.PubKeyCredParams == nil {
		o.PubKeyCredParams = aux.PubKeyCredParamsCamel
	}
	if o.ExcludeCredentials == nil {
		o.ExcludeCredentials = aux.ExcludeCredentialsCamel
	}
	if o.AuthenticatorSelection == nil {
		o.AuthenticatorSelection = aux.AuthenticatorSelectionCamel
	}
	return nil
}

// CredentialCreationOptions wraps the public key options
type CredentialCreationOptions struct {
	PublicKey PublicKeyCreationOptions `json:"public_key"`
}

// RegistrationOptions is returned by signup-options and registration-options
type RegistrationOptions struct {
	FriendlyName string                    `json:"friendly_name"`
	Options      CredentialCreationOptions `json:"options"`
}

// UserID is the webauthn user id to echo back on signup
func (r *RegistrationOptions) UserID() string {
	return r.Options.PublicKey.User.ID
}

// PublicKeyRequestOptions is the backend's PublicKeyCredentialRequestOptions
type PublicKeyRequestOptions struct {
	Challenge        string                 `json:"challenge"`
	Timeout          *int                   `json:"timeout,omitempty"`
	RPID             string                 `json:"rp_id"`
	AllowCredentials []CredentialDescriptor `json:"allow_credentials"`
	UserVerification string                 `json:"user_verification,omitempty"`
}

// AuthenticationOptions is returned by authentication-options
type AuthenticationOptions struct {
	PublicKey PublicKeyRequestOptions `json:"public_key"`
}

// AttestationResponse is the authenticator's registration response, base64url encoded
type AttestationResponse struct {
	AttestationObject string `json:"attestation_object"`
	ClientDataJSON    string `json:"client_data_json"`
}

// RegistrationPublicKeyCredential is a new credential as the backend expects it
type RegistrationPublicKeyCredential struct {
	ID       string              `json:"id"`
	RawID    string              `json:"raw_id"`
	Type     string              `json:"type"`
	Response AttestationResponse `json:"response"`
}

// AssertionResponse is the authenticator's login response, base64url encoded
type AssertionResponse struct {
	AuthenticatorData string `json:"authenticator_data"`
	ClientDataJSON    string `json:"client_data_json"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"user_handle,omitempty"`
}

// AuthenticationPublicKeyCredential is an assertion as the backend expects it
type AuthenticationPublicKeyCredential struct {
	ID       string            `json:"id"`
	RawID    string            `json:"raw_id"`
	Type     string            `json:"type"`
	Response AssertionResponse `json:"response"`
}

// WebauthnSignupCredential completes a passkey signup
type WebauthnSignupCredential struct {
	WebauthnID          string                          `json:"webauthn_id"`
	PublicKeyCredential RegistrationPublicKeyCredential `json:"public_key_credential"`
}

// DeviceCredential is a registered WebAuthn device
type DeviceCredential struct {
	FriendlyName string `json:"friendly_name"`
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at,omitempty"`
	LastUsedAt   string `json:"last_used_at,omitempty"`
	AAGUID       string `json:"aaguid,omitempty"`
}

// WebAuthnSignupOptions fetches creation options for a passkey signup
func (c *Client) WebAuthnSignupOptions(ctx context.Context, req WebAuthnRegistrationRequest) (*RegistrationOptions, error) {
	req.ClientID = c.clientID
	var resp RegistrationOptions
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/webauthn/signup-options", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WebAuthnSignup submits the new credential and returns the orchestration token
func (c *Client) WebAuthnSignup(ctx context.Context, cred WebauthnSignupCredential) (*AuthenticationToken, error) {
	var resp AuthenticationToken
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/webauthn/signup", body: cred, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WebAuthnRegistrationOptions fetches creation options for a new device of a logged in user
func (c *Client) WebAuthnRegistrationOptions(ctx context.Context, auth string, req WebAuthnRegistrationRequest) (*RegistrationOptions, error) {
	var resp RegistrationOptions
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/webauthn/registration-options", body: req, auth: auth, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WebAuthnRegister submits the credential of a new device
func (c *Client) WebAuthnRegister(ctx context.Context, auth string, cred RegistrationPublicKeyCredential) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/webauthn/registration", body: cred, auth: auth})
}

// WebAuthnRegistrations lists the devices of the token owner
func (c *Client) WebAuthnRegistrations(ctx context.Context, auth string) ([]DeviceCredential, error) {
	var resp []DeviceCredential
	if err := c.do(ctx, call{method: http.MethodGet, path: "/identity/v1/webauthn/registration", auth: auth, out: &resp}); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteWebAuthnRegistration removes a device
func (c *Client) DeleteWebAuthnRegistration(ctx context.Context, auth, id string) error {
	path := "/identity/v1/webauthn/registration/" + url.PathEscape(id)
	return c.do(ctx, call{method: http.MethodDelete, path: path, auth: auth})
}

// WebAuthnAuthenticationOptions fetches assertion options
func (c *Client) WebAuthnAuthenticationOptions(ctx context.Context, req WebAuthnLoginRequest) (*AuthenticationOptions, error) {
	req.ClientID = c.clientID
	var resp AuthenticationOptions
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/webauthn/authentication-options", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WebAuthnAuthenticate submits an assertion and returns the orchestration token
func (c *Client) WebAuthnAuthenticate(ctx context.Context, cred AuthenticationPublicKeyCredential) (*AuthenticationToken, error) {
	var resp AuthenticationToken
	if err := c.do(ctx, call{method: http.MethodPost, path: "/identity/v1/webauthn/authentication", body: cred, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
