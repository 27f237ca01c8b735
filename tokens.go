package reachfive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// RefreshThreshold is how long before expiry a token counts as expiring soon
const RefreshThreshold = 5 * time.Minute

// Address is the OpenID address claim
type Address struct {
	Formatted     string `json:"formatted,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`
}

// OpenIDUser is the claim set carried by an id_token.
// It is only ever produced by DecodeIDToken.
type OpenIDUser struct {
	ID                  string   `json:"sub"`
	Name                string   `json:"name,omitempty"`
	PreferredUsername   string   `json:"preferred_username,omitempty"`
	GivenName           string   `json:"given_name,omitempty"`
	FamilyName          string   `json:"family_name,omitempty"`
	MiddleName          string   `json:"middle_name,omitempty"`
	Nickname            string   `json:"nickname,omitempty"`
	Picture             string   `json:"picture,omitempty"`
	Website             string   `json:"website,omitempty"`
	Email               string   `json:"email,omitempty"`
	EmailVerified       *bool    `json:"email_verified,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	ZoneInfo            string   `json:"zoneinfo,omitempty"`
	Locale              string   `json:"locale,omitempty"`
	PhoneNumber         string   `json:"phone_number,omitempty"`
	PhoneNumberVerified *bool    `json:"phone_number_verified,omitempty"`
	Address             *Address `json:"address,omitempty"`
	Birthdate           string   `json:"birthdate,omitempty"`
	UpdatedAt           int64    `json:"updated_at,omitempty"`
	ExternalID          string   `json:"external_id,omitempty"`
	CustomIdentifier    string   `json:"custom_identifier,omitempty"`
}

// AuthToken is the normalized result of every login modality.
// IDToken and User are either both set or both empty.
type AuthToken struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	IDToken      string      `json:"id_token,omitempty"`
	ExpiresIn    int         `json:"expires_in,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at,omitempty"`
	User         *OpenIDUser `json:"user,omitempty"`
}

// AuthHeader is the value of the Authorization header for authenticated calls
func (t *AuthToken) AuthHeader() string {
	return t.TokenType + " " + t.AccessToken
}

// IsExpired returns true if the access token has expired.
// Tokens issued without expires_in never expire client side.
func (t *AuthToken) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(t.ExpiresAt)
}

// IsExpiringSoon returns true if the token expires within the given duration
func (t *AuthToken) IsExpiringSoon(within time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(within).After(t.ExpiresAt)
}

// HasRefreshToken returns true if a refresh token is available
func (t *AuthToken) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// OAuth2Token converts the token for use with golang.org/x/oauth2 clients
func (t *AuthToken) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
		ExpiresIn:    int64(t.ExpiresIn),
	}
	if t.IDToken != "" {
		tok = tok.WithExtra(map[string]any{"id_token": t.IDToken})
	}
	return tok
}

// TokenResponse is the raw token endpoint payload
type TokenResponse struct {
	IDToken          string `json:"id_token,omitempty"`
	AccessToken      string `json:"access_token,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenOption tunes token normalization
type TokenOption func(*tokenOptions)

type tokenOptions struct {
	keyfunc  jwt.Keyfunc
	audience string
	now      func() time.Time
}

// WithIDTokenKeyfunc makes normalization verify the id_token signature
// (and audience when non-empty) instead of only decoding it.
func WithIDTokenKeyfunc(kf jwt.Keyfunc, audience string) TokenOption {
	return func(o *tokenOptions) {
		o.keyfunc = kf
		o.audience = audience
	}
}

// WithClock overrides the time source used to compute ExpiresAt
func WithClock(now func() time.Time) TokenOption {
	return func(o *tokenOptions) {
		o.now = now
	}
}

// NormalizeToken is the single conversion from a raw token response to an AuthToken.
// A response without access_token is a hard failure.
func NormalizeToken(resp *TokenResponse, opts ...TokenOption) (*AuthToken, error) {
	o := tokenOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if resp == nil || resp.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	tok := &AuthToken{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if resp.ExpiresIn > 0 {
		tok.ExpiresAt = o.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if resp.IDToken != "" {
		var (
			user *OpenIDUser
			err  error
		)
		if o.keyfunc != nil {
			user, err = VerifyIDToken(resp.IDToken, o.keyfunc, o.audience)
		} else {
			user, err = DecodeIDToken(resp.IDToken)
		}
		if err != nil {
			return nil, err
		}
		tok.IDToken = resp.IDToken
		tok.User = user
	}

	return tok, nil
}

// DecodeIDToken decodes the id_token payload without checking its signature.
func DecodeIDToken(idToken string) (*OpenIDUser, error) {
	parser := jwt.NewParser()
	_, parts, err := parser.ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	return decodeUserSegment(parser, parts[1])
}

// VerifyIDToken checks the id_token signature with kf before decoding it.
func VerifyIDToken(idToken string, kf jwt.Keyfunc, audience string) (*OpenIDUser, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	parser := jwt.NewParser(opts...)
	tok, err := parser.Parse(idToken, kf)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	return decodeUserSegment(parser, strings.Split(idToken, ".")[1])
}

// NewJWKSKeyfunc fetches and keeps refreshing the signing keys published at jwksURL,
// typically https://<domain>/.well-known/jwks.json.
func NewJWKSKeyfunc(ctx context.Context, jwksURL string) (jwt.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return k.Keyfunc, nil
}

func decodeUserSegment(parser *jwt.Parser, payload string) (*OpenIDUser, error) {
	raw, err := parser.DecodeSegment(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	var user OpenIDUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidIDToken)
	}
	return &user, nil
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
