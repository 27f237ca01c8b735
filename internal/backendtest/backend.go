// Package backendtest is an in-process fake of the ReachFive identity backend.
//
// It implements enough of the REST surface for end to end tests of the SDK:
// password and provider login, the authorize/token endpoints with PKCE,
// passwordless, WebAuthn ceremonies without attestation checks, profile
// reads and writes, revocation and logout. Tokens are HS256 JWTs signed with
// Backend.Secret.
package backendtest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// Defaults of a fresh backend
const (
	DefaultClientID = "test-client-id"
	DefaultScope    = "openid email profile phone offline_access"
	AccessTokenTTL  = time.Hour
	RedirectURI     = "reachfive-test-client://callback"
)

type user struct {
	ID           string
	PasswordHash []byte
	Profile      reachfive.Profile
	WebAuthnID   string
	Devices      []device
}

type device struct {
	api.DeviceCredential
}

type codeGrant struct {
	UserID      string
	Challenge   string
	RedirectURI string
	Scope       string
}

type pendingSignup struct {
	Profile reachfive.ProfileWebAuthnSignupRequest
}

// Backend is the fake tenant. Fields may be tuned before the first request.
type Backend struct {
	Server   *httptest.Server
	ClientID string
	Secret   []byte
	Scope    string

	// Providers is served by /api/v1/providers
	Providers []reachfive.ProviderConfig
	// VerificationRequired makes signup answer without tokens
	VerificationRequired bool
	// RotateRefreshTokens issues a new refresh token on every refresh grant
	RotateRefreshTokens bool
	// CamelCaseOptions serves WebAuthn creation options with camelCase keys
	CamelCaseOptions bool
	// OmitAuthenticatorSelection serves creation options without authenticator selection
	OmitAuthenticatorSelection bool
	// MfaRequired flags every password login as needing a second factor
	MfaRequired bool
	// FailLogout makes /identity/v1/logout answer 500
	FailLogout bool

	mu            sync.Mutex
	users         map[string]*user
	tkns          map[string]string
	codes         map[string]codeGrant
	refresh       map[string]string
	smsCodes      map[string]string
	magicLinks    map[string]string
	passwordless  map[string]codeGrant
	signups       map[string]pendingSignup
	revoked       []string
	logouts       int
	providerUsers map[string]string
	browserUser   string
	exchanges     []Exchange

	// friendly name of the last registration-options call
	pendingFriendly string
}

// New starts a fake backend and stops it when the test ends
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		ClientID:      DefaultClientID,
		Secret:        []byte("backendtest-secret"),
		Scope:         DefaultScope,
		users:         make(map[string]*user),
		tkns:          make(map[string]string),
		codes:         make(map[string]codeGrant),
		refresh:       make(map[string]string),
		smsCodes:      make(map[string]string),
		magicLinks:    make(map[string]string),
		passwordless:  make(map[string]codeGrant),
		signups:       make(map[string]pendingSignup),
		providerUsers: make(map[string]string),
	}
	b.Server = httptest.NewServer(b.Router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the tenant base URL
func (b *Backend) URL() string {
	return b.Server.URL
}

// APIClient returns an api.Client bound to this backend
func (b *Backend) APIClient(opts ...api.Option) *api.Client {
	return api.New(b.URL(), b.ClientID, opts...)
}

// Config returns a client configuration pointing at this backend
func (b *Backend) Config() reachfive.Config {
	return reachfive.Config{
		Domain:   b.URL(),
		ClientID: b.ClientID,
		Scheme:   RedirectURI,
		Origin:   "backendtest",
	}
}

// Keyfunc verifies the id_tokens this backend signs
func (b *Backend) Keyfunc() jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return b.Secret, nil
	}
}

// Router builds the route table of the fake tenant
func (b *Backend) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/identity/v1/config", b.handleConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/providers", b.handleProviders).Methods(http.MethodGet)

	r.HandleFunc("/oauth/authorize", b.handleAuthorize).Methods(http.MethodGet)
	r.HandleFunc("/oauth/token", b.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/oauth/revoke", b.handleRevoke).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/logout", b.handleLogout).Methods(http.MethodGet)

	r.HandleFunc("/identity/v1/signup-token", b.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/password/login", b.handlePasswordLogin).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/oauth/provider/token", b.handleProviderToken).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/passwordless/start", b.handlePasswordlessStart).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/passwordless/verify", b.handlePasswordlessVerify).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/forgot-password", b.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/account-recovery", b.handleForgotPassword).Methods(http.MethodPost)

	r.HandleFunc("/identity/v1/webauthn/signup-options", b.handleSignupOptions).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/webauthn/signup", b.handleWebAuthnSignup).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/webauthn/authentication-options", b.handleAuthenticationOptions).Methods(http.MethodPost)
	r.HandleFunc("/identity/v1/webauthn/authentication", b.handleAuthentication).Methods(http.MethodPost)

	authed := r.PathPrefix("/identity/v1").Subrouter()
	authed.Use(b.requireBearer)
	authed.HandleFunc("/userinfo", b.handleUserInfo).Methods(http.MethodGet)
	authed.HandleFunc("/update-profile", b.handleUpdateProfile).Methods(http.MethodPost)
	authed.HandleFunc("/update-email", b.handleUpdateEmail).Methods(http.MethodPost)
	authed.HandleFunc("/update-phone-number", b.handleUpdatePhoneNumber).Methods(http.MethodPost)
	authed.HandleFunc("/verify-phone-number", b.handleVerifyPhoneNumber).Methods(http.MethodPost)
	authed.HandleFunc("/update-password", b.handleUpdatePassword).Methods(http.MethodPost)
	authed.HandleFunc("/webauthn/registration-options", b.handleRegistrationOptions).Methods(http.MethodPost)
	authed.HandleFunc("/webauthn/registration", b.handleRegistration).Methods(http.MethodPost)
	authed.HandleFunc("/webauthn/registration", b.handleListDevices).Methods(http.MethodGet)
	authed.HandleFunc("/webauthn/registration/{id}", b.handleDeleteDevice).Methods(http.MethodDelete)

	return r
}

// AddUser creates a password account and returns its id
func (b *Backend) AddUser(email, password string) string {
	return b.AddProfile(reachfive.Profile{Email: email}, password)
}

// AddProfile creates an account with profile and returns its id
func (b *Backend) AddProfile(profile reachfive.Profile, password string) string {
	u := &user{ID: uuid.NewString(), Profile: profile}
	u.Profile.UID = u.ID
	u.Profile.Sub = u.ID
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		u.PasswordHash = hash
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[u.ID] = u
	return u.ID
}

// Profile returns a copy of the stored profile of userID
func (b *Backend) Profile(userID string) (reachfive.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[userID]
	if !ok {
		return reachfive.Profile{}, false
	}
	return u.Profile, true
}

// UserByEmail returns the id of the account holding email
func (b *Backend) UserByEmail(email string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.findLocked(reachfive.Identifier{Email: email})
	if u == nil {
		return "", false
	}
	return u.ID, true
}

// Revoked lists the tokens passed to /oauth/revoke
func (b *Backend) Revoked() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.revoked...)
}

// Logouts counts the calls to /identity/v1/logout
func (b *Backend) Logouts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts
}

// LastSMSCode is the verification code last sent to phoneNumber
func (b *Backend) LastSMSCode(phoneNumber string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.smsCodes[phoneNumber]
}

// LastMagicLink is the magic link last sent to email
func (b *Backend) LastMagicLink(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.magicLinks[email]
}

func (b *Backend) findLocked(id reachfive.Identifier) *user {
	for _, u := range b.users {
		switch {
		case id.Email != "" && strings.EqualFold(u.Profile.Email, id.Email):
			return u
		case id.PhoneNumber != "" && u.Profile.PhoneNumber == id.PhoneNumber:
			return u
		case id.CustomIdentifier != "" && u.Profile.CustomIdentifier == id.CustomIdentifier:
			return u
		}
	}
	return nil
}

func (b *Backend) issueTknLocked(userID string) string {
	tkn := randomString(16)
	b.tkns[tkn] = userID
	return tkn
}

// issueTokensLocked mints an access token, a refresh token and an id_token
func (b *Backend) issueTokensLocked(u *user, scope string) (*reachfive.TokenResponse, error) {
	now := time.Now()
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"type":  "access",
		"scope": scope,
		"iat":   now.Unix(),
		"exp":   now.Add(AccessTokenTTL).Unix(),
	})
	accessToken, err := access.SignedString(b.Secret)
	if err != nil {
		return nil, err
	}
	resp := &reachfive.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
	}
	scopes := reachfive.ParseScopeSet(scope)
	if scopes.Contains("offline_access") {
		rt := randomString(24)
		b.refresh[rt] = u.ID
		resp.RefreshToken = rt
	}
	if scopes.Contains("openid") {
		claims := jwt.MapClaims{
			"sub":   u.ID,
			"aud":   b.ClientID,
			"iat":   now.Unix(),
			"exp":   now.Add(AccessTokenTTL).Unix(),
			"email": u.Profile.Email,
		}
		if u.Profile.Name != "" {
			claims["name"] = u.Profile.Name
		}
		if u.Profile.GivenName != "" {
			claims["given_name"] = u.Profile.GivenName
		}
		if u.Profile.PhoneNumber != "" {
			claims["phone_number"] = u.Profile.PhoneNumber
		}
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.Secret)
		if err != nil {
			return nil, err
		}
		resp.IDToken = idToken
	}
	return resp, nil
}

// requireBearer resolves the access token to a user for the authenticated routes
func (b *Backend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_token", "Missing bearer token")
			return
		}
		token, err := jwt.Parse(tokenString, b.Keyfunc())
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid bearer token")
			return
		}
		sub, _ := token.Claims.GetSubject()
		b.mu.Lock()
		_, known := b.users[sub]
		b.mu.Unlock()
		if !known {
			writeError(w, http.StatusUnauthorized, "invalid_token", "Unknown user")
			return
		}
		r.Header.Set(userHeader, sub)
		next.ServeHTTP(w, r)
	})
}

const userHeader = "X-Backendtest-User"

func (b *Backend) currentUserLocked(r *http.Request) *user {
	return b.users[r.Header.Get(userHeader)]
}

func (b *Backend) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("client_id") != b.ClientID {
		writeError(w, http.StatusNotFound, "not_found", "Unknown client")
		return
	}
	writeJSON(w, http.StatusOK, api.ClientConfigResponse{Scope: b.Scope})
}

func (b *Backend) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ProvidersConfigsResult{Items: b.Providers, Status: "success"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, reachfive.APIError{Code: code, Description: description})
}

func randomString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
