package backendtest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// SignInBrowser makes the hosted login page authenticate userID on the next
// /oauth/authorize call that carries no tkn. An empty userID signs out.
func (b *Backend) SignInBrowser(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.browserUser = userID
}

// FollowAuthorize plays the browser: it requests authorizeURL and returns the
// redirect the tenant answers with, without following it.
func (b *Backend) FollowAuthorize(ctx context.Context, authorizeURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authorizeURL, nil)
	if err != nil {
		return "", err
	}
	client := *b.Server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("authorize answered %d without a redirect", resp.StatusCode)
	}
	return location, nil
}

// Exchange is one authorization_code grant the tenant received
type Exchange struct {
	Code         string
	CodeVerifier string
	RedirectURI  string
}

// Exchanges lists the authorization_code grants received so far
func (b *Backend) Exchanges() []Exchange {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Exchange(nil), b.exchanges...)
}

// SeedCode makes code a valid authorization code for userID, bound to the
// given redirect URI and PKCE challenge
func (b *Backend) SeedCode(code, userID, redirectURI, challenge, scope string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[code] = codeGrant{UserID: userID, Challenge: challenge, RedirectURI: redirectURI, Scope: scope}
}

func (b *Backend) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != b.ClientID {
		writeError(w, http.StatusBadRequest, "invalid_client", "Unknown client")
		return
	}
	redirectURI := q.Get("redirect_uri")
	target, err := url.Parse(redirectURI)
	if redirectURI == "" || err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid redirect_uri")
		return
	}
	if m := q.Get("code_challenge_method"); m != "" && m != reachfive.PkceMethod {
		redirectError(w, r, target, q.Get("state"), "invalid_request", "Unsupported code_challenge_method")
		return
	}

	b.mu.Lock()
	userID := b.browserUser
	if tkn := q.Get("tkn"); tkn != "" {
		var ok bool
		userID, ok = b.tkns[tkn]
		delete(b.tkns, tkn)
		if !ok {
			b.mu.Unlock()
			redirectError(w, r, target, q.Get("state"), "invalid_grant", "Invalid tkn")
			return
		}
	}
	if userID == "" {
		b.mu.Unlock()
		redirectError(w, r, target, q.Get("state"), "login_required", "No session")
		return
	}
	code := randomString(16)
	b.codes[code] = codeGrant{
		UserID:      userID,
		Challenge:   q.Get("code_challenge"),
		RedirectURI: redirectURI,
		Scope:       q.Get("scope"),
	}
	b.mu.Unlock()

	rq := target.Query()
	rq.Set("code", code)
	if state := q.Get("state"); state != "" {
		rq.Set("state", state)
	}
	target.RawQuery = rq.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func redirectError(w http.ResponseWriter, r *http.Request, target *url.URL, state, code, description string) {
	q := target.Query()
	q.Set("error", code)
	q.Set("error_description", description)
	if state != "" {
		q.Set("state", state)
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// tokenRequest covers both grants the SDK sends
type tokenRequest struct {
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
	RefreshToken string `json:"refresh_token"`
}

func (b *Backend) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	switch req.GrantType {
	case api.GrantAuthorizationCode:
		b.handleAuthorizationCodeGrant(w, req)
	case api.GrantRefreshToken:
		b.handleRefreshTokenGrant(w, req)
	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "Unsupported grant type")
	}
}

func (b *Backend) handleAuthorizationCodeGrant(w http.ResponseWriter, req tokenRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.exchanges = append(b.exchanges, Exchange{Code: req.Code, CodeVerifier: req.CodeVerifier, RedirectURI: req.RedirectURI})
	grant, ok := b.codes[req.Code]
	delete(b.codes, req.Code)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid authorization code")
		return
	}
	if grant.RedirectURI != req.RedirectURI {
		writeError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
		return
	}
	if grant.Challenge != "" && reachfive.ChallengeFor(req.CodeVerifier) != grant.Challenge {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid code_verifier")
		return
	}
	u, ok := b.users[grant.UserID]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Unknown user")
		return
	}
	resp, err := b.issueTokensLocked(u, grant.Scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleRefreshTokenGrant(w http.ResponseWriter, req tokenRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	userID, ok := b.refresh[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid refresh token")
		return
	}
	u, ok := b.users[userID]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Unknown user")
		return
	}
	resp, err := b.issueTokensLocked(u, b.Scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if b.RotateRefreshTokens {
		delete(b.refresh, req.RefreshToken)
	} else {
		delete(b.refresh, resp.RefreshToken)
		resp.RefreshToken = ""
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req api.RevokeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	b.mu.Lock()
	b.revoked = append(b.revoked, req.Token)
	delete(b.refresh, req.Token)
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if b.FailLogout {
		writeError(w, http.StatusInternalServerError, "server_error", "Session store unavailable")
		return
	}
	b.mu.Lock()
	b.logouts++
	b.browserUser = ""
	b.mu.Unlock()
	if to := r.URL.Query().Get("redirect_to"); to != "" {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
