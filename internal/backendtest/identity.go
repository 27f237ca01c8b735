package backendtest

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"

	"golang.org/x/crypto/bcrypt"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	if req.Data == nil || req.Data.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Missing profile or password")
		return
	}
	id := reachfive.Identifier{Email: req.Data.Email, PhoneNumber: req.Data.PhoneNumber, CustomIdentifier: req.Data.CustomIdentifier}

	b.mu.Lock()
	if existing := b.findLocked(id); existing != nil {
		b.mu.Unlock()
		code := "email_already_exists"
		if id.Email == "" {
			code = "phone_number_already_exists"
		}
		writeError(w, http.StatusConflict, code, "An account already exists with this identifier")
		return
	}
	b.mu.Unlock()

	userID := b.AddProfile(reachfive.Profile{
		Email:            req.Data.Email,
		PhoneNumber:      req.Data.PhoneNumber,
		CustomIdentifier: req.Data.CustomIdentifier,
		GivenName:        req.Data.GivenName,
		FamilyName:       req.Data.FamilyName,
		Name:             req.Data.Name,
		Nickname:         req.Data.Nickname,
		Locale:           req.Data.Locale,
		CustomFields:     req.Data.CustomFields,
		Consents:         req.Data.Consents,
	}, req.Data.Password)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.VerificationRequired {
		writeJSON(w, http.StatusOK, reachfive.TokenResponse{})
		return
	}
	resp, err := b.issueTokensLocked(b.users[userID], req.Scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.findLocked(reachfive.Identifier{Email: req.Email, PhoneNumber: req.PhoneNumber, CustomIdentifier: req.CustomIdentifier})
	if u == nil || u.PasswordHash == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, api.AuthenticationToken{Tkn: b.issueTknLocked(u.ID), MfaRequired: b.MfaRequired})
}

// AddProviderUser binds a provider access token to userID. Unknown provider
// tokens are rejected.
func (b *Backend) AddProviderUser(provider, providerToken, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providerUsers[provider+":"+providerToken] = userID
}

func (b *Backend) handleProviderToken(w http.ResponseWriter, r *http.Request) {
	var req api.LoginProviderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	credential := req.ProviderToken
	if credential == "" {
		credential = req.Code
	}
	if credential == "" {
		credential = req.IDToken
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.providerUsers[req.Provider+":"+credential]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid provider credential")
		return
	}
	resp, err := b.issueTokensLocked(b.users[userID], req.Scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handlePasswordlessStart(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordlessStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	if req.CodeChallengeMethod != reachfive.PkceMethod || req.CodeChallenge == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "PKCE challenge required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.findLocked(reachfive.Identifier{Email: req.Email, PhoneNumber: req.PhoneNumber})
	if u == nil {
		writeError(w, http.StatusNotFound, "not_found", "User not found")
		return
	}
	grant := codeGrant{UserID: u.ID, Challenge: req.CodeChallenge, RedirectURI: req.RedirectURI, Scope: b.Scope}

	switch req.AuthType {
	case api.PasswordlessMagicLink:
		code := randomString(16)
		b.codes[code] = grant
		link, err := url.Parse(req.RedirectURI)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid redirect_uri")
			return
		}
		q := link.Query()
		q.Set("code", code)
		link.RawQuery = q.Encode()
		b.magicLinks[req.Email] = link.String()
	case api.PasswordlessSMS:
		sms := fmt.Sprintf("%06d", rand.IntN(1000000))
		b.smsCodes[req.PhoneNumber] = sms
		b.passwordless[req.PhoneNumber+":"+sms] = grant
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "Unknown auth_type")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handlePasswordlessVerify(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordlessVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := req.PhoneNumber + ":" + req.VerificationCode
	grant, ok := b.passwordless[key]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid verification code")
		return
	}
	delete(b.passwordless, key)
	code := randomString(16)
	b.codes[code] = grant
	writeJSON(w, http.StatusOK, api.PasswordlessVerificationResponse{AuthCode: code})
}

func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req api.RequestPasswordResetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	if req.Email == "" && req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Email or phone number required")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.currentUserLocked(r).Profile)
}

func (b *Backend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch reachfive.Profile
	if !decodeBody(w, r, &patch) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	p := &u.Profile
	for dst, src := range map[*string]string{
		&p.GivenName:  patch.GivenName,
		&p.FamilyName: patch.FamilyName,
		&p.MiddleName: patch.MiddleName,
		&p.Name:       patch.Name,
		&p.Nickname:   patch.Nickname,
		&p.Birthdate:  patch.Birthdate,
		&p.Gender:     patch.Gender,
		&p.Locale:     patch.Locale,
		&p.Company:    patch.Company,
		&p.Bio:        patch.Bio,
	} {
		if src != "" {
			*dst = src
		}
	}
	if patch.Addresses != nil {
		p.Addresses = patch.Addresses
	}
	if patch.CustomFields != nil {
		p.CustomFields = patch.CustomFields
	}
	writeJSON(w, http.StatusOK, u.Profile)
}

func (b *Backend) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !reachfive.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid email")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	u.Profile.Email = req.Email
	verified := false
	u.Profile.EmailVerified = &verified
	writeJSON(w, http.StatusOK, u.Profile)
}

func (b *Backend) handleUpdatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	var req api.UpdatePhoneNumberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	u.Profile.PhoneNumber = req.PhoneNumber
	verified := false
	u.Profile.PhoneNumberVerified = &verified
	b.smsCodes[req.PhoneNumber] = fmt.Sprintf("%06d", rand.IntN(1000000))
	writeJSON(w, http.StatusOK, u.Profile)
}

func (b *Backend) handleVerifyPhoneNumber(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyPhoneNumberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	if u.Profile.PhoneNumber != req.PhoneNumber || b.smsCodes[req.PhoneNumber] != req.VerificationCode {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid verification code")
		return
	}
	verified := true
	u.Profile.PhoneNumberVerified = &verified
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req api.UpdatePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Password required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	if req.OldPassword != "" && bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.OldPassword)) != nil {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid old password")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	u.PasswordHash = hash
	w.WriteHeader(http.StatusNoContent)
}
