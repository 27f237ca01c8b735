package backendtest

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// RelyingPartyID is the relying party of every ceremony the fake serves
const RelyingPartyID = "backendtest.reach5.net"

// Authenticator selection the fake sends unless OmitAuthenticatorSelection is set
var servedSelection = map[string]any{
	"authenticator_attachment": "cross-platform",
	"require_resident_key":     true,
	"resident_key":             "preferred",
	"user_verification":        "required",
}

func challenge() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// creationOptionsLocked renders PublicKeyCredentialCreationOptions in the
// spelling selected by CamelCaseOptions
func (b *Backend) creationOptionsLocked(friendlyName, webauthnID, name string, exclude []device) map[string]any {
	excludes := make([]map[string]any, 0, len(exclude))
	for _, d := range exclude {
		excludes = append(excludes, map[string]any{"type": "public-key", "id": d.ID})
	}
	key := func(snake, camel string) string {
		if b.CamelCaseOptions {
			return camel
		}
		return snake
	}
	publicKey := map[string]any{
		"rp":        map[string]any{"id": RelyingPartyID, "name": "backendtest"},
		"user":      map[string]any{"id": webauthnID, "name": name, "display_name": name},
		"challenge": challenge(),
		"timeout":   60000,
		key("pub_key_cred_params", "pubKeyCredParams"): []map[string]any{
			{"alg": -7, "type": "public-key"},
			{"alg": -257, "type": "public-key"},
		},
		key("exclude_credentials", "excludeCredentials"): excludes,
		"attestation": "none",
	}
	if !b.OmitAuthenticatorSelection {
		selection := servedSelection
		if b.CamelCaseOptions {
			selection = map[string]any{
				"authenticatorAttachment": servedSelection["authenticator_attachment"],
				"requireResidentKey":      servedSelection["require_resident_key"],
				"residentKey":             servedSelection["resident_key"],
				"userVerification":        servedSelection["user_verification"],
			}
		}
		publicKey[key("authenticator_selection", "authenticatorSelection")] = selection
	}
	return map[string]any{
		"friendly_name": friendlyName,
		"options":       map[string]any{"public_key": publicKey},
	}
}

func (b *Backend) handleSignupOptions(w http.ResponseWriter, r *http.Request) {
	var req api.WebAuthnRegistrationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	if req.Profile == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Missing profile")
		return
	}
	id := reachfive.Identifier{Email: req.Profile.Email, PhoneNumber: req.Profile.PhoneNumber}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findLocked(id) != nil {
		writeError(w, http.StatusConflict, "email_already_exists", "An account already exists with this identifier")
		return
	}
	webauthnID := base64.RawURLEncoding.EncodeToString([]byte(randomString(8)))
	b.signups[webauthnID] = pendingSignup{Profile: *req.Profile}
	name := req.Profile.Email
	if name == "" {
		name = req.Profile.PhoneNumber
	}
	writeJSON(w, http.StatusOK, b.creationOptionsLocked(req.FriendlyName, webauthnID, name, nil))
}

func (b *Backend) handleWebAuthnSignup(w http.ResponseWriter, r *http.Request) {
	var req api.WebauthnSignupCredential
	if !decodeBody(w, r, &req) {
		return
	}
	cred := req.PublicKeyCredential
	if cred.ID == "" || cred.Response.ClientDataJSON == "" || cred.Response.AttestationObject == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Incomplete credential")
		return
	}

	b.mu.Lock()
	pending, ok := b.signups[req.WebauthnID]
	delete(b.signups, req.WebauthnID)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Unknown webauthn_id")
		return
	}

	p := pending.Profile
	userID := b.AddProfile(reachfive.Profile{
		Email:        p.Email,
		PhoneNumber:  p.PhoneNumber,
		GivenName:    p.GivenName,
		FamilyName:   p.FamilyName,
		Name:         p.Name,
		Locale:       p.Locale,
		CustomFields: p.CustomFields,
		Consents:     p.Consents,
	}, "")

	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[userID]
	u.WebAuthnID = req.WebauthnID
	u.Devices = append(u.Devices, newDevice(cred.ID, "signup"))
	writeJSON(w, http.StatusOK, api.AuthenticationToken{Tkn: b.issueTknLocked(userID)})
}

func newDevice(id, friendlyName string) device {
	return device{api.DeviceCredential{
		ID:           id,
		FriendlyName: friendlyName,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}}
}

func (b *Backend) handleRegistrationOptions(w http.ResponseWriter, r *http.Request) {
	var req api.WebAuthnRegistrationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	if u.WebAuthnID == "" {
		u.WebAuthnID = base64.RawURLEncoding.EncodeToString([]byte(u.ID))
	}
	b.pendingFriendly = req.FriendlyName
	writeJSON(w, http.StatusOK, b.creationOptionsLocked(req.FriendlyName, u.WebAuthnID, u.Profile.Email, u.Devices))
}

func (b *Backend) handleRegistration(w http.ResponseWriter, r *http.Request) {
	var cred api.RegistrationPublicKeyCredential
	if !decodeBody(w, r, &cred) {
		return
	}
	if cred.ID == "" || cred.Response.ClientDataJSON == "" || cred.Response.AttestationObject == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Incomplete credential")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	for _, d := range u.Devices {
		if d.ID == cred.ID {
			writeError(w, http.StatusConflict, "credential_already_registered", "Credential already registered")
			return
		}
	}
	u.Devices = append(u.Devices, newDevice(cred.ID, b.pendingFriendly))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleListDevices(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	out := make([]api.DeviceCredential, 0, len(u.Devices))
	for _, d := range u.Devices {
		out = append(out, d.DeviceCredential)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.currentUserLocked(r)
	for i, d := range u.Devices {
		if d.ID == id {
			u.Devices = append(u.Devices[:i], u.Devices[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "Device not found")
}

func (b *Backend) handleAuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	var req api.WebAuthnLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID != b.ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "Unknown client")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	allow := []api.CredentialDescriptor{}
	if req.Email != "" || req.PhoneNumber != "" {
		u := b.findLocked(reachfive.Identifier{Email: req.Email, PhoneNumber: req.PhoneNumber})
		if u == nil {
			writeError(w, http.StatusNotFound, "not_found", "User not found")
			return
		}
		for _, d := range u.Devices {
			allow = append(allow, api.CredentialDescriptor{Type: "public-key", ID: d.ID})
		}
	}
	timeout := 60000
	writeJSON(w, http.StatusOK, api.AuthenticationOptions{PublicKey: api.PublicKeyRequestOptions{
		Challenge:        challenge(),
		Timeout:          &timeout,
		RPID:             RelyingPartyID,
		AllowCredentials: allow,
		UserVerification: "preferred",
	}})
}

func (b *Backend) handleAuthentication(w http.ResponseWriter, r *http.Request) {
	var cred api.AuthenticationPublicKeyCredential
	if !decodeBody(w, r, &cred) {
		return
	}
	if cred.Response.Signature == "" || cred.Response.AuthenticatorData == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Incomplete assertion")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		for i, d := range u.Devices {
			if d.ID == cred.ID {
				u.Devices[i].LastUsedAt = time.Now().UTC().Format(time.RFC3339)
				writeJSON(w, http.StatusOK, api.AuthenticationToken{Tkn: b.issueTknLocked(u.ID)})
				return
			}
		}
	}
	writeError(w, http.StatusBadRequest, "invalid_grant", "Unknown credential")
}
