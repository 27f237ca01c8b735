package webauthn

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// DefaultAuthenticatorSelection is used when the backend sends creation
// options without authenticator selection criteria
func DefaultAuthenticatorSelection() protocol.AuthenticatorSelection {
	return protocol.AuthenticatorSelection{
		AuthenticatorAttachment: protocol.Platform,
		RequireResidentKey:      protocol.ResidentKeyNotRequired(),
		ResidentKey:             protocol.ResidentKeyRequirementRequired,
		UserVerification:        protocol.VerificationPreferred,
	}
}

// CreationOptions translates backend registration options into the options
// handed to the platform authenticator. The wire model is left untouched.
func CreationOptions(wire *api.RegistrationOptions) (protocol.PublicKeyCredentialCreationOptions, error) {
	pk := wire.Options.PublicKey
	var out protocol.PublicKeyCredentialCreationOptions

	challenge, err := decode("challenge", pk.Challenge)
	if err != nil {
		return out, err
	}
	userID, err := decode("user.id", pk.User.ID)
	if err != nil {
		return out, err
	}
	excludes, err := descriptors("exclude_credentials", pk.ExcludeCredentials)
	if err != nil {
		return out, err
	}

	out = protocol.PublicKeyCredentialCreationOptions{
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: pk.RP.Name},
			ID:               pk.RP.ID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: pk.User.Name},
			DisplayName:      pk.User.DisplayName,
			ID:               protocol.URLEncodedBase64(userID),
		},
		Challenge:             challenge,
		CredentialExcludeList: excludes,
		Attestation:           protocol.ConveyancePreference(pk.Attestation),
	}
	if pk.Timeout != nil {
		out.Timeout = *pk.Timeout
	}
	for _, p := range pk.PubKeyCredParams {
		out.Parameters = append(out.Parameters, protocol.CredentialParameter{
			Type:      protocol.CredentialType(p.Type),
			Algorithm: webauthncose.COSEAlgorithmIdentifier(p.Alg),
		})
	}

	if sel := pk.AuthenticatorSelection; sel != nil {
		out.AuthenticatorSelection = protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.AuthenticatorAttachment(sel.AuthenticatorAttachment),
			ResidentKey:             protocol.ResidentKeyRequirement(sel.ResidentKey),
			UserVerification:        protocol.UserVerificationRequirement(sel.UserVerification),
		}
		if sel.RequireResidentKey != nil {
			v := *sel.RequireResidentKey
			out.AuthenticatorSelection.RequireResidentKey = &v
		}
	} else {
		out.AuthenticatorSelection = DefaultAuthenticatorSelection()
	}
	return out, nil
}

// RequestOptions translates backend authentication options into the options
// handed to the platform authenticator
func RequestOptions(wire *api.AuthenticationOptions) (protocol.PublicKeyCredentialRequestOptions, error) {
	pk := wire.PublicKey
	var out protocol.PublicKeyCredentialRequestOptions

	challenge, err := decode("challenge", pk.Challenge)
	if err != nil {
		return out, err
	}
	allowed, err := descriptors("allow_credentials", pk.AllowCredentials)
	if err != nil {
		return out, err
	}
	out = protocol.PublicKeyCredentialRequestOptions{
		Challenge:          challenge,
		RelyingPartyID:     pk.RPID,
		AllowedCredentials: allowed,
		UserVerification:   protocol.UserVerificationRequirement(pk.UserVerification),
	}
	if pk.Timeout != nil {
		out.Timeout = *pk.Timeout
	}
	return out, nil
}

func descriptors(field string, in []api.CredentialDescriptor) ([]protocol.CredentialDescriptor, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]protocol.CredentialDescriptor, 0, len(in))
	for i, d := range in {
		id, err := decode(fmt.Sprintf("%s[%d].id", field, i), d.ID)
		if err != nil {
			return nil, err
		}
		desc := protocol.CredentialDescriptor{
			Type:         protocol.CredentialType(d.Type),
			CredentialID: id,
		}
		for _, t := range d.Transports {
			desc.Transport = append(desc.Transport, protocol.AuthenticatorTransport(t))
		}
		out = append(out, desc)
	}
	return out, nil
}

// decode accepts base64url with or without padding
func decode(field, value string) (protocol.URLEncodedBase64, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, fmt.Errorf("webauthn: invalid base64url in %s: %w", field, err)
	}
	return b, nil
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// RegistrationCredential re-encodes a platform registration response for the backend
func RegistrationCredential(resp *protocol.CredentialCreationResponse) api.RegistrationPublicKeyCredential {
	return api.RegistrationPublicKeyCredential{
		ID:    resp.ID,
		RawID: encode(resp.RawID),
		Type:  resp.Type,
		Response: api.AttestationResponse{
			AttestationObject: encode(resp.AttestationResponse.AttestationObject),
			ClientDataJSON:    encode(resp.AttestationResponse.ClientDataJSON),
		},
	}
}

// AuthenticationCredential re-encodes a platform assertion for the backend
func AuthenticationCredential(resp *protocol.CredentialAssertionResponse) api.AuthenticationPublicKeyCredential {
	return api.AuthenticationPublicKeyCredential{
		ID:    resp.ID,
		RawID: encode(resp.RawID),
		Type:  resp.Type,
		Response: api.AssertionResponse{
			AuthenticatorData: encode(resp.AssertionResponse.AuthenticatorData),
			ClientDataJSON:    encode(resp.AssertionResponse.ClientDataJSON),
			Signature:         encode(resp.AssertionResponse.Signature),
			UserHandle:        encode(resp.AssertionResponse.UserHandle),
		},
	}
}
