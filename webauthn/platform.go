package webauthn

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Launcher starts a platform ceremony and returns without waiting for it. The
// credential JSON comes back later through the client's OnResult, as the Data
// of an Outcome for the same request code.
type Launcher interface {
	LaunchRegistration(ctx context.Context, requestCode int, opts protocol.PublicKeyCredentialCreationOptions) error
	LaunchAuthentication(ctx context.Context, requestCode int, opts protocol.PublicKeyCredentialRequestOptions) error
}

// CredentialManager runs a platform ceremony to completion. A user dismissal
// is reported as reachfive.ErrUserCancelled.
type CredentialManager interface {
	CreateCredential(ctx context.Context, opts protocol.PublicKeyCredentialCreationOptions) (*protocol.CredentialCreationResponse, error)
	GetCredential(ctx context.Context, opts protocol.PublicKeyCredentialRequestOptions) (*protocol.CredentialAssertionResponse, error)
}

// ParseCreationResponse decodes the credential JSON a Launcher delivered for a registration
func ParseCreationResponse(data []byte) (*protocol.CredentialCreationResponse, error) {
	if len(data) == 0 {
		return nil, reachfive.ErrUnexpectedExternalResult
	}
	var resp protocol.CredentialCreationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", reachfive.ErrUnexpectedExternalResult, err)
	}
	if resp.ID == "" || len(resp.AttestationResponse.AttestationObject) == 0 {
		return nil, reachfive.ErrUnexpectedExternalResult
	}
	return &resp, nil
}

// ParseAssertionResponse decodes the credential JSON a Launcher delivered for an authentication
func ParseAssertionResponse(data []byte) (*protocol.CredentialAssertionResponse, error) {
	if len(data) == 0 {
		return nil, reachfive.ErrUnexpectedExternalResult
	}
	var resp protocol.CredentialAssertionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", reachfive.ErrUnexpectedExternalResult, err)
	}
	if resp.ID == "" || len(resp.AssertionResponse.Signature) == 0 {
		return nil, reachfive.ErrUnexpectedExternalResult
	}
	return &resp, nil
}
