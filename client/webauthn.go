package client

import (
	"context"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
	"github.com/ReachFive/identity-android-sdk-sub000/webauthn"
)

// SignupWithWebAuthn starts a signup through the Launcher. The credential
// arrives through OnResult under reachfive.RequestCodeWebAuthnSignup.
func (c *Client) SignupWithWebAuthn(ctx context.Context, req webauthn.SignupRequest) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	req.Scope = s.scope(req.Scope)
	return c.suspended(ctx, ModalityWebAuthn, reachfive.RequestCodeWebAuthnSignup, s.webauthn.SignupWithWebAuthn(ctx, req))
}

// AddNewWebAuthnDevice starts registering a device through the Launcher. The
// credential arrives through OnResult under reachfive.RequestCodeWebAuthnRegisterDevice.
func (c *Client) AddNewWebAuthnDevice(ctx context.Context, req webauthn.DeviceRequest) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	return c.suspended(ctx, ModalityWebAuthn, reachfive.RequestCodeWebAuthnRegisterDevice, s.webauthn.AddNewWebAuthnDevice(ctx, req))
}

// LoginWithWebAuthn starts a login through the Launcher. The assertion
// arrives through OnResult under reachfive.RequestCodeWebAuthnLogin.
func (c *Client) LoginWithWebAuthn(ctx context.Context, req webauthn.LoginRequest) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	req.Scope = s.scope(req.Scope)
	return c.suspended(ctx, ModalityWebAuthn, reachfive.RequestCodeWebAuthnLogin, s.webauthn.LoginWithWebAuthn(ctx, req))
}

// SignupWithPasskey creates an account with a passkey through the CredentialManager
func (c *Client) SignupWithPasskey(ctx context.Context, req webauthn.SignupRequest) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	req.Scope = s.scope(req.Scope)
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityWebAuthn})
	tok, err := s.webauthn.SignupWithPasskey(ctx, req)
	return finish(ctx, c, ModalityWebAuthn, 0, tok, err)
}

// RegisterNewPasskey adds a passkey to the token owner
func (c *Client) RegisterNewPasskey(ctx context.Context, req webauthn.DeviceRequest) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityWebAuthn})
	_, err = finish(ctx, c, ModalityWebAuthn, 0, struct{}{}, s.webauthn.RegisterNewPasskey(ctx, req))
	return err
}

// LoginWithPasskey logs in with a passkey. Leave Email and PhoneNumber empty
// for a discoverable login.
func (c *Client) LoginWithPasskey(ctx context.Context, req webauthn.LoginRequest) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	req.Scope = s.scope(req.Scope)
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityWebAuthn})
	tok, err := s.webauthn.LoginWithPasskey(ctx, req)
	return finish(ctx, c, ModalityWebAuthn, 0, tok, err)
}

// ListWebAuthnDevices lists the credentials of the token owner
func (c *Client) ListWebAuthnDevices(ctx context.Context, tok *reachfive.AuthToken) ([]api.DeviceCredential, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return s.webauthn.ListWebAuthnDevices(ctx, tok)
}

// RemoveWebAuthnDevice deletes a credential of the token owner
func (c *Client) RemoveWebAuthnDevice(ctx context.Context, tok *reachfive.AuthToken, id string) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	return s.webauthn.RemoveWebAuthnDevice(ctx, tok, id)
}
