package client

import (
	"context"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

func authHeader(tok *reachfive.AuthToken) (string, error) {
	if tok == nil || tok.AccessToken == "" {
		return "", reachfive.ErrNoAccessToken
	}
	return tok.AuthHeader(), nil
}

// GetProfile reads the profile of the token owner. Without fields the tenant
// picks the default set.
func (c *Client) GetProfile(ctx context.Context, tok *reachfive.AuthToken, fields ...string) (*reachfive.Profile, error) {
	auth, err := authHeader(tok)
	if err != nil {
		return nil, err
	}
	return c.api.GetProfile(ctx, auth, fields)
}

// UpdateProfile writes the non empty fields of profile
func (c *Client) UpdateProfile(ctx context.Context, tok *reachfive.AuthToken, profile *reachfive.Profile) (*reachfive.Profile, error) {
	auth, err := authHeader(tok)
	if err != nil {
		return nil, err
	}
	return c.api.UpdateProfile(ctx, auth, profile)
}

// UpdateEmail starts an email change. The tenant sends a verification link to redirectURL.
func (c *Client) UpdateEmail(ctx context.Context, tok *reachfive.AuthToken, email, redirectURL string) (*reachfive.Profile, error) {
	auth, err := authHeader(tok)
	if err != nil {
		return nil, err
	}
	if !reachfive.IsValidEmail(email) {
		return nil, &reachfive.ValidationError{Field: "email", Message: "is invalid"}
	}
	return c.api.UpdateEmail(ctx, auth, api.UpdateEmailRequest{Email: email, RedirectURL: redirectURL})
}

// UpdatePhoneNumber starts a phone number change
func (c *Client) UpdatePhoneNumber(ctx context.Context, tok *reachfive.AuthToken, phoneNumber string) (*reachfive.Profile, error) {
	auth, err := authHeader(tok)
	if err != nil {
		return nil, err
	}
	return c.api.UpdatePhoneNumber(ctx, auth, api.UpdatePhoneNumberRequest{PhoneNumber: phoneNumber})
}

// VerifyPhoneNumber confirms a phone number with the code sent by SMS
func (c *Client) VerifyPhoneNumber(ctx context.Context, tok *reachfive.AuthToken, phoneNumber, code string) error {
	auth, err := authHeader(tok)
	if err != nil {
		return err
	}
	return c.api.VerifyPhoneNumber(ctx, auth, api.VerifyPhoneNumberRequest{PhoneNumber: phoneNumber, VerificationCode: code})
}

// UpdatePasswordRequest selects a password update variant:
//
//   - FreshAccessToken: Token is set and recent enough, only Password is needed
//   - AccessToken: Token and OldPassword are set
//   - verification code: Token is nil, Email or PhoneNumber and VerificationCode are set
type UpdatePasswordRequest struct {
	Token            *reachfive.AuthToken
	Password         string
	OldPassword      string
	Email            string
	PhoneNumber      string
	VerificationCode string
}

// UpdatePassword changes the password
func (c *Client) UpdatePassword(ctx context.Context, req UpdatePasswordRequest) error {
	if req.Password == "" {
		return &reachfive.ValidationError{Field: "password", Message: "is required"}
	}
	var auth string
	if req.Token != nil {
		a, err := authHeader(req.Token)
		if err != nil {
			return err
		}
		auth = a
	} else {
		id := reachfive.Identifier{Email: req.Email, PhoneNumber: req.PhoneNumber}
		if err := id.Validate(); err != nil {
			return err
		}
		if req.VerificationCode == "" {
			return &reachfive.ValidationError{Field: "verification_code", Message: "is required"}
		}
	}
	return c.api.UpdatePassword(ctx, auth, api.UpdatePasswordRequest{
		Password:         req.Password,
		OldPassword:      req.OldPassword,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		VerificationCode: req.VerificationCode,
	})
}

// RequestPasswordReset sends a reset link (email) or code (phone number)
func (c *Client) RequestPasswordReset(ctx context.Context, id reachfive.Identifier, redirectURL string) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return c.api.RequestPasswordReset(ctx, api.RequestPasswordResetRequest{
		Email:       id.Email,
		PhoneNumber: id.PhoneNumber,
		RedirectURL: redirectURL,
	})
}

// RequestAccountRecovery sends an account recovery link
func (c *Client) RequestAccountRecovery(ctx context.Context, id reachfive.Identifier, redirectURL string) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return c.api.RequestAccountRecovery(ctx, api.AccountRecoveryRequest{
		Email:       id.Email,
		PhoneNumber: id.PhoneNumber,
		RedirectURL: redirectURL,
	})
}

// PasswordlessStart asks for a magic link or an SMS code
type PasswordlessStart = providers.PasswordlessStart

// StartPasswordless sends a magic link (email) or SMS code (phone number).
// The verifier is kept in the store until VerifyPasswordless or the callback.
func (c *Client) StartPasswordless(ctx context.Context, req PasswordlessStart) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	return c.suspended(ctx, ModalityPasswordless, 0, s.passwordless.Start(ctx, req))
}

// VerifyPasswordless completes an SMS login
func (c *Client) VerifyPasswordless(ctx context.Context, phoneNumber, code string) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityPasswordless})
	tok, err := s.passwordless.Verify(ctx, phoneNumber, code)
	return finish(ctx, c, ModalityPasswordless, 0, tok, err)
}

// VerifyPasswordlessCallback completes a magic link login from the URL the link opened
func (c *Client) VerifyPasswordlessCallback(ctx context.Context, redirectURL string) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityPasswordless})
	tok, err := s.passwordless.VerifyCallback(ctx, redirectURL)
	return finish(ctx, c, ModalityPasswordless, 0, tok, err)
}
