package providers

import (
	"context"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// PasswordlessFlowKey is where the passwordless verifier waits for the code
var PasswordlessFlowKey = reachfive.FlowPasswordless.String()

// PasswordlessStart asks for a magic link (email) or an SMS code (phone number)
type PasswordlessStart struct {
	Email       string
	PhoneNumber string
	// RedirectURI overrides Env.RedirectURI for the magic link
	RedirectURI string
	Origin      string
}

// Passwordless runs magic link and SMS code logins
type Passwordless struct {
	env *Env
}

// NewPasswordless creates the passwordless modality
func NewPasswordless(env *Env) *Passwordless {
	return &Passwordless{env: env}
}

// Start persists a fresh verifier and asks the backend to send the link or code
func (p *Passwordless) Start(ctx context.Context, req PasswordlessStart) error {
	id := reachfive.Identifier{Email: req.Email, PhoneNumber: req.PhoneNumber}
	if err := id.Validate(); err != nil {
		return err
	}
	authType := api.PasswordlessMagicLink
	if id.Kind() == reachfive.IdentifierPhone {
		authType = api.PasswordlessSMS
	}
	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = p.env.RedirectURI
	}

	pkce, err := p.env.Flows.Pkce.Start(ctx, PasswordlessFlowKey, redirectURI)
	if err != nil {
		return err
	}
	err = p.env.API.PasswordlessStart(ctx, api.PasswordlessStartRequest{
		Email:               req.Email,
		PhoneNumber:         req.PhoneNumber,
		AuthType:            authType,
		CodeChallenge:       pkce.CodeChallenge(),
		CodeChallengeMethod: pkce.Method(),
		RedirectURI:         redirectURI,
		Origin:              p.env.origin(req.Origin),
	})
	if err != nil {
		p.discard(ctx)
		return err
	}
	return nil
}

// Verify trades the SMS code for an authorization code and exchanges it.
// A rejected SMS code keeps the verifier so the user can try again.
func (p *Passwordless) Verify(ctx context.Context, phoneNumber, verificationCode string) (*reachfive.AuthToken, error) {
	if verificationCode == "" {
		return nil, &reachfive.ValidationError{Field: "verification_code", Message: "is required"}
	}
	resp, err := p.env.API.PasswordlessVerify(ctx, api.PasswordlessVerificationRequest{
		PhoneNumber:      phoneNumber,
		VerificationCode: verificationCode,
	})
	if err != nil {
		return nil, err
	}
	if resp.AuthCode == "" {
		return nil, reachfive.ErrNoAuthCode
	}
	return p.exchange(ctx, resp.AuthCode)
}

// VerifyCallback completes a magic link login from the URL it opened
func (p *Passwordless) VerifyCallback(ctx context.Context, redirectURL string) (*reachfive.AuthToken, error) {
	q, err := reachfive.Outcome{RedirectURL: redirectURL}.Query()
	if err != nil {
		return nil, err
	}
	code, err := reachfive.AuthorizationCode(q)
	if err != nil {
		p.discard(ctx)
		return nil, err
	}
	return p.exchange(ctx, code)
}

func (p *Passwordless) exchange(ctx context.Context, code string) (*reachfive.AuthToken, error) {
	pkce, err := p.env.Flows.Pkce.Consume(ctx, PasswordlessFlowKey)
	if err != nil {
		return nil, err
	}
	return p.env.ExchangeCode(ctx, code, pkce)
}

func (p *Passwordless) discard(ctx context.Context) {
	if err := p.env.Flows.Pkce.Discard(ctx, PasswordlessFlowKey); err != nil {
		p.env.logger().WarnContext(ctx, "failed to discard passwordless pkce", "error", err)
	}
}
