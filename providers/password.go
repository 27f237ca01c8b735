package providers

import (
	"context"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// PasswordLogin is a login with one identifier and a password
type PasswordLogin struct {
	Identifier reachfive.Identifier
	Password   string
	Scope      reachfive.ScopeSet
	Origin     string
}

// Signup is a password signup
type Signup struct {
	Profile     *reachfive.ProfileSignupRequest
	Scope       reachfive.ScopeSet
	RedirectURL string
	Origin      string
}

// Password logs users in and signs them up with a password
type Password struct {
	env      *Env
	validate reachfive.ProfileValidator
}

// NewPassword creates the password modality. A nil validator means
// reachfive.DefaultProfileValidator.
func NewPassword(env *Env, validate reachfive.ProfileValidator) *Password {
	if validate == nil {
		validate = reachfive.DefaultProfileValidator
	}
	return &Password{env: env, validate: validate}
}

// Login checks the credentials, then runs the tkn login callback.
// Accounts that need a second factor fail with reachfive.ErrMfaRequired.
func (p *Password) Login(ctx context.Context, req PasswordLogin) (*reachfive.AuthToken, error) {
	if err := req.Identifier.Validate(); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, &reachfive.ValidationError{Field: "password", Message: "is required"}
	}

	tkn, err := p.env.API.LoginWithPassword(ctx, api.LoginRequest{
		Email:            req.Identifier.Email,
		PhoneNumber:      req.Identifier.PhoneNumber,
		CustomIdentifier: req.Identifier.CustomIdentifier,
		Password:         req.Password,
		Scope:            req.Scope.String(),
		Origin:           p.env.origin(req.Origin),
	})
	if err != nil {
		return nil, err
	}
	if tkn.MfaRequired {
		p.env.logger().WarnContext(ctx, "password login requires a second factor")
		return nil, reachfive.ErrMfaRequired
	}
	return p.env.LoginCallback(ctx, tkn.Tkn, req.Scope, req.Origin)
}

// Signup creates the account. A nil token with a nil error means the backend
// is waiting for the identifier to be verified before it issues tokens.
func (p *Password) Signup(ctx context.Context, req Signup) (*reachfive.AuthToken, error) {
	if err := p.validate(req.Profile); err != nil {
		return nil, err
	}
	resp, err := p.env.API.Signup(ctx, api.SignupRequest{
		Data:        req.Profile,
		Scope:       req.Scope.String(),
		RedirectURL: req.RedirectURL,
		Origin:      p.env.origin(req.Origin),
	})
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	return p.env.Normalize(resp)
}
