package providers

import (
	"context"
	"encoding/json"
	"fmt"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// ProviderCredential is what a social identity provider hands back.
// At least one of AccessToken, Code or IDToken is set.
type ProviderCredential struct {
	AccessToken string `json:"access_token,omitempty"`
	Code        string `json:"code,omitempty"`
	IDToken     string `json:"id_token,omitempty"`
	Nonce       string `json:"nonce,omitempty"`
}

// IsEmpty reports whether c carries nothing to exchange
func (c ProviderCredential) IsEmpty() bool {
	return c.AccessToken == "" && c.Code == "" && c.IDToken == ""
}

// ParseProviderCredential decodes the payload of a native provider outcome
func ParseProviderCredential(data []byte) (ProviderCredential, error) {
	var c ProviderCredential
	if len(data) == 0 {
		return c, reachfive.ErrUnexpectedExternalResult
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%w: %v", reachfive.ErrUnexpectedExternalResult, err)
	}
	if c.IsEmpty() {
		return c, reachfive.ErrUnexpectedExternalResult
	}
	return c, nil
}

// Social is the part every federated provider shares: the provider
// credential is normalized into an AuthToken by the tenant.
type Social struct {
	name   string
	code   int
	config reachfive.ProviderConfig
	env    *Env
}

// NewSocial creates the shared social base for the provider named in cfg
func NewSocial(cfg reachfive.ProviderConfig, requestCode int, env *Env) *Social {
	return &Social{name: cfg.Provider, code: requestCode, config: cfg, env: env}
}

func (s *Social) Name() string { return s.name }

func (s *Social) RequestCode() int { return s.code }

// Config is the backend configuration of the provider
func (s *Social) Config() reachfive.ProviderConfig { return s.config }

// Exchange trades a provider credential for an AuthToken
func (s *Social) Exchange(ctx context.Context, cred ProviderCredential, scope reachfive.ScopeSet, origin string) (*reachfive.AuthToken, error) {
	if cred.IsEmpty() {
		return nil, reachfive.ErrUnexpectedExternalResult
	}
	resp, err := s.env.API.LoginWithProvider(ctx, api.LoginProviderRequest{
		Provider:      s.name,
		ProviderToken: cred.AccessToken,
		Code:          cred.Code,
		IDToken:       cred.IDToken,
		Nonce:         cred.Nonce,
		Origin:        s.env.origin(origin),
		Scope:         scope.String(),
	})
	if err != nil {
		return nil, err
	}
	return s.env.Normalize(resp)
}

// NewFlow creates the pending flow of a login started by this provider
func (s *Social) NewFlow(req reachfive.LoginRequest) *reachfive.PendingFlow {
	flow := reachfive.NewPendingFlow(reachfive.FlowSocialProvider, s.code, req.Scope)
	flow.Provider = s.name
	flow.Origin = req.Origin
	flow.State = req.State
	flow.Nonce = req.Nonce
	return flow
}
