package oauth2

import (
	"golang.org/x/oauth2/google"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

// RequestCodeGoogle is the request code of the Google provider
const RequestCodeGoogle = 14267

var googleScopes = []string{"openid", "email", "profile"}

// NewGoogle creates the Google provider. Google returns an id_token, which is
// forwarded to the tenant along with the access token.
func NewGoogle(cfg reachfive.ProviderConfig, env *providers.Env, opts ...Option) *Provider {
	if len(cfg.Scope) == 0 {
		cfg.Scope = googleScopes
	}
	return New(cfg, RequestCodeGoogle, google.Endpoint, env, opts...)
}

// GoogleCreator registers NewGoogle under "google"
func GoogleCreator(opts ...Option) providers.Creator {
	return providers.NewCreator("google", func(cfg reachfive.ProviderConfig, env *providers.Env) (reachfive.Provider, error) {
		return NewGoogle(cfg, env, opts...), nil
	})
}
