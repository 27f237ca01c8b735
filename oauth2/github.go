package oauth2

import (
	"golang.org/x/oauth2/github"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

// RequestCodeGitHub is the request code of the GitHub provider
const RequestCodeGitHub = 14301

var githubScopes = []string{"read:user", "user:email"}

// NewGitHub creates the GitHub provider
func NewGitHub(cfg reachfive.ProviderConfig, env *providers.Env, opts ...Option) *Provider {
	if len(cfg.Scope) == 0 {
		cfg.Scope = githubScopes
	}
	return New(cfg, RequestCodeGitHub, github.Endpoint, env, opts...)
}

// GitHubCreator registers NewGitHub under "github"
func GitHubCreator(opts ...Option) providers.Creator {
	return providers.NewCreator("github", func(cfg reachfive.ProviderConfig, env *providers.Env) (reachfive.Provider, error) {
		return NewGitHub(cfg, env, opts...), nil
	})
}
