// Package client is the authentication orchestrator of the SDK. A Client
// owns the provider snapshot built from the tenant configuration, starts
// every login modality and routes asynchronous results back to the flow that
// is waiting for them.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
	"github.com/ReachFive/identity-android-sdk-sub000/webauthn"
)

// Client is the entry point of the SDK
type Client struct {
	cfg   reachfive.Config
	api   *api.Client
	flows *reachfive.Suspension

	browser         reachfive.Browser
	logger          *slog.Logger
	observer        FlowObserver
	validator       reachfive.ProfileValidator
	creators        []providers.Creator
	apiOptions      []api.Option
	webauthnOptions []webauthn.Option
	tokenOptions    []reachfive.TokenOption
	baseTransport   http.RoundTripper

	current atomic.Pointer[snapshot]
}

// snapshot is what Initialize builds. It is replaced as a whole, never mutated.
type snapshot struct {
	defaultScope reachfive.ScopeSet
	providers    []reachfive.Provider
	env          *providers.Env
	password     *providers.Password
	passwordless *providers.Passwordless
	web          *providers.Web
	webauthn     *webauthn.Adapter
}

func (s *snapshot) provider(name string) reachfive.Provider {
	for _, p := range s.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (s *snapshot) providerByCode(code int) reachfive.Provider {
	for _, p := range s.providers {
		if p.RequestCode() == code {
			return p
		}
	}
	return nil
}

// New creates a client for cfg persisting suspended flows in store.
// Call Initialize before starting any flow.
func New(cfg reachfive.Config, store reachfive.Store, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &reachfive.ValidationError{Field: "store", Message: "is required"}
	}
	c := &Client{
		cfg:           cfg,
		logger:        slog.Default(),
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("client_id", cfg.ClientID)
	c.api = api.New(cfg.BaseURL(), cfg.ClientID, append([]api.Option{api.WithLogger(c.logger)}, c.apiOptions...)...)
	c.flows = reachfive.NewSuspension(store, c.logger)
	return c, nil
}

// Config returns the configuration the client was created with
func (c *Client) Config() reachfive.Config {
	return c.cfg
}

// API exposes the REST client for calls the orchestrator does not wrap
func (c *Client) API() *api.Client {
	return c.api
}

// Initialize fetches the client and provider configurations of the tenant and
// builds the providers. Calling it again replaces the previous snapshot; flows
// already suspended stay resumable as long as their request codes are still claimed.
func (c *Client) Initialize(ctx context.Context) error {
	clientCfg, err := c.api.ClientConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch client config: %w", err)
	}
	configs, err := c.api.ProvidersConfigs(ctx)
	if err != nil {
		return fmt.Errorf("fetch providers config: %w", err)
	}

	tokenOptions := c.tokenOptions
	if c.cfg.JWKSURL != "" {
		kf, err := reachfive.NewJWKSKeyfunc(ctx, c.cfg.JWKSURL)
		if err != nil {
			return err
		}
		tokenOptions = append([]reachfive.TokenOption{reachfive.WithIDTokenKeyfunc(kf, c.cfg.ClientID)}, tokenOptions...)
	}

	env := &providers.Env{
		API:          c.api,
		Flows:        c.flows,
		Browser:      c.browser,
		RedirectURI:  c.cfg.Scheme,
		Origin:       c.cfg.Origin,
		TokenOptions: tokenOptions,
		Logger:       c.logger,
	}
	registry := providers.NewRegistry(c.logger, append([]providers.Creator{providers.WebViewCreator()}, c.creators...)...)
	built, err := registry.Build(configs, env)
	if err != nil {
		return err
	}
	if err := c.flows.Correlator.ClaimAll(built); err != nil {
		return err
	}

	c.current.Store(&snapshot{
		defaultScope: reachfive.ParseScopeSet(clientCfg.Scope),
		providers:    built,
		env:          env,
		password:     providers.NewPassword(env, c.validator),
		passwordless: providers.NewPasswordless(env),
		web:          providers.NewWeb(env),
		webauthn:     webauthn.New(env, c.webauthnOptions...),
	})
	c.logger.InfoContext(ctx, "client initialized", "providers", len(built), "default_scope", clientCfg.Scope)
	return nil
}

func (c *Client) snapshot() (*snapshot, error) {
	s := c.current.Load()
	if s == nil {
		return nil, reachfive.ErrNotInitialized
	}
	return s, nil
}

// DefaultScope is the scope requested when a call sets none
func (c *Client) DefaultScope() (reachfive.ScopeSet, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return s.defaultScope, nil
}

// Providers lists the providers built by the last Initialize
func (c *Client) Providers() []reachfive.Provider {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	return append([]reachfive.Provider(nil), s.providers...)
}

func (s *snapshot) scope(override reachfive.ScopeSet) reachfive.ScopeSet {
	return reachfive.ResolveScope(s.defaultScope, override)
}
