package providers

import (
	"fmt"
	"log/slog"
	"sync"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Creator builds the provider for one backend provider configuration
type Creator interface {
	Name() string
	Create(cfg reachfive.ProviderConfig, env *Env) (reachfive.Provider, error)
}

type creatorFunc struct {
	name string
	fn   func(cfg reachfive.ProviderConfig, env *Env) (reachfive.Provider, error)
}

func (c creatorFunc) Name() string { return c.name }

func (c creatorFunc) Create(cfg reachfive.ProviderConfig, env *Env) (reachfive.Provider, error) {
	return c.fn(cfg, env)
}

// NewCreator adapts a function to Creator
func NewCreator(name string, fn func(cfg reachfive.ProviderConfig, env *Env) (reachfive.Provider, error)) Creator {
	return creatorFunc{name: name, fn: fn}
}

// Registry maps provider names to creators. Configured providers without a
// creator of their own fall back to the "webview" creator when one is registered.
type Registry struct {
	mu       sync.RWMutex
	creators map[string]Creator
	logger   *slog.Logger
}

// NewRegistry creates a registry holding creators
func NewRegistry(logger *slog.Logger, creators ...Creator) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{creators: make(map[string]Creator), logger: logger}
	for _, c := range creators {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the creator for c.Name()
func (r *Registry) Register(c Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[c.Name()] = c
}

// Names lists the registered creator names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.creators))
	for name := range r.creators {
		names = append(names, name)
	}
	return names
}

// Build creates one provider per configuration. Configurations nothing can
// serve are skipped with a warning.
func (r *Registry) Build(configs []reachfive.ProviderConfig, env *Env) ([]reachfive.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reachfive.Provider, 0, len(configs))
	for _, cfg := range configs {
		creator, ok := r.creators[cfg.Provider]
		if !ok {
			creator, ok = r.creators[WebViewName]
		}
		if !ok {
			r.logger.Warn("no creator for provider, skipping", "provider", cfg.Provider)
			continue
		}
		p, err := creator.Create(cfg, env)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", cfg.Provider, err)
		}
		out = append(out, p)
	}
	return out, nil
}
