package reachfive

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the static configuration of an SDK instance
type Config struct {
	// Domain is the tenant host, with or without scheme
	Domain   string `env:"REACHFIVE_DOMAIN"`
	ClientID string `env:"REACHFIVE_CLIENT_ID"`
	// Scheme is the redirect URI the browser returns to
	Scheme string `env:"REACHFIVE_SCHEME"`
	// Origin is reported to the backend for analytics
	Origin    string `env:"REACHFIVE_ORIGIN"`
	AppName   string `env:"REACHFIVE_APP_NAME" envDefault:"reachfive"`
	StoreDir  string `env:"REACHFIVE_STORE_DIR"`
	RedisAddr string `env:"REACHFIVE_REDIS_ADDR"`
	// DatastoreProject selects the Cloud Datastore store when set
	DatastoreProject   string `env:"REACHFIVE_DATASTORE_PROJECT"`
	DatastoreNamespace string `env:"REACHFIVE_DATASTORE_NAMESPACE"`
	// JWKSURL enables id_token signature verification when set
	JWKSURL string `env:"REACHFIVE_JWKS_URL"`
}

// LoadConfigFromEnv reads Config from REACHFIVE_* environment variables
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields every flow depends on
func (c Config) Validate() error {
	if c.Domain == "" {
		return &ValidationError{Field: "domain", Message: "is required"}
	}
	if c.ClientID == "" {
		return &ValidationError{Field: "client_id", Message: "is required"}
	}
	if c.Scheme == "" {
		return &ValidationError{Field: "scheme", Message: "is required"}
	}
	if _, err := url.Parse(c.BaseURL()); err != nil {
		return &ValidationError{Field: "domain", Message: err.Error()}
	}
	return nil
}

// BaseURL is the tenant URL. A bare domain is served over https.
func (c Config) BaseURL() string {
	d := strings.TrimRight(c.Domain, "/")
	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return d
	}
	return "https://" + d
}

// DefaultJWKSURL is where the tenant publishes its signing keys
func (c Config) DefaultJWKSURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.BaseURL() + "/.well-known/jwks.json"
}
