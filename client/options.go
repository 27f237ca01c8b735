package client

import (
	"log/slog"
	"net/http"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
	"github.com/ReachFive/identity-android-sdk-sub000/webauthn"
)

// Option configures a Client
type Option func(*Client)

// WithBrowser sets the surface that opens authorization URLs. Web and
// webview logins fail with providers.ErrNoBrowser without it.
func WithBrowser(b reachfive.Browser) Option {
	return func(c *Client) {
		c.browser = b
	}
}

// WithLogger sets the logger shared by every component
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.apiOptions = append(c.apiOptions, api.WithHTTPClient(client))
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
	}
}

// WithSdkInfo overrides the telemetry sent with every call
func WithSdkInfo(info reachfive.SdkInfo) Option {
	return func(c *Client) {
		c.apiOptions = append(c.apiOptions, api.WithSdkInfo(info))
	}
}

// WithProviderCreators adds creators to the registry used by Initialize.
// The webview creator is registered by default.
func WithProviderCreators(creators ...providers.Creator) Option {
	return func(c *Client) {
		c.creators = append(c.creators, creators...)
	}
}

// WithFlowObserver reports flow state transitions to o
func WithFlowObserver(o FlowObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLauncher sets the platform surface of suspending WebAuthn ceremonies
func WithLauncher(l webauthn.Launcher) Option {
	return func(c *Client) {
		c.webauthnOptions = append(c.webauthnOptions, webauthn.WithLauncher(l))
	}
}

// WithCredentialManager sets the platform surface of passkey ceremonies
func WithCredentialManager(m webauthn.CredentialManager) Option {
	return func(c *Client) {
		c.webauthnOptions = append(c.webauthnOptions, webauthn.WithCredentialManager(m))
	}
}

// WithTokenOptions tunes how token responses are normalized, for example to
// verify id_token signatures with a known key
func WithTokenOptions(opts ...reachfive.TokenOption) Option {
	return func(c *Client) {
		c.tokenOptions = append(c.tokenOptions, opts...)
	}
}

// WithProfileValidator replaces the local signup profile check
func WithProfileValidator(v reachfive.ProfileValidator) Option {
	return func(c *Client) {
		c.validator = v
	}
}
