package client

import (
	"net/http"

	"golang.org/x/oauth2"
)

// AuthTransport wraps an http.RoundTripper to add Authorization headers
type AuthTransport struct {
	Base   http.RoundTripper
	Source oauth2.TokenSource
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Source != nil {
		tok, err := t.Source.Token()
		if err != nil {
			return nil, err
		}
		// Clone the request to avoid mutating the original
		req2 := req.Clone(req.Context())
		tok.SetAuthHeader(req2)
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// NewAuthTransportWithBase creates an AuthTransport with a custom base transport
func NewAuthTransportWithBase(base http.RoundTripper, source oauth2.TokenSource) *AuthTransport {
	return &AuthTransport{
		Base:   base,
		Source: source,
	}
}
