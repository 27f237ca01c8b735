// Package api is a typed client for the ReachFive identity REST API.
//
// Every call takes a context, carries the SDK telemetry query and maps failures
// onto the reachfive error taxonomy: HTTP errors become *reachfive.APIError and
// network or codec failures *reachfive.TransportError. The client never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Client talks to one ReachFive tenant
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	sdk        reachfive.SdkInfo
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: transport}
	}
}

// WithLogger sets the logger for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSdkInfo overrides the telemetry sent with every call
func WithSdkInfo(info reachfive.SdkInfo) Option {
	return func(c *Client) {
		c.sdk = info
	}
}

// New creates a client for the tenant at baseURL
func New(baseURL, clientID string, opts ...Option) *Client {
	// Normalize server URL
	u, err := url.Parse(baseURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{},
		sdk:        reachfive.DefaultSdkInfo(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the tenant URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ClientID returns the OAuth client id
func (c *Client) ClientID() string {
	return c.clientID
}

// HTTPClient returns the client used for backend calls
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// call is one backend request
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   string
	out    any
}

func (c *Client) endpoint(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	c.sdk.AddTo(q)
	return c.baseURL + path + "?" + q.Encode()
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, &reachfive.TransportError{Op: "encode " + cl.path, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), body)
	if err != nil {
		return nil, &reachfive.TransportError{Op: cl.method + " " + cl.path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth != "" {
		req.Header.Set("Authorization", cl.auth)
	}
	return req, nil
}

// do runs cl with the regular client and decodes a 2xx body into cl.out
func (c *Client) do(ctx context.Context, cl call) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}
	return c.send(ctx, c.httpClient, req, cl)
}

func (c *Client) send(ctx context.Context, hc *http.Client, req *http.Request, cl call) error {
	op := cl.method + " " + cl.path
	resp, err := hc.Do(req)
	if err != nil {
		return &reachfive.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &reachfive.TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.logger.DebugContext(ctx, "reachfive api call", "method", cl.method, "path", cl.path, "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, body)
	}
	if cl.out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, cl.out); err != nil {
		return &reachfive.TransportError{Op: op, Err: fmt.Errorf("invalid response from server: %w", err)}
	}
	return nil
}

// decodeAPIError passes the backend error through verbatim. Bodies that are
// not a structured error still yield an APIError for the status.
func decodeAPIError(status int, body []byte) error {
	var apiErr reachfive.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		return reachfive.NewAPIError(status)
	}
	apiErr.StatusCode = status
	return &apiErr
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *reachfive.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
