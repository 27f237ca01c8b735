package grpc

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// TokenCredentials sends the current token of Source with every call.
// Use it with grpc.WithPerRPCCredentials.
type TokenCredentials struct {
	Source oauth2.TokenSource

	// AllowInsecure permits sending the token over a plaintext connection.
	// Only meant for local testing.
	AllowInsecure bool
}

var _ credentials.PerRPCCredentials = TokenCredentials{}

// NewTokenCredentials returns credentials backed by source
func NewTokenCredentials(source oauth2.TokenSource) TokenCredentials {
	return TokenCredentials{Source: source}
}

// GetRequestMetadata implements credentials.PerRPCCredentials
func (c TokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	value, err := authorizationValue(c.Source)
	if err != nil {
		return nil, err
	}
	return map[string]string{MetadataKeyAuthorization: value}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials
func (c TokenCredentials) RequireTransportSecurity() bool {
	return !c.AllowInsecure
}

func authorizationValue(source oauth2.TokenSource) (string, error) {
	if source == nil {
		return "", reachfive.ErrNoAccessToken
	}
	tok, err := source.Token()
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", reachfive.ErrNoAccessToken
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

// UnaryClientInterceptor attaches the token of source to every unary call
func UnaryClientInterceptor(source oauth2.TokenSource) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		value, err := authorizationValue(source)
		if err != nil {
			return status.Error(codes.Unauthenticated, err.Error())
		}
		ctx = metadata.AppendToOutgoingContext(ctx, MetadataKeyAuthorization, value)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor attaches the token of source to every stream
func StreamClientInterceptor(source oauth2.TokenSource) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		value, err := authorizationValue(source)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		ctx = metadata.AppendToOutgoingContext(ctx, MetadataKeyAuthorization, value)
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// Verifier checks a bearer token and returns its owner
type Verifier func(ctx context.Context, token string) (*reachfive.OpenIDUser, error)

// JWTVerifier verifies tokens signed by the tenant, e.g. with the keyfunc
// from reachfive.NewJWKSKeyfunc. An empty audience skips the aud check.
func JWTVerifier(kf jwt.Keyfunc, audience string) Verifier {
	return func(_ context.Context, token string) (*reachfive.OpenIDUser, error) {
		return reachfive.VerifyIDToken(token, kf, audience)
	}
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	*Config

	// Verify checks the bearer token. Required.
	Verify Verifier

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserFromContext returns nil.
	RequireAuth bool

	// PublicMethods is a set of full method names like "/package.Service/Method"
	// that don't require auth.
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for all methods
// except publicMethods.
func NewInterceptorConfig(verify Verifier, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Config:        DefaultConfig(),
		Verify:        verify,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

func (c *InterceptorConfig) normalize() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// UnaryAuthInterceptor verifies the caller token and stores its owner in the context
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.normalize()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, config, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is the streaming counterpart of UnaryAuthInterceptor
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.normalize()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), config, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticate(ctx context.Context, config *InterceptorConfig, method string) (context.Context, error) {
	required := config.RequireAuth && !config.PublicMethods[method]
	token, err := authorizationWithConfig(ctx, config.Config)
	if errors.Is(err, reachfive.ErrNoAccessToken) {
		if required {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}
	if config.Verify == nil {
		return nil, status.Error(codes.Internal, "no token verifier configured")
	}
	user, err := config.Verify(ctx, token)
	if err != nil {
		if required {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return ctx, nil
	}
	return ContextWithUser(ctx, user), nil
}

type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context { return s.ctx }
