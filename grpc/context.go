// Package grpc carries ReachFive tokens over gRPC metadata. Clients attach
// the access token with TokenCredentials or the client interceptors; servers
// read it back with AuthorizationFromIncomingContext or the auth interceptors.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// MetadataKeyAuthorization is the gRPC metadata key holding "<type> <token>"
const MetadataKeyAuthorization = "authorization"

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKey defaults to "authorization".
	MetadataKey string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKey: MetadataKeyAuthorization}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKey == "" {
		c.MetadataKey = MetadataKeyAuthorization
	}
}

// AuthTokenToOutgoingContext adds the access token of tok to outgoing metadata.
// A token without access token leaves ctx untouched.
func AuthTokenToOutgoingContext(ctx context.Context, tok *reachfive.AuthToken) context.Context {
	if tok == nil || tok.AccessToken == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MetadataKeyAuthorization, tok.AuthHeader())
}

// AuthorizationFromIncomingContext returns the bearer token sent by the caller.
// It fails with reachfive.ErrNoAccessToken when there is none.
func AuthorizationFromIncomingContext(ctx context.Context) (string, error) {
	return authorizationWithConfig(ctx, DefaultConfig())
}

func authorizationWithConfig(ctx context.Context, config *Config) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", reachfive.ErrNoAccessToken
	}
	for _, v := range md.Get(config.MetadataKey) {
		scheme, token, found := strings.Cut(v, " ")
		if found && strings.EqualFold(scheme, "bearer") && token != "" {
			return token, nil
		}
	}
	return "", reachfive.ErrNoAccessToken
}

type userKey struct{}

// UserFromContext returns the user stored by the auth interceptors, or nil.
func UserFromContext(ctx context.Context) *reachfive.OpenIDUser {
	u, _ := ctx.Value(userKey{}).(*reachfive.OpenIDUser)
	return u
}

// ContextWithUser stores u for UserFromContext
func ContextWithUser(ctx context.Context, u *reachfive.OpenIDUser) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}
