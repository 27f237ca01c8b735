package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/metadata"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKey != MetadataKeyAuthorization {
		t.Errorf("expected MetadataKey %q, got %q", MetadataKeyAuthorization, config.MetadataKey)
	}
}

func TestAuthTokenToOutgoingContext(t *testing.T) {
	tok := &reachfive.AuthToken{AccessToken: "at", TokenType: "Bearer"}
	ctx := AuthTokenToOutgoingContext(context.Background(), tok)

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	if got := md.Get(MetadataKeyAuthorization); len(got) != 1 || got[0] != "Bearer at" {
		t.Errorf("expected authorization %q, got %v", "Bearer at", got)
	}
}

func TestAuthTokenToOutgoingContext_NoToken(t *testing.T) {
	ctx := context.Background()
	if got := AuthTokenToOutgoingContext(ctx, nil); got != ctx {
		t.Error("expected context to be unchanged for nil token")
	}
	if got := AuthTokenToOutgoingContext(ctx, &reachfive.AuthToken{}); got != ctx {
		t.Error("expected context to be unchanged for empty token")
	}
}

func TestAuthorizationFromIncomingContext(t *testing.T) {
	tests := []struct {
		name    string
		md      metadata.MD
		want    string
		wantErr bool
	}{
		{"bearer", metadata.Pairs("authorization", "Bearer abc"), "abc", false},
		{"lowercase scheme", metadata.Pairs("authorization", "bearer abc"), "abc", false},
		{"basic scheme", metadata.Pairs("authorization", "Basic abc"), "", true},
		{"no token", metadata.Pairs("authorization", "Bearer "), "", true},
		{"missing", metadata.MD{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), tt.md)
			got, err := AuthorizationFromIncomingContext(ctx)
			if tt.wantErr {
				if !errors.Is(err, reachfive.ErrNoAccessToken) {
					t.Errorf("expected ErrNoAccessToken, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("expected %q, got %q (err %v)", tt.want, got, err)
			}
		})
	}

	if _, err := AuthorizationFromIncomingContext(context.Background()); !errors.Is(err, reachfive.ErrNoAccessToken) {
		t.Errorf("expected ErrNoAccessToken without metadata, got %v", err)
	}
}

func TestUserFromContext(t *testing.T) {
	if UserFromContext(context.Background()) != nil {
		t.Error("expected no user in empty context")
	}
	u := &reachfive.OpenIDUser{ID: "u1"}
	if got := UserFromContext(ContextWithUser(context.Background(), u)); got != u {
		t.Errorf("expected user %v, got %v", u, got)
	}
}
