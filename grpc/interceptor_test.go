package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

var testKey = []byte("grpc-test-secret")

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"aud": "client-id",
		"exp": exp.Unix(),
	}).SignedString(testKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func testVerifier() Verifier {
	return JWTVerifier(func(*jwt.Token) (any, error) { return testKey, nil }, "client-id")
}

func incoming(authorization string) context.Context {
	md := metadata.MD{}
	if authorization != "" {
		md = metadata.Pairs("authorization", authorization)
	}
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestTokenCredentials(t *testing.T) {
	creds := NewTokenCredentials(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at"}))
	if !creds.RequireTransportSecurity() {
		t.Error("expected transport security to be required by default")
	}

	md, err := creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md["authorization"] != "Bearer at" {
		t.Errorf("expected %q, got %q", "Bearer at", md["authorization"])
	}

	creds.AllowInsecure = true
	if creds.RequireTransportSecurity() {
		t.Error("expected AllowInsecure to disable transport security")
	}
}

func TestTokenCredentials_NoToken(t *testing.T) {
	if _, err := (TokenCredentials{}).GetRequestMetadata(context.Background()); !errors.Is(err, reachfive.ErrNoAccessToken) {
		t.Errorf("expected ErrNoAccessToken, got %v", err)
	}
	creds := NewTokenCredentials(oauth2.StaticTokenSource(&oauth2.Token{}))
	if _, err := creds.GetRequestMetadata(context.Background()); !errors.Is(err, reachfive.ErrNoAccessToken) {
		t.Errorf("expected ErrNoAccessToken for empty token, got %v", err)
	}
}

func TestUnaryClientInterceptor(t *testing.T) {
	interceptor := UnaryClientInterceptor(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at", TokenType: "Bearer"}))

	var got []string
	err := interceptor(context.Background(), "/pkg.Svc/Method", nil, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			md, _ := metadata.FromOutgoingContext(ctx)
			got = md.Get("authorization")
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "Bearer at" {
		t.Errorf("expected authorization %q, got %v", "Bearer at", got)
	}
}

func TestUnaryClientInterceptor_NoSource(t *testing.T) {
	interceptor := UnaryClientInterceptor(nil)
	err := interceptor(context.Background(), "/pkg.Svc/Method", nil, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			t.Error("invoker should not be called")
			return nil
		})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestStreamClientInterceptor(t *testing.T) {
	interceptor := StreamClientInterceptor(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at"}))

	var got []string
	_, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/pkg.Svc/Stream",
		func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			md, _ := metadata.FromOutgoingContext(ctx)
			got = md.Get("authorization")
			return nil, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "Bearer at" {
		t.Errorf("expected authorization %q, got %v", "Bearer at", got)
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	valid := "Bearer " + signToken(t, "user-1", time.Now().Add(time.Hour))
	expired := "Bearer " + signToken(t, "user-1", time.Now().Add(-time.Hour))

	tests := []struct {
		name     string
		config   *InterceptorConfig
		method   string
		auth     string
		wantCode codes.Code
		wantUser string
	}{
		{"valid token", NewInterceptorConfig(testVerifier()), "/pkg.Svc/Method", valid, codes.OK, "user-1"},
		{"no token", NewInterceptorConfig(testVerifier()), "/pkg.Svc/Method", "", codes.Unauthenticated, ""},
		{"expired token", NewInterceptorConfig(testVerifier()), "/pkg.Svc/Method", expired, codes.Unauthenticated, ""},
		{"public method", NewInterceptorConfig(testVerifier(), "/pkg.Svc/Public"), "/pkg.Svc/Public", "", codes.OK, ""},
		{"public method with token", NewInterceptorConfig(testVerifier(), "/pkg.Svc/Public"), "/pkg.Svc/Public", valid, codes.OK, "user-1"},
		{"optional auth", &InterceptorConfig{Verify: testVerifier()}, "/pkg.Svc/Method", expired, codes.OK, ""},
		{"no verifier", &InterceptorConfig{RequireAuth: true}, "/pkg.Svc/Method", valid, codes.Internal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interceptor := UnaryAuthInterceptor(tt.config)
			info := &grpc.UnaryServerInfo{FullMethod: tt.method}

			var user *reachfive.OpenIDUser
			_, err := interceptor(incoming(tt.auth), nil, info, func(ctx context.Context, req any) (any, error) {
				user = UserFromContext(ctx)
				return "ok", nil
			})
			if status.Code(err) != tt.wantCode {
				t.Fatalf("expected code %v, got %v", tt.wantCode, err)
			}
			if tt.wantUser == "" {
				if user != nil {
					t.Errorf("expected no user, got %v", user)
				}
				return
			}
			if user == nil || user.ID != tt.wantUser {
				t.Errorf("expected user %q, got %v", tt.wantUser, user)
			}
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamAuthInterceptor(t *testing.T) {
	interceptor := StreamAuthInterceptor(NewInterceptorConfig(testVerifier()))
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}

	ss := &fakeServerStream{ctx: incoming("Bearer " + signToken(t, "user-2", time.Now().Add(time.Hour)))}
	var user *reachfive.OpenIDUser
	err := interceptor(nil, ss, info, func(srv any, stream grpc.ServerStream) error {
		user = UserFromContext(stream.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != "user-2" {
		t.Errorf("expected user-2, got %v", user)
	}

	err = interceptor(nil, &fakeServerStream{ctx: incoming("")}, info, func(srv any, stream grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}
