package reachfive

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

func signIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)
	return s
}

func hmacKeyfunc(*jwt.Token) (any, error) { return testSigningKey, nil }

func TestNormalizeToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := WithClock(func() time.Time { return now })

	t.Run("access and id token", func(t *testing.T) {
		idToken := signIDToken(t, jwt.MapClaims{"sub": "user-1", "email": "jo@example.com", "email_verified": true})
		tok, err := NormalizeToken(&TokenResponse{
			AccessToken:  "at",
			RefreshToken: "rt",
			IDToken:      idToken,
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		}, clock)
		require.NoError(t, err)
		require.NotNil(t, tok.User)
		assert.Equal(t, "user-1", tok.User.ID)
		assert.Equal(t, "jo@example.com", tok.User.Email)
		require.NotNil(t, tok.User.EmailVerified)
		assert.True(t, *tok.User.EmailVerified)
		assert.Equal(t, idToken, tok.IDToken)
		assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)
		assert.Equal(t, "Bearer at", tok.AuthHeader())
	})

	t.Run("access token only", func(t *testing.T) {
		tok, err := NormalizeToken(&TokenResponse{AccessToken: "at"}, clock)
		require.NoError(t, err)
		assert.Nil(t, tok.User)
		assert.Empty(t, tok.IDToken)
		assert.Equal(t, "Bearer", tok.TokenType)
		assert.True(t, tok.ExpiresAt.IsZero())
	})

	t.Run("empty response", func(t *testing.T) {
		_, err := NormalizeToken(&TokenResponse{})
		assert.ErrorIs(t, err, ErrNoAccessToken)
		_, err = NormalizeToken(nil)
		assert.ErrorIs(t, err, ErrNoAccessToken)
	})

	t.Run("malformed id token", func(t *testing.T) {
		_, err := NormalizeToken(&TokenResponse{AccessToken: "at", IDToken: "not-a-jwt"})
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("id token without sub", func(t *testing.T) {
		_, err := NormalizeToken(&TokenResponse{AccessToken: "at", IDToken: signIDToken(t, jwt.MapClaims{"email": "x@y.z"})})
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})
}

func TestNormalizeToken_VerifiesSignature(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	good := signIDToken(t, jwt.MapClaims{"sub": "user-1", "aud": "client-1", "exp": exp})

	tok, err := NormalizeToken(&TokenResponse{AccessToken: "at", IDToken: good}, WithIDTokenKeyfunc(hmacKeyfunc, "client-1"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", tok.User.ID)

	_, err = NormalizeToken(&TokenResponse{AccessToken: "at", IDToken: good}, WithIDTokenKeyfunc(hmacKeyfunc, "other-client"))
	assert.ErrorIs(t, err, ErrInvalidIDToken)

	wrongKey := func(*jwt.Token) (any, error) { return []byte("other-key"), nil }
	_, err = NormalizeToken(&TokenResponse{AccessToken: "at", IDToken: good}, WithIDTokenKeyfunc(wrongKey, ""))
	assert.ErrorIs(t, err, ErrInvalidIDToken)
}

func TestAuthToken_Expiry(t *testing.T) {
	tests := []struct {
		name         string
		expiresAt    time.Time
		wantExpired  bool
		wantExpiring bool
	}{
		{"no expiry", time.Time{}, false, false},
		{"expired", time.Now().Add(-time.Minute), true, true},
		{"expiring soon", time.Now().Add(2 * time.Minute), false, true},
		{"fresh", time.Now().Add(time.Hour), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AuthToken{AccessToken: "at", ExpiresAt: tt.expiresAt}
			if got := tok.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if got := tok.IsExpiringSoon(RefreshThreshold); got != tt.wantExpiring {
				t.Errorf("IsExpiringSoon() = %v, want %v", got, tt.wantExpiring)
			}
		})
	}
}

func TestAuthToken_OAuth2Token(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tok := &AuthToken{AccessToken: "at", TokenType: "Bearer", RefreshToken: "rt", IDToken: "id", ExpiresAt: exp}
	o := tok.OAuth2Token()
	assert.Equal(t, "at", o.AccessToken)
	assert.Equal(t, "rt", o.RefreshToken)
	assert.Equal(t, exp, o.Expiry)
	assert.Equal(t, "id", o.Extra("id_token"))
	assert.True(t, o.Valid())
}

func TestDecodeIDToken_Errors(t *testing.T) {
	for _, in := range []string{"", "a.b", "a.!!!.c"} {
		_, err := DecodeIDToken(in)
		if !errors.Is(err, ErrInvalidIDToken) {
			t.Errorf("DecodeIDToken(%q) error = %v, want ErrInvalidIDToken", in, err)
		}
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	require.NoError(t, err)
	b, err := GenerateSecureToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
