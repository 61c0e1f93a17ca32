package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models"
)

func newTestVerifier(t *testing.T) (*KeyfuncVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kf := func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil }
	return NewKeyfuncVerifier(kf, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims *models.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() *models.Claims {
	return &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAuthenticated,
	}
}

func TestVerifyTokenAccepts(t *testing.T) {
	v, key := newTestVerifier(t)

	claims, err := v.VerifyToken(sign(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.GetUserID())
}

func TestVerifyTokenRejects(t *testing.T) {
	v, key := newTestVerifier(t)

	tests := []struct {
		name  string
		token func() string
	}{
		{name: "garbage", token: func() string { return "not.a.token" }},
		{
			name: "expired",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return sign(t, key, c)
			},
		},
		{
			name: "no expiry",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = nil
				return sign(t, key, c)
			},
		},
		{
			name: "anonymous role",
			token: func() string {
				c := validClaims()
				c.Role = "anon"
				return sign(t, key, c)
			},
		},
		{
			name: "missing subject",
			token: func() string {
				c := validClaims()
				c.Subject = ""
				return sign(t, key, c)
			},
		},
		{
			name: "hmac signed",
			token: func() string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "other key",
			token: func() string {
				other, err := rsa.GenerateKey(rand.Reader, 2048)
				require.NoError(t, err)
				return sign(t, other, validClaims())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(tt.token())
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}
