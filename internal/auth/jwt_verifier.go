package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models"
)

// RoleAuthenticated is the only role allowed to call the API
const RoleAuthenticated = "authenticated"

// allowedAlgs excludes HMAC so a public key can never be used as a shared secret
var allowedAlgs = []string{"RS256", "ES256"}

// KeyfuncVerifier implements JWTVerifier with a jwt.Keyfunc, normally backed by a JWKS endpoint
type KeyfuncVerifier struct {
	keyfunc jwt.Keyfunc
	logger  *slog.Logger
}

// NewJWTVerifier creates a verifier whose keys come from jwksURL.
// keyfunc caches the key set and refreshes it in the background.
func NewJWTVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return NewKeyfuncVerifier(jwks.Keyfunc, logger), nil
}

// NewKeyfuncVerifier creates a verifier from a key lookup function
func NewKeyfuncVerifier(kf jwt.Keyfunc, logger *slog.Logger) *KeyfuncVerifier {
	return &KeyfuncVerifier{keyfunc: kf, logger: logger}
}

// VerifyToken validates a token and extracts its claims
func (v *KeyfuncVerifier) VerifyToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, v.keyfunc,
		jwt.WithValidMethods(allowedAlgs),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok {
		v.logger.Error("unexpected claims type")
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}
	// Anonymous tokens cannot own PRDs
	if claims.Role != RoleAuthenticated {
		v.logger.Debug("token has invalid role", "role", claims.Role, "user_id", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close is a no-op; keyfunc stops refreshing when its context ends
func (v *KeyfuncVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
