package auth

import "prdbuilder/internal/domain/models"

// JWTVerifier verifies bearer tokens for the auth middleware
type JWTVerifier interface {
	// VerifyToken validates a token and returns its claims.
	// Any invalid, expired or unsigned token yields domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases resources held by the verifier
	Close() error
}
