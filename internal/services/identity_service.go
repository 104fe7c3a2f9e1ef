package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/prakasham-om/jbnet/internal/ports"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityService verifies session tokens minted by the external identity
// provider (shared HMAC secret) and extracts the verified email used as the
// addressing key everywhere else. It never issues tokens itself.
type IdentityService struct {
	tokenRepo ports.TokenRepository
	jwtKey    []byte
	logger    *slog.Logger
}

func NewIdentityService(tokenRepo ports.TokenRepository, jwtKey []byte, logger *slog.Logger) *IdentityService {
	return &IdentityService{tokenRepo: tokenRepo, jwtKey: jwtKey, logger: logger}
}

// ValidateToken returns the verified email claim of a live token.
func (s *IdentityService) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New("token is required")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtKey, nil
	})
	if err != nil || !parsed.Valid {
		s.logger.Warn("token validation failed", "error", err)
		return "", errors.New("invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return "", errors.New("token carries no email claim")
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, hashToken(token))
	if err != nil {
		s.logger.Error("revocation check failed", "error", err)
		return "", err
	}
	if revoked {
		s.logger.Warn("revoked token presented", "email", email)
		return "", errors.New("token revoked")
	}

	return email, nil
}

// RevokeToken blacklists a token for whatever lifetime it has left.
func (s *IdentityService) RevokeToken(ctx context.Context, token string) error {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return errors.New("invalid token")
	}

	expiration := 24 * time.Hour
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		if remaining := time.Until(exp.Time); remaining > 0 {
			expiration = remaining
		}
	}

	return s.tokenRepo.Revoke(ctx, hashToken(token), expiration)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
