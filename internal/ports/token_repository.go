package ports

import (
	"context"
	"time"
)

// TokenRepository tracks session tokens revoked before their natural expiry.
// Tokens themselves are issued by the external identity provider.
type TokenRepository interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	Revoke(ctx context.Context, tokenHash string, expiration time.Duration) error
}
