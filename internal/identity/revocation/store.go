// Package revocation tracks logged-out token ids until their natural expiry.
package revocation

import (
	"context"
	"time"
)

// TokenRevocationList records revoked token ids (jti claims). Entries only
// need to outlive the token, so every implementation takes a TTL.
type TokenRevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
