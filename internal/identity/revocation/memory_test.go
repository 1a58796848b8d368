package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTRL(t *testing.T) {
	ctx := context.Background()
	trl := NewInMemoryTRL()

	t.Run("unknown jti is not revoked", func(t *testing.T) {
		revoked, err := trl.IsRevoked(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoked jti is reported until expiry", func(t *testing.T) {
		require.NoError(t, trl.Revoke(ctx, "jti-1", time.Minute))

		revoked, err := trl.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("expired entries fall out", func(t *testing.T) {
		require.NoError(t, trl.Revoke(ctx, "jti-2", -time.Second))

		revoked, err := trl.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("empty jti is a no-op", func(t *testing.T) {
		require.NoError(t, trl.Revoke(ctx, "", time.Minute))

		revoked, err := trl.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
