//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gradegate/internal/identity/revocation"
	"gradegate/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	trl   *revocation.RedisTRL
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.trl = revocation.NewRedisTRL(s.redis.Client)
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

// TestRevocationRoundTrip verifies the marker key behavior.
func (s *RedisTRLSuite) TestRevocationRoundTrip() {
	ctx := context.Background()

	revoked, err := s.trl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.trl.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = s.trl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)
}

// TestTTLExpiry verifies entries disappear with their token.
func (s *RedisTRLSuite) TestTTLExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.trl.Revoke(ctx, "jti-short", 200*time.Millisecond))

	s.Require().Eventually(func() bool {
		revoked, err := s.trl.IsRevoked(ctx, "jti-short")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}
