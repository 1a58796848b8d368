package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"gradegate/internal/identity/revocation"
	"gradegate/internal/roster/models"
	"gradegate/internal/roster/store"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/requestcontext"
)

const testAssertionKey = "test-assertion-key"

type IdentityServiceSuite struct {
	suite.Suite
	svc    *Service
	users  *store.InMemoryUserStore
	tokens *TokenService
	ctx    context.Context

	grader domain.UserID
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.users = store.NewInMemoryUserStore()
	s.tokens = NewTokenService("test-signing-key", time.Hour)
	s.svc = New(s.users, s.tokens, NewHS256Verifier(testAssertionKey), revocation.NewInMemoryTRL())
	s.ctx = context.Background()

	u, err := models.NewUser("Grader", "grader@example.edu", domain.RoleTA, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, u))
	s.grader = u.ID
}

// assertion signs an IdP assertion the dev verifier accepts.
func (s *IdentityServiceSuite) assertion(sub, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"name":  "Grader",
		"exp":   time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(testAssertionKey))
	s.Require().NoError(err)
	return signed
}

// TestLogin verifies assertion exchange and first-login subject binding.
func (s *IdentityServiceSuite) TestLogin() {
	s.Run("first login matches by email and binds the subject", func() {
		token, u, err := s.svc.Login(s.ctx, s.assertion("idp|grader", "grader@example.edu"))
		s.Require().NoError(err)
		s.NotEmpty(token)
		s.Equal(s.grader, u.ID)

		bound, err := s.users.FindByIDPSub(s.ctx, "idp|grader")
		s.Require().NoError(err)
		s.Equal(s.grader, bound.ID)
	})

	s.Run("later logins match on the bound subject", func() {
		_, _, err := s.svc.Login(s.ctx, s.assertion("idp|grader", "grader@example.edu"))
		s.Require().NoError(err)

		// Email changed at the provider; the subject still resolves.
		_, u, err := s.svc.Login(s.ctx, s.assertion("idp|grader", "renamed@example.edu"))
		s.Require().NoError(err)
		s.Equal(s.grader, u.ID)
	})

	s.Run("rejects a different subject claiming a bound email", func() {
		_, _, err := s.svc.Login(s.ctx, s.assertion("idp|grader", "grader@example.edu"))
		s.Require().NoError(err)

		_, _, err = s.svc.Login(s.ctx, s.assertion("idp|impostor", "grader@example.edu"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	s.Run("unknown identity is rejected without detail", func() {
		_, _, err := s.svc.Login(s.ctx, s.assertion("idp|nobody", "nobody@example.edu"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	s.Run("garbage assertions are rejected", func() {
		_, _, err := s.svc.Login(s.ctx, "not-a-jwt")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

// TestResolve verifies tokens resolve to fresh roles.
func (s *IdentityServiceSuite) TestResolve() {
	token, _, err := s.svc.Login(s.ctx, s.assertion("idp|grader", "grader@example.edu"))
	s.Require().NoError(err)

	s.Run("resolves a valid token", func() {
		caller, u, err := s.svc.Resolve(s.ctx, token)
		s.Require().NoError(err)
		s.Equal(s.grader, caller.UserID)
		s.Equal(domain.RoleTA, caller.Role)
		s.Equal(s.grader, u.ID)
	})

	s.Run("demotion takes effect on the next resolve", func() {
		u, err := s.users.FindByID(s.ctx, s.grader)
		s.Require().NoError(err)
		u.Role = domain.RoleStudent
		s.Require().NoError(s.users.Update(s.ctx, u))

		caller, _, err := s.svc.Resolve(s.ctx, token)
		s.Require().NoError(err)
		s.Equal(domain.RoleStudent, caller.Role)
	})

	s.Run("deleted user invalidates the token", func() {
		s.Require().NoError(s.users.Delete(s.ctx, s.grader))

		_, _, err := s.svc.Resolve(s.ctx, token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

// TestLogout verifies revocation blocks subsequent resolves.
func (s *IdentityServiceSuite) TestLogout() {
	token, _, err := s.svc.Login(s.ctx, s.assertion("idp|grader", "grader@example.edu"))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(s.ctx, token))

	_, _, err = s.svc.Resolve(s.ctx, token)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	// Logging out twice is harmless.
	s.Require().NoError(s.svc.Logout(s.ctx, token))
}

// TestExpiredToken verifies expiry maps to Unauthenticated.
func (s *IdentityServiceSuite) TestExpiredToken() {
	past := requestcontext.WithTime(s.ctx, time.Now().Add(-2*time.Hour))
	token, _, err := s.svc.Login(past, s.assertion("idp|grader", "grader@example.edu"))
	s.Require().NoError(err)

	_, _, err = s.svc.Resolve(s.ctx, token)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
}
