// Package identity exchanges external identity-provider assertions for local
// access tokens and resolves tokens back into callers. Roles are never taken
// from the token: every request re-reads the user row, so a demotion takes
// effect on the very next call.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"gradegate/internal/identity/revocation"
	"gradegate/internal/platform/metrics"
	"gradegate/internal/roster/models"
	"gradegate/internal/roster/store"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/platform/sentinel"
	"gradegate/pkg/requestcontext"
)

// Service handles login, logout and per-request caller resolution.
type Service struct {
	users    store.UserStore
	tokens   *TokenService
	verifier AssertionVerifier
	trl      revocation.TokenRevocationList
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(users store.UserStore, tokens *TokenService, verifier AssertionVerifier, trl revocation.TokenRevocationList, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
		trl:      trl,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges an identity-provider assertion for a local access token.
// The user must already exist in the roster; first login binds the provider
// subject, later logins match on it directly. Unknown identities answer
// Unauthenticated without detail.
func (s *Service) Login(ctx context.Context, assertion string) (string, *models.User, error) {
	a, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		return "", nil, err
	}

	u, err := s.users.FindByIDPSub(ctx, a.Sub)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		u, err = s.users.FindByEmail(ctx, a.Email)
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, dErrors.New(dErrors.CodeUnauthenticated, "unknown identity")
		}
		if err != nil {
			return "", nil, wrapStore(err)
		}
		// An email already bound to a different provider subject is an
		// impersonation attempt, not a first login.
		if u.IDPSub != "" && u.IDPSub != a.Sub {
			return "", nil, dErrors.New(dErrors.CodeUnauthenticated, "unknown identity")
		}
		if err := s.users.BindIDPSub(ctx, u.ID, a.Sub); err != nil {
			return "", nil, wrapStore(err)
		}
	case err != nil:
		return "", nil, wrapStore(err)
	}

	token, err := s.tokens.Issue(u.ID, requestcontext.Now(ctx))
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.incrementLogin()
	s.logLogin(ctx, u)
	return token, u, nil
}

// Logout revokes the presented token until its natural expiry. Revoking an
// already-revoked or expired token is not an error.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Validate(rawToken)
	if err != nil {
		return err
	}
	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.Revoke(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	if s.metrics != nil {
		s.metrics.TokensRevoked.Inc()
	}
	s.logger.InfoContext(ctx, "token revoked", "user_id", claims.UserID)
	return nil
}

// Resolve turns a raw bearer token into a caller, re-reading the user row so
// the role is current. Revoked tokens and deleted users both answer
// Unauthenticated.
func (s *Service) Resolve(ctx context.Context, rawToken string) (requestcontext.Caller, *models.User, error) {
	claims, err := s.tokens.Validate(rawToken)
	if err != nil {
		return requestcontext.Caller{}, nil, err
	}

	revoked, err := s.trl.IsRevoked(ctx, claims.ID)
	if err != nil {
		return requestcontext.Caller{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "revocation check failed")
	}
	if revoked {
		return requestcontext.Caller{}, nil, dErrors.New(dErrors.CodeUnauthenticated, "token revoked")
	}

	if claims.UserID <= 0 {
		return requestcontext.Caller{}, nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}
	u, err := s.users.FindByID(ctx, domain.UserID(claims.UserID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.Caller{}, nil, dErrors.New(dErrors.CodeUnauthenticated, "unknown user")
		}
		return requestcontext.Caller{}, nil, wrapStore(err)
	}

	return requestcontext.Caller{UserID: u.ID, Role: u.Role}, u, nil
}

// BootstrapAdmin creates the very first admin account. It bypasses the
// authorization policy on purpose: the caller is authenticated by the
// bootstrap token at the transport layer, and the operation refuses to run
// once any admin exists.
func (s *Service) BootstrapAdmin(ctx context.Context, name, email string) (*models.User, error) {
	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, wrapStore(err)
	}
	if len(admins) > 0 {
		return nil, dErrors.New(dErrors.CodeConflict, "an admin already exists")
	}

	u, err := models.NewUser(name, email, domain.RoleAdmin, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already in use")
		}
		return nil, wrapStore(err)
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", u.ID)
	return u, nil
}

func (s *Service) logLogin(ctx context.Context, u *models.User) {
	args := []any{"user_id", u.ID, "role", u.Role}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		parsed := useragent.New(ua)
		browser, _ := parsed.Browser()
		args = append(args, "client_os", parsed.OSInfo().Name, "client_browser", browser)
	}
	s.logger.InfoContext(ctx, "login succeeded", args...)
}

func (s *Service) incrementLogin() {
	if s.metrics != nil {
		s.metrics.LoginsSucceeded.Inc()
	}
}

func wrapStore(err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.New(dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}
