// Package service orchestrates roster management: users, subjects, questions
// and enrollments. Every operation resolves the caller from context, asks the
// authorization policy, and answers NotFound rather than Forbidden when a
// record exists but is outside the caller's visibility.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"gradegate/internal/authz"
	"gradegate/internal/platform/metrics"
	"gradegate/internal/roster/store"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/platform/sentinel"
	"gradegate/pkg/platform/tx"
	"gradegate/pkg/requestcontext"
)

// EvaluationCascader is the slice of the evaluation store the roster service
// needs for cascade deletes. Roster deletes run the cascade inside their own
// transaction, so the evaluation rows and the roster rows vanish together.
type EvaluationCascader interface {
	DeleteByQuestions(ctx context.Context, questionIDs []domain.QuestionID) error
	DeleteByStudent(ctx context.Context, studentID domain.UserID) error
	DeleteByTA(ctx context.Context, taID domain.UserID) error
}

// Service orchestrates roster reads and admin mutations.
type Service struct {
	users        store.UserStore
	subjects     store.SubjectStore
	questions    store.QuestionStore
	enrollments  store.EnrollmentStore
	evaluations  EvaluationCascader
	tx           tx.Runner
	logger       *slog.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

// New constructs a Service. Without WithTxRunner it runs against stores that
// serialize internally (the in-memory implementations).
func New(users store.UserStore, subjects store.SubjectStore, questions store.QuestionStore, enrollments store.EnrollmentStore, evaluations EvaluationCascader, opts ...Option) *Service {
	s := &Service{
		users:        users,
		subjects:     subjects,
		questions:    questions,
		enrollments:  enrollments,
		evaluations:  evaluations,
		tx:           tx.NewPassthroughRunner(),
		logger:       slog.Default(),
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) caller(ctx context.Context) (authz.Caller, error) {
	c, ok := requestcontext.Identity(ctx)
	if !ok {
		return authz.Caller{}, dErrors.New(dErrors.CodeUnauthenticated, "authentication required")
	}
	return c, nil
}

// check runs the decision table and records a denial metric when the cell is
// closed.
func (s *Service) check(c authz.Caller, op authz.Operation, e authz.Entity) error {
	if err := authz.Check(c, op, e); err != nil {
		s.incrementPolicyDenial(c, e)
		return err
	}
	return nil
}

func (s *Service) incrementPolicyDenial(c authz.Caller, e authz.Entity) {
	if s.metrics != nil {
		s.metrics.IncrementPolicyDenial(string(c.Role), string(e))
	}
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// readRetry runs a read once more after an Unavailable answer. Reads are
// idempotent, so a single blind retry is safe; writes never retry here.
func (s *Service) readRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	run := func() error {
		opCtx, cancel := s.storeCtx(ctx)
		defer cancel()
		return fn(opCtx)
	}
	err := run()
	if errors.Is(err, sentinel.ErrUnavailable) && ctx.Err() == nil {
		err = run()
	}
	return err
}

// translate maps store sentinels onto coded domain errors. notFound names the
// entity for the NotFound message.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, notFound+" already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.New(dErrors.CodeUnavailable, "store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
}

// asValidation converts constructor invariant violations into validation
// errors for the API response.
func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

func (s *Service) logMutation(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		parsed := useragent.New(ua)
		name, _ := parsed.Browser()
		attributes = append(attributes, "client_os", parsed.OSInfo().Name, "client_browser", name)
	}
	s.logger.InfoContext(ctx, event, attributes...)
}
