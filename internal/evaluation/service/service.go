// Package service orchestrates grading. Create is an upsert on the
// (student_id, question_id, ta_id) key, so re-grading by the same grader is
// idempotent; single-row reads answer NotFound rather than Forbidden when the
// row exists outside the caller's visibility.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gradegate/internal/authz"
	"gradegate/internal/evaluation/models"
	"gradegate/internal/evaluation/store"
	"gradegate/internal/platform/metrics"
	rostermodels "gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/platform/sentinel"
	"gradegate/pkg/platform/tx"
	"gradegate/pkg/requestcontext"
)

// UserDirectory is the slice of the user store needed to validate role
// snapshots at write time.
type UserDirectory interface {
	FindByID(ctx context.Context, id domain.UserID) (*rostermodels.User, error)
}

// QuestionDirectory is the slice of the question store needed to validate the
// question reference.
type QuestionDirectory interface {
	FindByID(ctx context.Context, id domain.QuestionID) (*rostermodels.Question, error)
}

// Service orchestrates evaluation reads and grading mutations.
type Service struct {
	evals        store.Store
	users        UserDirectory
	questions    QuestionDirectory
	tx           tx.Runner
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
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
func New(evals store.Store, users UserDirectory, questions QuestionDirectory, opts ...Option) *Service {
	s := &Service{
		evals:        evals,
		users:        users,
		questions:    questions,
		tx:           tx.NewPassthroughRunner(),
		logger:       slog.Default(),
		tracer:       otel.Tracer("gradegate/evaluation"),
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the evaluations visible to the caller: all rows for admins,
// authored rows for TAs, received rows for students. Insertion order.
func (s *Service) List(ctx context.Context) ([]*models.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.List")
	defer span.End()

	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList); err != nil {
		return nil, err
	}

	var evals []*models.Evaluation
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		switch authz.EvaluationListScope(c) {
		case authz.ScopeOwnTA:
			evals, err = s.evals.ListByTA(ctx, c.UserID)
		case authz.ScopeOwnStudent:
			evals, err = s.evals.ListByStudent(ctx, c.UserID)
		default:
			evals, err = s.evals.List(ctx)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, translate(err)
	}
	return evals, nil
}

// Get returns one evaluation. Rows outside the caller's visibility answer
// NotFound, never Forbidden, so existence does not leak.
func (s *Service) Get(ctx context.Context, id domain.EvaluationID) (*models.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.Get")
	defer span.End()

	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpRead); err != nil {
		return nil, err
	}

	var e *models.Evaluation
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.evals.FindByID(ctx, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, translate(err)
	}
	if !authz.CanSeeEvaluation(c, facts(e)) {
		return nil, notFound()
	}
	return e, nil
}

// CreateParams carries a grading request. TAID is ignored for TA callers
// (always the caller) and required for admin callers.
type CreateParams struct {
	StudentID  domain.UserID
	QuestionID domain.QuestionID
	TAID       domain.UserID
	Marking    domain.Marking
	Remarks    string
}

// Create records a grading verdict. If the grader has already marked this
// (student, question) pair the existing row is updated in place; the id is
// stable across re-grades. A uniqueness race on the composite key is retried
// once as an update.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.Create")
	defer span.End()

	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpCreate); err != nil {
		return nil, err
	}

	// The grader identity is never taken from a TA's payload.
	taID := params.TAID
	if c.Role == domain.RoleTA {
		taID = c.UserID
	} else if taID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "ta_id is required")
	}

	candidate, err := models.New(params.StudentID, params.QuestionID, taID, params.Marking, params.Remarks)
	if err != nil {
		return nil, asValidation(err)
	}

	var result *models.Evaluation
	var upserted bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		if err := s.validateReferences(opCtx, candidate); err != nil {
			return err
		}

		existing, err := s.evals.FindByKey(opCtx, candidate.Key())
		switch {
		case err == nil:
			existing.Marking = candidate.Marking
			existing.Remarks = candidate.Remarks
			if err := s.evals.Update(opCtx, existing); err != nil {
				return translate(err)
			}
			result, upserted = existing, true
			return nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return translate(err)
		}

		if err := s.evals.Create(opCtx, candidate); err == nil {
			result = candidate
			return nil
		} else if !errors.Is(err, sentinel.ErrConflict) {
			return translate(err)
		}

		// Lost the create race: the row exists now, so grade it in place.
		existing, err = s.evals.FindByKey(opCtx, candidate.Key())
		if err != nil {
			return translate(err)
		}
		existing.Marking = candidate.Marking
		existing.Remarks = candidate.Remarks
		if err := s.evals.Update(opCtx, existing); err != nil {
			return translate(err)
		}
		result, upserted = existing, true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if upserted {
		s.incrementUpsert()
	} else {
		s.incrementGraded()
	}
	s.logger.InfoContext(ctx, "evaluation recorded",
		"evaluation_id", result.ID, "student_id", result.StudentID,
		"question_id", result.QuestionID, "ta_id", result.TAID,
		"marking", result.Marking, "upsert", upserted,
		"request_id", requestcontext.RequestID(ctx))
	return result, nil
}

// UpdateParams carries the mutable evaluation fields; nil means unchanged.
// TAID is ignored for TA callers.
type UpdateParams struct {
	Marking *domain.Marking
	Remarks *string
	TAID    *domain.UserID
}

// Update edits an existing evaluation. Invisible rows answer NotFound;
// visible but immutable rows (a student's own) answer Forbidden.
func (s *Service) Update(ctx context.Context, id domain.EvaluationID, params UpdateParams) (*models.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.Update")
	defer span.End()

	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	var updated *models.Evaluation
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		e, err := s.evals.FindByID(opCtx, id)
		if err != nil {
			return translate(err)
		}
		if !authz.CanSeeEvaluation(c, facts(e)) {
			return notFound()
		}
		if !authz.CanMutateEvaluation(c, facts(e)) {
			s.incrementPolicyDenial(c)
			return dErrors.New(dErrors.CodeForbidden, "evaluation is read-only for this caller")
		}

		if params.Marking != nil {
			e.Marking = *params.Marking
		}
		if params.Remarks != nil {
			e.Remarks = *params.Remarks
		}
		if params.TAID != nil && c.Role == domain.RoleAdmin {
			e.TAID = *params.TAID
			// Only a fresh grader reference is re-validated; existing
			// snapshots stay valid even after a role change.
			if err := s.requireTA(opCtx, e.TAID); err != nil {
				return err
			}
		}
		if _, err := models.New(e.StudentID, e.QuestionID, e.TAID, e.Marking, e.Remarks); err != nil {
			return asValidation(err)
		}

		if err := s.evals.Update(opCtx, e); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "this grader has already marked the pair")
			}
			return translate(err)
		}
		updated = e
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "evaluation updated",
		"evaluation_id", updated.ID, "request_id", requestcontext.RequestID(ctx))
	return updated, nil
}

// Delete removes an evaluation, with the same visibility-before-denial
// ordering as Update. Hard delete.
func (s *Service) Delete(ctx context.Context, id domain.EvaluationID) error {
	ctx, span := s.tracer.Start(ctx, "evaluation.Delete")
	defer span.End()

	c, err := s.caller(ctx)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		e, err := s.evals.FindByID(opCtx, id)
		if err != nil {
			return translate(err)
		}
		if !authz.CanSeeEvaluation(c, facts(e)) {
			return notFound()
		}
		if !authz.CanMutateEvaluation(c, facts(e)) {
			s.incrementPolicyDenial(c)
			return dErrors.New(dErrors.CodeForbidden, "evaluation is read-only for this caller")
		}
		return translate(s.evals.Delete(opCtx, id))
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.logger.InfoContext(ctx, "evaluation deleted",
		"evaluation_id", id, "request_id", requestcontext.RequestID(ctx))
	return nil
}

// validateReferences checks the role snapshots the row is about to record:
// the student reference must be a student, the grader a TA, and the question
// must exist.
func (s *Service) validateReferences(ctx context.Context, e *models.Evaluation) error {
	student, err := s.users.FindByID(ctx, e.StudentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "student_id does not reference a known user")
		}
		return translate(err)
	}
	if !student.IsStudent() {
		return dErrors.New(dErrors.CodeValidation, "student_id must reference a student")
	}

	if err := s.requireTA(ctx, e.TAID); err != nil {
		return err
	}

	if _, err := s.questions.FindByID(ctx, e.QuestionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "question_id does not reference a known question")
		}
		return translate(err)
	}
	return nil
}

func (s *Service) requireTA(ctx context.Context, id domain.UserID) error {
	grader, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "ta_id does not reference a known user")
		}
		return translate(err)
	}
	if !grader.IsTA() {
		return dErrors.New(dErrors.CodeValidation, "ta_id must reference a ta")
	}
	return nil
}

func (s *Service) caller(ctx context.Context) (authz.Caller, error) {
	c, ok := requestcontext.Identity(ctx)
	if !ok {
		return authz.Caller{}, dErrors.New(dErrors.CodeUnauthenticated, "authentication required")
	}
	return c, nil
}

func (s *Service) check(c authz.Caller, op authz.Operation) error {
	if err := authz.Check(c, op, authz.EntityEvaluation); err != nil {
		s.incrementPolicyDenial(c)
		return err
	}
	return nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// readRetry runs a read once more after an Unavailable answer. Reads are
// idempotent; writes never retry here.
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

func facts(e *models.Evaluation) authz.EvaluationFacts {
	return authz.EvaluationFacts{StudentID: e.StudentID, TAID: e.TAID}
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "evaluation not found")
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return notFound()
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "evaluation already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.New(dErrors.CodeUnavailable, "store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
}

func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

func (s *Service) incrementGraded() {
	if s.metrics != nil {
		s.metrics.EvaluationsGraded.Inc()
	}
}

func (s *Service) incrementUpsert() {
	if s.metrics != nil {
		s.metrics.EvaluationUpserts.Inc()
	}
}

func (s *Service) incrementPolicyDenial(c authz.Caller) {
	if s.metrics != nil {
		s.metrics.IncrementPolicyDenial(string(c.Role), string(authz.EntityEvaluation))
	}
}
