// Package httptransport is the thin HTTP layer: it decodes payloads, shapes
// the per-role URL space, and delegates everything else to the services. No
// business rule lives here; the authorization policy inside the services is
// authoritative even when a route group is already role-gated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	evalservice "gradegate/internal/evaluation/service"
	"gradegate/internal/platform/middleware"
	rostermodels "gradegate/internal/roster/models"
	rosterservice "gradegate/internal/roster/service"
	"gradegate/pkg/domain"

	evalmodels "gradegate/internal/evaluation/models"
)

// RosterService is the roster surface the transport needs.
type RosterService interface {
	CreateUser(ctx context.Context, name, email string, role domain.Role) (*rostermodels.User, error)
	GetUser(ctx context.Context, id domain.UserID) (*rostermodels.User, error)
	ListUsers(ctx context.Context) ([]*rostermodels.User, error)
	ListStudents(ctx context.Context) ([]*rostermodels.User, error)
	UpdateUser(ctx context.Context, id domain.UserID, params rosterservice.UpdateUserParams) (*rostermodels.User, error)
	DeleteUser(ctx context.Context, id domain.UserID) error

	CreateSubject(ctx context.Context, name, description string) (*rostermodels.Subject, error)
	GetSubject(ctx context.Context, id domain.SubjectID) (*rostermodels.Subject, error)
	ListSubjects(ctx context.Context) ([]*rostermodels.Subject, error)
	UpdateSubject(ctx context.Context, id domain.SubjectID, params rosterservice.UpdateSubjectParams) (*rostermodels.Subject, error)
	DeleteSubject(ctx context.Context, id domain.SubjectID) error

	CreateQuestion(ctx context.Context, subjectID domain.SubjectID, text string) (*rostermodels.Question, error)
	GetQuestion(ctx context.Context, id domain.QuestionID) (*rostermodels.Question, error)
	ListQuestions(ctx context.Context, subjectID domain.SubjectID) ([]*rostermodels.Question, error)
	UpdateQuestion(ctx context.Context, id domain.QuestionID, text string) (*rostermodels.Question, error)
	DeleteQuestion(ctx context.Context, id domain.QuestionID) error

	CreateEnrollment(ctx context.Context, userID domain.UserID, subjectID domain.SubjectID) (*rostermodels.Enrollment, error)
	ListEnrollments(ctx context.Context) ([]*rostermodels.Enrollment, error)
	ListEnrollmentsFor(ctx context.Context, userID domain.UserID) ([]*rostermodels.Enrollment, error)
	DeleteEnrollment(ctx context.Context, id domain.EnrollmentID) error
}

// EvaluationService is the grading surface the transport needs.
type EvaluationService interface {
	List(ctx context.Context) ([]*evalmodels.Evaluation, error)
	Get(ctx context.Context, id domain.EvaluationID) (*evalmodels.Evaluation, error)
	Create(ctx context.Context, params evalservice.CreateParams) (*evalmodels.Evaluation, error)
	Update(ctx context.Context, id domain.EvaluationID, params evalservice.UpdateParams) (*evalmodels.Evaluation, error)
	Delete(ctx context.Context, id domain.EvaluationID) error
}

// IdentityService is the auth surface the transport needs.
type IdentityService interface {
	Login(ctx context.Context, assertion string) (string, *rostermodels.User, error)
	Logout(ctx context.Context, rawToken string) error
	BootstrapAdmin(ctx context.Context, name, email string) (*rostermodels.User, error)
}

// Handler holds the wired services and produces the router.
type Handler struct {
	roster             RosterService
	evaluations        EvaluationService
	identity           IdentityService
	resolver           middleware.CallerResolver
	logger             *slog.Logger
	bootstrapTokenHash string
}

type HandlerOption func(h *Handler)

// WithBootstrapTokenHash enables the bootstrap endpoint, guarded by the given
// bcrypt hash.
func WithBootstrapTokenHash(hash string) HandlerOption {
	return func(h *Handler) { h.bootstrapTokenHash = hash }
}

func NewHandler(roster RosterService, evaluations EvaluationService, identity IdentityService, resolver middleware.CallerResolver, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		roster:      roster,
		evaluations: evaluations,
		identity:    identity,
		resolver:    resolver,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router wires all routes. The role middleware on the groups shapes the URL
// space per role; visibility and ownership decisions stay in the services.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))

	r.Get("/healthz", h.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/bootstrap", h.handleBootstrap)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.resolver, h.logger))

			r.Post("/auth/logout", h.handleLogout)
			r.Get("/me", h.handleMe)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))

				r.Post("/users", h.handleCreateUser)
				r.Get("/users", h.handleListUsers)
				r.Get("/users/{id}", h.handleGetUser)
				r.Put("/users/{id}", h.handleUpdateUser)
				r.Delete("/users/{id}", h.handleDeleteUser)

				r.Post("/subjects", h.handleCreateSubject)
				r.Get("/subjects", h.handleListSubjects)
				r.Get("/subjects/{id}", h.handleGetSubject)
				r.Put("/subjects/{id}", h.handleUpdateSubject)
				r.Delete("/subjects/{id}", h.handleDeleteSubject)

				r.Post("/questions", h.handleCreateQuestion)
				r.Get("/questions", h.handleListQuestions)
				r.Get("/questions/{id}", h.handleGetQuestion)
				r.Put("/questions/{id}", h.handleUpdateQuestion)
				r.Delete("/questions/{id}", h.handleDeleteQuestion)

				r.Post("/enrollments", h.handleCreateEnrollment)
				r.Get("/enrollments", h.handleListEnrollments)
				r.Delete("/enrollments/{id}", h.handleDeleteEnrollment)

				r.Post("/evaluations", h.handleCreateEvaluation)
				r.Get("/evaluations", h.handleListEvaluations)
				r.Get("/evaluations/{id}", h.handleGetEvaluation)
				r.Put("/evaluations/{id}", h.handleUpdateEvaluation)
				r.Delete("/evaluations/{id}", h.handleDeleteEvaluation)
			})

			r.Route("/ta", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleTA))

				r.Get("/students", h.handleListStudents)
				r.Get("/subjects", h.handleListSubjects)
				r.Get("/subjects/{id}", h.handleGetSubject)
				r.Get("/questions", h.handleListQuestions)
				r.Get("/questions/{id}", h.handleGetQuestion)
				r.Get("/enrollments", h.handleListEnrollments)

				r.Post("/evaluations", h.handleCreateEvaluation)
				r.Get("/evaluations", h.handleListEvaluations)
				r.Get("/evaluations/{id}", h.handleGetEvaluation)
				r.Put("/evaluations/{id}", h.handleUpdateEvaluation)
				r.Delete("/evaluations/{id}", h.handleDeleteEvaluation)
			})

			r.Route("/student", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleStudent))

				r.Get("/subjects", h.handleListSubjects)
				r.Get("/subjects/{id}", h.handleGetSubject)
				r.Get("/questions", h.handleListQuestions)
				r.Get("/questions/{id}", h.handleGetQuestion)
				r.Get("/enrollments", h.handleListEnrollments)
				r.Get("/evaluations", h.handleListEvaluations)
				r.Get("/evaluations/{id}", h.handleGetEvaluation)
			})
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
