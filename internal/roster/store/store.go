// Package store persists the roster entities: users, subjects, questions and
// enrollments. Two implementations exist per entity: an in-memory one for
// unit tests and development, and a PostgreSQL one for everything else.
//
// Stores report infrastructure facts as sentinel errors and know nothing
// about roles or visibility; policy lives entirely in the service layer.
// Deletion here removes exactly the addressed rows — cascade ordering is the
// service's job, executed inside one transaction.
package store

import (
	"context"

	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
)

// UserStore persists users. Email uniqueness is case-insensitive; a duplicate
// surfaces as sentinel.ErrConflict.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDPSub(ctx context.Context, sub string) (*models.User, error)
	// BindIDPSub attaches the identity provider subject on first login.
	BindIDPSub(ctx context.Context, id domain.UserID, sub string) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id domain.UserID) error
	List(ctx context.Context) ([]*models.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*models.User, error)
}

// SubjectStore persists subjects.
type SubjectStore interface {
	Create(ctx context.Context, s *models.Subject) error
	FindByID(ctx context.Context, id domain.SubjectID) (*models.Subject, error)
	Update(ctx context.Context, s *models.Subject) error
	Delete(ctx context.Context, id domain.SubjectID) error
	List(ctx context.Context) ([]*models.Subject, error)
	ListByIDs(ctx context.Context, ids []domain.SubjectID) ([]*models.Subject, error)
}

// QuestionStore persists questions.
type QuestionStore interface {
	Create(ctx context.Context, q *models.Question) error
	FindByID(ctx context.Context, id domain.QuestionID) (*models.Question, error)
	Update(ctx context.Context, q *models.Question) error
	Delete(ctx context.Context, id domain.QuestionID) error
	List(ctx context.Context) ([]*models.Question, error)
	ListBySubjects(ctx context.Context, subjectIDs []domain.SubjectID) ([]*models.Question, error)
	// DeleteBySubject removes a subject's questions and returns the removed
	// ids so the caller can cascade to evaluations in the same transaction.
	DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) ([]domain.QuestionID, error)
}

// EnrollmentStore persists enrollments. The (user_id, subject_id) pair is
// unique; a duplicate surfaces as sentinel.ErrConflict.
type EnrollmentStore interface {
	Create(ctx context.Context, e *models.Enrollment) error
	FindByID(ctx context.Context, id domain.EnrollmentID) (*models.Enrollment, error)
	Delete(ctx context.Context, id domain.EnrollmentID) error
	List(ctx context.Context) ([]*models.Enrollment, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*models.Enrollment, error)
	SubjectIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.SubjectID, error)
	DeleteByUser(ctx context.Context, userID domain.UserID) error
	DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) error
}
