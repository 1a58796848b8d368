// Package store persists evaluations. The composite unique constraint on
// (student_id, question_id, ta_id) is what makes grading idempotent: the
// service upserts on it, and a concurrent-create race surfaces as
// sentinel.ErrConflict for the service to retry as an update.
package store

import (
	"context"

	"gradegate/internal/evaluation/models"
	"gradegate/pkg/domain"
)

// Store persists evaluations. List results are in insertion order.
type Store interface {
	Create(ctx context.Context, e *models.Evaluation) error
	FindByID(ctx context.Context, id domain.EvaluationID) (*models.Evaluation, error)
	FindByKey(ctx context.Context, key models.Key) (*models.Evaluation, error)
	Update(ctx context.Context, e *models.Evaluation) error
	Delete(ctx context.Context, id domain.EvaluationID) error
	List(ctx context.Context) ([]*models.Evaluation, error)
	ListByStudent(ctx context.Context, studentID domain.UserID) ([]*models.Evaluation, error)
	ListByTA(ctx context.Context, taID domain.UserID) ([]*models.Evaluation, error)

	// Cascade hooks, called by the roster service inside its delete
	// transactions.
	DeleteByQuestions(ctx context.Context, questionIDs []domain.QuestionID) error
	DeleteByStudent(ctx context.Context, studentID domain.UserID) error
	DeleteByTA(ctx context.Context, taID domain.UserID) error
}
