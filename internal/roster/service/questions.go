package service

import (
	"context"

	"gradegate/internal/authz"
	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// CreateQuestion adds a question to an existing subject. Admin only.
func (s *Service) CreateQuestion(ctx context.Context, subjectID domain.SubjectID, text string) (*models.Question, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpCreate, authz.EntityQuestion); err != nil {
		return nil, err
	}

	q, err := models.NewQuestion(subjectID, text)
	if err != nil {
		return nil, asValidation(err)
	}

	opCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.subjects.FindByID(opCtx, subjectID); err != nil {
		return nil, translate(err, "subject")
	}
	if err := s.questions.Create(opCtx, q); err != nil {
		return nil, translate(err, "question")
	}

	s.logMutation(ctx, "question created", "question_id", q.ID, "subject_id", q.SubjectID)
	return q, nil
}

// GetQuestion retrieves one question. Students only see questions of subjects
// they are enrolled in.
func (s *Service) GetQuestion(ctx context.Context, id domain.QuestionID) (*models.Question, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpRead, authz.EntityQuestion); err != nil {
		return nil, err
	}

	var q *models.Question
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.questions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if authz.QuestionListScope(c) == authz.ScopeEnrolled {
			visible, err := s.enrolledIn(ctx, c.UserID, q.SubjectID)
			if err != nil {
				return err
			}
			if !visible {
				q = nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "question")
	}
	if q == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "question not found")
	}
	return q, nil
}

// ListQuestions returns the questions visible to the caller, optionally
// restricted to one subject.
func (s *Service) ListQuestions(ctx context.Context, subjectID domain.SubjectID) ([]*models.Question, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList, authz.EntityQuestion); err != nil {
		return nil, err
	}

	var questions []*models.Question
	err = s.readRetry(ctx, func(ctx context.Context) error {
		scope := []domain.SubjectID{}
		if authz.QuestionListScope(c) == authz.ScopeEnrolled {
			enrolled, err := s.enrollments.SubjectIDsForUser(ctx, c.UserID)
			if err != nil {
				return err
			}
			scope = enrolled
			if !subjectID.IsZero() {
				visible, err := s.enrolledIn(ctx, c.UserID, subjectID)
				if err != nil {
					return err
				}
				if !visible {
					questions = nil
					return nil
				}
				scope = []domain.SubjectID{subjectID}
			}
		} else if !subjectID.IsZero() {
			scope = []domain.SubjectID{subjectID}
		} else {
			var err error
			questions, err = s.questions.List(ctx)
			return err
		}
		var err error
		questions, err = s.questions.ListBySubjects(ctx, scope)
		return err
	})
	if err != nil {
		return nil, translate(err, "question")
	}
	return questions, nil
}

// UpdateQuestion rewrites a question's text. Admin only. Moving a question to
// another subject is not supported; delete and recreate instead.
func (s *Service) UpdateQuestion(ctx context.Context, id domain.QuestionID, text string) (*models.Question, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpUpdate, authz.EntityQuestion); err != nil {
		return nil, err
	}

	var updated *models.Question
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		q, err := s.questions.FindByID(opCtx, id)
		if err != nil {
			return translate(err, "question")
		}
		q.Text = text
		if _, err := models.NewQuestion(q.SubjectID, q.Text); err != nil {
			return asValidation(err)
		}

		if err := s.questions.Update(opCtx, q); err != nil {
			return translate(err, "question")
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "question updated", "question_id", updated.ID)
	return updated, nil
}

// DeleteQuestion removes a question and, in the same transaction, every
// evaluation recorded against it.
func (s *Service) DeleteQuestion(ctx context.Context, id domain.QuestionID) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := s.check(c, authz.OpDelete, authz.EntityQuestion); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		if _, err := s.questions.FindByID(opCtx, id); err != nil {
			return translate(err, "question")
		}
		if err := s.evaluations.DeleteByQuestions(opCtx, []domain.QuestionID{id}); err != nil {
			return translate(err, "evaluation")
		}
		return translate(s.questions.Delete(opCtx, id), "question")
	})
	if err != nil {
		return err
	}

	s.logMutation(ctx, "question deleted", "question_id", id)
	return nil
}
