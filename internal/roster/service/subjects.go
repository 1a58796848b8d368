package service

import (
	"context"
	"slices"

	"gradegate/internal/authz"
	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// CreateSubject registers a new subject. Admin only.
func (s *Service) CreateSubject(ctx context.Context, name, description string) (*models.Subject, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpCreate, authz.EntitySubject); err != nil {
		return nil, err
	}

	subj, err := models.NewSubject(name, description)
	if err != nil {
		return nil, asValidation(err)
	}

	opCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.subjects.Create(opCtx, subj); err != nil {
		return nil, translate(err, "subject")
	}

	s.logMutation(ctx, "subject created", "subject_id", subj.ID)
	return subj, nil
}

// GetSubject retrieves one subject. Students only see subjects they are
// enrolled in; anything else answers NotFound, never Forbidden.
func (s *Service) GetSubject(ctx context.Context, id domain.SubjectID) (*models.Subject, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpRead, authz.EntitySubject); err != nil {
		return nil, err
	}

	var subj *models.Subject
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		subj, err = s.subjects.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if authz.SubjectListScope(c) == authz.ScopeEnrolled {
			visible, err := s.enrolledIn(ctx, c.UserID, id)
			if err != nil {
				return err
			}
			if !visible {
				subj = nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "subject")
	}
	if subj == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "subject not found")
	}
	return subj, nil
}

// ListSubjects returns the subjects visible to the caller.
func (s *Service) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList, authz.EntitySubject); err != nil {
		return nil, err
	}

	var subjects []*models.Subject
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		if authz.SubjectListScope(c) == authz.ScopeEnrolled {
			ids, err := s.enrollments.SubjectIDsForUser(ctx, c.UserID)
			if err != nil {
				return err
			}
			subjects, err = s.subjects.ListByIDs(ctx, ids)
			return err
		}
		subjects, err = s.subjects.List(ctx)
		return err
	})
	if err != nil {
		return nil, translate(err, "subject")
	}
	return subjects, nil
}

// UpdateSubjectParams carries the mutable subject fields; nil means
// unchanged.
type UpdateSubjectParams struct {
	Name        *string
	Description *string
}

// UpdateSubject applies the given changes. Admin only.
func (s *Service) UpdateSubject(ctx context.Context, id domain.SubjectID, params UpdateSubjectParams) (*models.Subject, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpUpdate, authz.EntitySubject); err != nil {
		return nil, err
	}

	var updated *models.Subject
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		subj, err := s.subjects.FindByID(opCtx, id)
		if err != nil {
			return translate(err, "subject")
		}
		if params.Name != nil {
			subj.Name = *params.Name
		}
		if params.Description != nil {
			subj.Description = *params.Description
		}
		if _, err := models.NewSubject(subj.Name, subj.Description); err != nil {
			return asValidation(err)
		}

		if err := s.subjects.Update(opCtx, subj); err != nil {
			return translate(err, "subject")
		}
		updated = subj
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "subject updated", "subject_id", updated.ID)
	return updated, nil
}

// DeleteSubject removes a subject and cascades, in one transaction, to its
// questions, the evaluations on those questions, and its enrollments.
func (s *Service) DeleteSubject(ctx context.Context, id domain.SubjectID) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := s.check(c, authz.OpDelete, authz.EntitySubject); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		if _, err := s.subjects.FindByID(opCtx, id); err != nil {
			return translate(err, "subject")
		}

		removed, err := s.questions.DeleteBySubject(opCtx, id)
		if err != nil {
			return translate(err, "question")
		}
		if err := s.evaluations.DeleteByQuestions(opCtx, removed); err != nil {
			return translate(err, "evaluation")
		}
		if err := s.enrollments.DeleteBySubject(opCtx, id); err != nil {
			return translate(err, "enrollment")
		}
		return translate(s.subjects.Delete(opCtx, id), "subject")
	})
	if err != nil {
		return err
	}

	s.logMutation(ctx, "subject deleted", "subject_id", id)
	return nil
}

func (s *Service) enrolledIn(ctx context.Context, userID domain.UserID, subjectID domain.SubjectID) (bool, error) {
	ids, err := s.enrollments.SubjectIDsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, subjectID), nil
}
