package service

import (
	"context"
	"errors"

	"gradegate/internal/authz"
	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/platform/sentinel"
)

// CreateEnrollment enrolls a student in a subject. Admin only. Only users
// holding the student role can be enrolled, and each (student, subject) pair
// at most once.
func (s *Service) CreateEnrollment(ctx context.Context, userID domain.UserID, subjectID domain.SubjectID) (*models.Enrollment, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpCreate, authz.EntityEnrollment); err != nil {
		return nil, err
	}

	e, err := models.NewEnrollment(userID, subjectID)
	if err != nil {
		return nil, asValidation(err)
	}

	var created *models.Enrollment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		u, err := s.users.FindByID(opCtx, userID)
		if err != nil {
			return translate(err, "user")
		}
		if !u.IsStudent() {
			return dErrors.New(dErrors.CodeValidation, "only students can be enrolled")
		}
		if _, err := s.subjects.FindByID(opCtx, subjectID); err != nil {
			return translate(err, "subject")
		}

		if err := s.enrollments.Create(opCtx, e); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "student is already enrolled in this subject")
			}
			return translate(err, "enrollment")
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "enrollment created", "enrollment_id", created.ID, "user_id", userID, "subject_id", subjectID)
	return created, nil
}

// ListEnrollments returns the enrollments visible to the caller: everything
// for admins and TAs, own rows for students.
func (s *Service) ListEnrollments(ctx context.Context) ([]*models.Enrollment, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList, authz.EntityEnrollment); err != nil {
		return nil, err
	}

	var enrollments []*models.Enrollment
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		if authz.EnrollmentListScope(c) == authz.ScopeOwnStudent {
			enrollments, err = s.enrollments.ListByUser(ctx, c.UserID)
		} else {
			enrollments, err = s.enrollments.List(ctx)
		}
		return err
	})
	if err != nil {
		return nil, translate(err, "enrollment")
	}
	return enrollments, nil
}

// ListEnrollmentsFor returns one user's enrollments. Students may only ask
// about themselves; an off-limits user answers NotFound.
func (s *Service) ListEnrollmentsFor(ctx context.Context, userID domain.UserID) ([]*models.Enrollment, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList, authz.EntityEnrollment); err != nil {
		return nil, err
	}
	if authz.EnrollmentListScope(c) == authz.ScopeOwnStudent && userID != c.UserID {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	var enrollments []*models.Enrollment
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		enrollments, err = s.enrollments.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, translate(err, "enrollment")
	}
	return enrollments, nil
}

// DeleteEnrollment withdraws a student from a subject. Admin only. Existing
// evaluations stay; they record grading that already happened.
func (s *Service) DeleteEnrollment(ctx context.Context, id domain.EnrollmentID) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := s.check(c, authz.OpDelete, authz.EntityEnrollment); err != nil {
		return err
	}

	opCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := translate(s.enrollments.Delete(opCtx, id), "enrollment"); err != nil {
		return err
	}

	s.logMutation(ctx, "enrollment deleted", "enrollment_id", id)
	return nil
}
