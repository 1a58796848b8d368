package service

import (
	"context"
	"errors"

	"gradegate/internal/authz"
	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/platform/sentinel"
	"gradegate/pkg/requestcontext"
)

// CreateUser registers a new user. Admin only; the email must be unused.
func (s *Service) CreateUser(ctx context.Context, name, email string, role domain.Role) (*models.User, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpCreate, authz.EntityUser); err != nil {
		return nil, err
	}

	u, err := models.NewUser(name, email, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}

	opCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.users.Create(opCtx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already in use")
		}
		return nil, translate(err, "user")
	}

	s.logMutation(ctx, "user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// GetUser retrieves one user from the directory.
func (s *Service) GetUser(ctx context.Context, id domain.UserID) (*models.User, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpRead, authz.EntityUser); err != nil {
		return nil, err
	}

	var u *models.User
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	// A TA's directory covers students only; other records stay invisible.
	if c.Role == domain.RoleTA && !u.IsStudent() {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return u, nil
}

// ListUsers returns the directory the caller may see: every user for admins,
// the student roster for TAs.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList, authz.EntityUser); err != nil {
		return nil, err
	}

	var users []*models.User
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		if c.Role == domain.RoleTA {
			users, err = s.users.ListByRole(ctx, domain.RoleStudent)
		} else {
			users, err = s.users.List(ctx)
		}
		return err
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	return users, nil
}

// ListStudents returns the student roster. Admins and TAs only; the closed
// policy cell makes this Forbidden for students.
func (s *Service) ListStudents(ctx context.Context) ([]*models.User, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpList, authz.EntityUser); err != nil {
		return nil, err
	}

	var students []*models.User
	err = s.readRetry(ctx, func(ctx context.Context) error {
		var err error
		students, err = s.users.ListByRole(ctx, domain.RoleStudent)
		return err
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	return students, nil
}

// UpdateUserParams carries the mutable user fields; nil means unchanged.
type UpdateUserParams struct {
	Name  *string
	Email *string
	Role  *domain.Role
}

// UpdateUser applies the given changes. Changing the role does not rewrite
// role snapshots on existing evaluations.
func (s *Service) UpdateUser(ctx context.Context, id domain.UserID, params UpdateUserParams) (*models.User, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(c, authz.OpUpdate, authz.EntityUser); err != nil {
		return nil, err
	}

	var updated *models.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		u, err := s.users.FindByID(opCtx, id)
		if err != nil {
			return translate(err, "user")
		}

		if params.Name != nil {
			u.Name = *params.Name
		}
		if params.Email != nil {
			u.Email = *params.Email
		}
		if params.Role != nil {
			u.Role = *params.Role
		}
		// Re-run the constructor checks on the merged state.
		if _, err := models.NewUser(u.Name, u.Email, u.Role, u.CreatedAt); err != nil {
			return asValidation(err)
		}

		if err := s.users.Update(opCtx, u); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "email already in use")
			}
			return translate(err, "user")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "user updated", "user_id", updated.ID)
	return updated, nil
}

// DeleteUser removes a user and, in the same transaction, every record that
// hangs off it: a student's enrollments and received evaluations, a TA's
// authored evaluations.
func (s *Service) DeleteUser(ctx context.Context, id domain.UserID) error {
	c, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := s.check(c, authz.OpDelete, authz.EntityUser); err != nil {
		return err
	}
	if c.UserID == id {
		return dErrors.New(dErrors.CodeValidation, "cannot delete own account")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		opCtx, cancel := s.storeCtx(txCtx)
		defer cancel()

		u, err := s.users.FindByID(opCtx, id)
		if err != nil {
			return translate(err, "user")
		}

		switch {
		case u.IsStudent():
			if err := s.evaluations.DeleteByStudent(opCtx, id); err != nil {
				return translate(err, "evaluation")
			}
			if err := s.enrollments.DeleteByUser(opCtx, id); err != nil {
				return translate(err, "enrollment")
			}
		case u.IsTA():
			if err := s.evaluations.DeleteByTA(opCtx, id); err != nil {
				return translate(err, "evaluation")
			}
		}

		return translate(s.users.Delete(opCtx, id), "user")
	})
	if err != nil {
		return err
	}

	s.logMutation(ctx, "user deleted", "user_id", id)
	return nil
}
