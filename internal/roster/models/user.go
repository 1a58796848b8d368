package models

import (
	"strings"
	"time"

	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// User is a person known to the system: an admin, a TA, or a student.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Email is non-empty, at most 256 characters, unique case-insensitively
//   - Role is one of the supported roles
//
// Role changes do not rewrite ta_id/student_id snapshots on existing
// evaluations; those reference the role the user held at write time.
//
// IDPSub is the external identity provider's subject, bound on first login.
// It never appears in API responses.
type User struct {
	ID        domain.UserID `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	IDPSub    string        `json:"-"`
	Role      domain.Role   `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewUser(name, email string, role domain.Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user name must be 128 characters or less")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email cannot be empty")
	}
	if len(email) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email must be 256 characters or less")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid user role")
	}
	return &User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
	}, nil
}

func (u *User) IsStudent() bool { return u.Role == domain.RoleStudent }
func (u *User) IsTA() bool      { return u.Role == domain.RoleTA }
func (u *User) IsAdmin() bool   { return u.Role == domain.RoleAdmin }
