package domain

import dErrors "gradegate/pkg/domain-errors"

// Role is the access-control role carried by every user.
// Invariant: the value must be one of the supported roles.
//
// A role reference stored on another record (an evaluation's ta_id or
// student_id) is a write-time snapshot; changing a user's role later does not
// rewrite history.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTA      Role = "ta"
	RoleStudent Role = "student"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleTA:      true,
	RoleStudent: true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}
