package models

import (
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// Enrollment ties a student to a subject. Unique on (user_id, subject_id):
// a student enrolls in a subject at most once. It defines which questions the
// student may see and be evaluated on.
type Enrollment struct {
	ID        domain.EnrollmentID `json:"id"`
	UserID    domain.UserID       `json:"user_id"`
	SubjectID domain.SubjectID    `json:"subject_id"`
}

func NewEnrollment(userID domain.UserID, subjectID domain.SubjectID) (*Enrollment, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment requires a user")
	}
	if subjectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment requires a subject")
	}
	return &Enrollment{UserID: userID, SubjectID: subjectID}, nil
}
