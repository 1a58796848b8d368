package models

import (
	"strings"

	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// Subject owns zero or more questions and is referenced by enrollments.
// Deleting a subject cascades to its questions, their evaluations, and its
// enrollments; the store never holds a question with a dangling subject_id.
type Subject struct {
	ID          domain.SubjectID `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
}

func NewSubject(name, description string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject name must be 128 characters or less")
	}
	if len(description) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject description must be 256 characters or less")
	}
	return &Subject{Name: name, Description: description}, nil
}
