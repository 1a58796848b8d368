package models

import (
	"strings"

	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// Question belongs to exactly one subject.
type Question struct {
	ID        domain.QuestionID `json:"id"`
	SubjectID domain.SubjectID  `json:"subject_id"`
	Text      string            `json:"text"`
}

func NewQuestion(subjectID domain.SubjectID, text string) (*Question, error) {
	text = strings.TrimSpace(text)
	if subjectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "question requires a subject")
	}
	if text == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "question text cannot be empty")
	}
	if len(text) > 512 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "question text must be 512 characters or less")
	}
	return &Question{SubjectID: subjectID, Text: text}, nil
}
