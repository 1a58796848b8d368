package domain

import (
	"fmt"
	"strconv"
)

// Typed identifiers for the core entities. Values are opaque, stable integers
// assigned by the store on creation; zero means "not yet persisted".
//
// Usage: construct via the Parse helpers at trust boundaries (URL params,
// payloads); direct casting bypasses validation.
type (
	UserID       int64
	SubjectID    int64
	QuestionID   int64
	EnrollmentID int64
	EvaluationID int64
)

func (id UserID) IsZero() bool       { return id == 0 }
func (id SubjectID) IsZero() bool    { return id == 0 }
func (id QuestionID) IsZero() bool   { return id == 0 }
func (id EnrollmentID) IsZero() bool { return id == 0 }
func (id EvaluationID) IsZero() bool { return id == 0 }

func (id UserID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id SubjectID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id QuestionID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id EnrollmentID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id EvaluationID) String() string { return strconv.FormatInt(int64(id), 10) }

func parseID(s, kind string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return n, nil
}

// ParseUserID validates and returns a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	n, err := parseID(s, "user")
	return UserID(n), err
}

func ParseSubjectID(s string) (SubjectID, error) {
	n, err := parseID(s, "subject")
	return SubjectID(n), err
}

func ParseQuestionID(s string) (QuestionID, error) {
	n, err := parseID(s, "question")
	return QuestionID(n), err
}

func ParseEnrollmentID(s string) (EnrollmentID, error) {
	n, err := parseID(s, "enrollment")
	return EnrollmentID(n), err
}

func ParseEvaluationID(s string) (EvaluationID, error) {
	n, err := parseID(s, "evaluation")
	return EvaluationID(n), err
}
