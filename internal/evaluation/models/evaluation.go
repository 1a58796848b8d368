package models

import (
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

// Evaluation records one grader's verdict on one student's answer to one
// question.
//
// Invariants:
//   - student_id references a user whose role was student at write time
//   - ta_id references a user whose role was ta at write time
//   - (student_id, question_id, ta_id) is unique; re-grading by the same
//     grader updates the existing row (upsert), it never duplicates
//
// The role references are snapshots: promoting or demoting a user later does
// not rewrite them.
type Evaluation struct {
	ID         domain.EvaluationID `json:"id"`
	StudentID  domain.UserID       `json:"student_id"`
	QuestionID domain.QuestionID   `json:"question_id"`
	TAID       domain.UserID       `json:"ta_id"`
	Marking    domain.Marking      `json:"marking"`
	Remarks    string              `json:"remarks,omitempty"`
}

func New(studentID domain.UserID, questionID domain.QuestionID, taID domain.UserID, marking domain.Marking, remarks string) (*Evaluation, error) {
	if studentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "evaluation requires a student")
	}
	if questionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "evaluation requires a question")
	}
	if taID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "evaluation requires a grader")
	}
	if !marking.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid marking")
	}
	return &Evaluation{
		StudentID:  studentID,
		QuestionID: questionID,
		TAID:       taID,
		Marking:    marking,
		Remarks:    remarks,
	}, nil
}

// Key is the uniqueness key grading idempotence hinges on.
type Key struct {
	StudentID  domain.UserID
	QuestionID domain.QuestionID
	TAID       domain.UserID
}

func (e *Evaluation) Key() Key {
	return Key{StudentID: e.StudentID, QuestionID: e.QuestionID, TAID: e.TAID}
}
