package httptransport

import (
	"github.com/asaskevich/govalidator"

	dErrors "gradegate/pkg/domain-errors"
)

// Payload shape checks live here; domain rules (enum values, reference
// integrity) belong to the models and services.

type loginRequest struct {
	Assertion string `json:"assertion"`
}

func (r loginRequest) validate() error {
	if !govalidator.StringLength(r.Assertion, "1", "8192") {
		return dErrors.New(dErrors.CodeValidation, "assertion is required")
	}
	return nil
}

type bootstrapRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r bootstrapRequest) validate() error {
	if !govalidator.StringLength(r.Name, "1", "128") {
		return dErrors.New(dErrors.CodeValidation, "name must be between 1 and 128 characters")
	}
	if !govalidator.IsEmail(r.Email) || !govalidator.StringLength(r.Email, "1", "256") {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	return nil
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r createUserRequest) validate() error {
	if !govalidator.StringLength(r.Name, "1", "128") {
		return dErrors.New(dErrors.CodeValidation, "name must be between 1 and 128 characters")
	}
	if !govalidator.IsEmail(r.Email) || !govalidator.StringLength(r.Email, "1", "256") {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	return nil
}

type updateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

func (r updateUserRequest) validate() error {
	if r.Name != nil && !govalidator.StringLength(*r.Name, "1", "128") {
		return dErrors.New(dErrors.CodeValidation, "name must be between 1 and 128 characters")
	}
	if r.Email != nil && (!govalidator.IsEmail(*r.Email) || !govalidator.StringLength(*r.Email, "1", "256")) {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	return nil
}

type createSubjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r createSubjectRequest) validate() error {
	if !govalidator.StringLength(r.Name, "1", "128") {
		return dErrors.New(dErrors.CodeValidation, "name must be between 1 and 128 characters")
	}
	if len(r.Description) > 256 {
		return dErrors.New(dErrors.CodeValidation, "description must be 256 characters or less")
	}
	return nil
}

type updateSubjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r updateSubjectRequest) validate() error {
	if r.Name != nil && !govalidator.StringLength(*r.Name, "1", "128") {
		return dErrors.New(dErrors.CodeValidation, "name must be between 1 and 128 characters")
	}
	if r.Description != nil && len(*r.Description) > 256 {
		return dErrors.New(dErrors.CodeValidation, "description must be 256 characters or less")
	}
	return nil
}

type createQuestionRequest struct {
	SubjectID int64  `json:"subject_id"`
	Text      string `json:"text"`
}

func (r createQuestionRequest) validate() error {
	if r.SubjectID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if !govalidator.StringLength(r.Text, "1", "512") {
		return dErrors.New(dErrors.CodeValidation, "text must be between 1 and 512 characters")
	}
	return nil
}

type updateQuestionRequest struct {
	Text string `json:"text"`
}

func (r updateQuestionRequest) validate() error {
	if !govalidator.StringLength(r.Text, "1", "512") {
		return dErrors.New(dErrors.CodeValidation, "text must be between 1 and 512 characters")
	}
	return nil
}

type createEnrollmentRequest struct {
	UserID    int64 `json:"user_id"`
	SubjectID int64 `json:"subject_id"`
}

func (r createEnrollmentRequest) validate() error {
	if r.UserID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if r.SubjectID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	return nil
}

type createEvaluationRequest struct {
	StudentID  int64  `json:"student_id"`
	QuestionID int64  `json:"question_id"`
	TAID       int64  `json:"ta_id,omitempty"`
	Marking    string `json:"marking"`
	Remarks    string `json:"remarks,omitempty"`
}

func (r createEvaluationRequest) validate() error {
	if r.StudentID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "student_id is required")
	}
	if r.QuestionID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "question_id is required")
	}
	if !govalidator.StringLength(r.Marking, "1", "32") {
		return dErrors.New(dErrors.CodeValidation, "marking is required")
	}
	if len(r.Remarks) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "remarks must be 1024 characters or less")
	}
	return nil
}

type updateEvaluationRequest struct {
	Marking *string `json:"marking,omitempty"`
	Remarks *string `json:"remarks,omitempty"`
	TAID    *int64  `json:"ta_id,omitempty"`
}

func (r updateEvaluationRequest) validate() error {
	if r.Marking != nil && !govalidator.StringLength(*r.Marking, "1", "32") {
		return dErrors.New(dErrors.CodeValidation, "marking cannot be empty")
	}
	if r.Remarks != nil && len(*r.Remarks) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "remarks must be 1024 characters or less")
	}
	return nil
}
