// Package authz is the single authorization policy for the service. Every
// operation, on every entity, for every role routes through this table; no
// handler or service carries its own role checks beyond calling in here.
//
// The policy is pure: decisions depend only on the caller, the operation, the
// entity kind, and the ownership facts read from the stored record. Callers
// never get to assert ownership through payload fields.
package authz

import (
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/requestcontext"
)

// Caller is the resolved identity a decision is made for.
type Caller = requestcontext.Caller

// Operation is the requested action.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpList   Operation = "list"
)

// Entity is the kind of record the operation targets.
type Entity string

const (
	EntityUser       Entity = "user"
	EntitySubject    Entity = "subject"
	EntityQuestion   Entity = "question"
	EntityEnrollment Entity = "enrollment"
	EntityEvaluation Entity = "evaluation"
)

var readOnly = map[Operation]bool{OpRead: true, OpList: true}

var allOps = map[Operation]bool{
	OpCreate: true, OpRead: true, OpUpdate: true, OpDelete: true, OpList: true,
}

// allowed is the decision table. Ownership constraints (which rows a TA or
// student may actually touch) are applied on top via the predicates below;
// this table only answers whether the (role, operation, entity) cell is open
// at all.
var allowed = map[domain.Role]map[Entity]map[Operation]bool{
	domain.RoleAdmin: {
		EntityUser:       allOps,
		EntitySubject:    allOps,
		EntityQuestion:   allOps,
		EntityEnrollment: allOps,
		EntityEvaluation: allOps,
	},
	domain.RoleTA: {
		EntityUser:       readOnly, // the students directory
		EntitySubject:    readOnly,
		EntityQuestion:   readOnly,
		EntityEnrollment: readOnly,
		EntityEvaluation: allOps, // restricted to own rows by ownership facts
	},
	domain.RoleStudent: {
		EntityUser:       {}, // no directory access; /me is identity, not policy
		EntitySubject:    readOnly,
		EntityQuestion:   readOnly,
		EntityEnrollment: readOnly,
		EntityEvaluation: readOnly,
	},
}

// Allows reports whether the decision table opens the (role, operation,
// entity) cell. It says nothing about which rows — combine with the
// visibility predicates and ownership facts.
func Allows(c Caller, op Operation, e Entity) bool {
	return allowed[c.Role][e][op]
}

// Check is Allows as a terminal decision: a closed cell becomes Forbidden.
func Check(c Caller, op Operation, e Entity) error {
	if !Allows(c, op, e) {
		return dErrors.Newf(dErrors.CodeForbidden, "%s may not %s %s", c.Role, op, e)
	}
	return nil
}

// EvaluationFacts are the ownership facts policy reads off a stored
// evaluation. They always come from the loaded record, never the payload.
type EvaluationFacts struct {
	StudentID domain.UserID
	TAID      domain.UserID
}

// CanSeeEvaluation is the visibility predicate for a single evaluation.
// Services answer NotFound, not Forbidden, when this is false, so record
// existence never leaks across an ownership boundary.
func CanSeeEvaluation(c Caller, f EvaluationFacts) bool {
	switch c.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTA:
		return f.TAID == c.UserID
	case domain.RoleStudent:
		return f.StudentID == c.UserID
	default:
		return false
	}
}

// CanMutateEvaluation reports whether the caller may update or delete the
// evaluation. A student can see its own rows but never mutate them; that gap
// between visible and mutable is what makes the student case Forbidden rather
// than NotFound.
func CanMutateEvaluation(c Caller, f EvaluationFacts) bool {
	switch c.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTA:
		return f.TAID == c.UserID
	default:
		return false
	}
}

// ListScope is the visibility predicate for collections, derived from
// (role, user_id) alone.
type ListScope int

const (
	// ScopeNone: the caller gets nothing (the cell is closed).
	ScopeNone ListScope = iota
	// ScopeAll: unrestricted.
	ScopeAll
	// ScopeOwnTA: rows where ta_id = caller.
	ScopeOwnTA
	// ScopeOwnStudent: rows where student_id/user_id = caller.
	ScopeOwnStudent
	// ScopeEnrolled: rows belonging to subjects the caller is enrolled in.
	ScopeEnrolled
)

// EvaluationListScope scopes List on evaluations.
func EvaluationListScope(c Caller) ListScope {
	switch c.Role {
	case domain.RoleAdmin:
		return ScopeAll
	case domain.RoleTA:
		return ScopeOwnTA
	case domain.RoleStudent:
		return ScopeOwnStudent
	default:
		return ScopeNone
	}
}

// SubjectListScope scopes List on subjects. TA visibility is deliberately
// global, not subject-restricted; see DESIGN.md.
func SubjectListScope(c Caller) ListScope {
	switch c.Role {
	case domain.RoleAdmin, domain.RoleTA:
		return ScopeAll
	case domain.RoleStudent:
		return ScopeEnrolled
	default:
		return ScopeNone
	}
}

// QuestionListScope scopes List on questions.
func QuestionListScope(c Caller) ListScope {
	return SubjectListScope(c)
}

// EnrollmentListScope scopes List on enrollments.
func EnrollmentListScope(c Caller) ListScope {
	switch c.Role {
	case domain.RoleAdmin, domain.RoleTA:
		return ScopeAll
	case domain.RoleStudent:
		return ScopeOwnStudent
	default:
		return ScopeNone
	}
}
