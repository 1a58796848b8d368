package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

var (
	admin   = Caller{UserID: 1, Role: domain.RoleAdmin}
	grader  = Caller{UserID: 2, Role: domain.RoleTA}
	student = Caller{UserID: 3, Role: domain.RoleStudent}

	// owned by grader (ta 2) about student (user 3)
	owned = EvaluationFacts{StudentID: 3, TAID: 2}
	// owned by a different TA about a different student
	foreign = EvaluationFacts{StudentID: 7, TAID: 9}
)

// TestEvaluationDecisionTable exercises every (role, operation) pair against
// owned and non-owned targets.
func TestEvaluationDecisionTable(t *testing.T) {
	ops := []Operation{OpCreate, OpRead, OpUpdate, OpDelete, OpList}

	t.Run("admin is unrestricted", func(t *testing.T) {
		for _, op := range ops {
			assert.True(t, Allows(admin, op, EntityEvaluation), "admin %s", op)
		}
		assert.True(t, CanSeeEvaluation(admin, foreign))
		assert.True(t, CanMutateEvaluation(admin, foreign))
	})

	t.Run("ta has every cell open but only own rows", func(t *testing.T) {
		for _, op := range ops {
			assert.True(t, Allows(grader, op, EntityEvaluation), "ta %s", op)
		}
		assert.True(t, CanSeeEvaluation(grader, owned))
		assert.True(t, CanMutateEvaluation(grader, owned))
		assert.False(t, CanSeeEvaluation(grader, foreign))
		assert.False(t, CanMutateEvaluation(grader, foreign))
	})

	t.Run("student reads own rows only and never mutates", func(t *testing.T) {
		assert.True(t, Allows(student, OpRead, EntityEvaluation))
		assert.True(t, Allows(student, OpList, EntityEvaluation))
		assert.False(t, Allows(student, OpCreate, EntityEvaluation))
		assert.False(t, Allows(student, OpUpdate, EntityEvaluation))
		assert.False(t, Allows(student, OpDelete, EntityEvaluation))

		assert.True(t, CanSeeEvaluation(student, owned))
		assert.False(t, CanMutateEvaluation(student, owned), "visible but never mutable")
		assert.False(t, CanSeeEvaluation(student, foreign))
	})
}

func TestRosterDecisionTable(t *testing.T) {
	rosterEntities := []Entity{EntitySubject, EntityQuestion, EntityEnrollment}

	t.Run("admin has full CRUD on roster entities", func(t *testing.T) {
		for _, e := range append(rosterEntities, EntityUser) {
			for _, op := range []Operation{OpCreate, OpRead, OpUpdate, OpDelete, OpList} {
				assert.True(t, Allows(admin, op, e), "admin %s %s", op, e)
			}
		}
	})

	t.Run("ta is read-only on roster entities", func(t *testing.T) {
		for _, e := range append(rosterEntities, EntityUser) {
			assert.True(t, Allows(grader, OpList, e), "ta list %s", e)
			assert.True(t, Allows(grader, OpRead, e), "ta read %s", e)
			for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
				assert.False(t, Allows(grader, op, e), "ta %s %s", op, e)
			}
		}
	})

	t.Run("student is read-only and has no user directory", func(t *testing.T) {
		for _, e := range rosterEntities {
			assert.True(t, Allows(student, OpList, e), "student list %s", e)
			for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
				assert.False(t, Allows(student, op, e), "student %s %s", op, e)
			}
		}
		assert.False(t, Allows(student, OpList, EntityUser))
		assert.False(t, Allows(student, OpRead, EntityUser))
	})
}

func TestCheckReturnsForbidden(t *testing.T) {
	err := Check(student, OpCreate, EntityEvaluation)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.NoError(t, Check(grader, OpCreate, EntityEvaluation))
}

func TestListScopes(t *testing.T) {
	assert.Equal(t, ScopeAll, EvaluationListScope(admin))
	assert.Equal(t, ScopeOwnTA, EvaluationListScope(grader))
	assert.Equal(t, ScopeOwnStudent, EvaluationListScope(student))

	assert.Equal(t, ScopeAll, SubjectListScope(grader), "ta subject visibility is global")
	assert.Equal(t, ScopeEnrolled, SubjectListScope(student))
	assert.Equal(t, ScopeEnrolled, QuestionListScope(student))

	assert.Equal(t, ScopeAll, EnrollmentListScope(grader))
	assert.Equal(t, ScopeOwnStudent, EnrollmentListScope(student))

	unknown := Caller{UserID: 99, Role: domain.Role("ghost")}
	assert.Equal(t, ScopeNone, EvaluationListScope(unknown))
	assert.Equal(t, ScopeNone, SubjectListScope(unknown))
}
