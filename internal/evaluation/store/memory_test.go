package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"gradegate/internal/evaluation/models"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
)

type EvaluationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *EvaluationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestEvaluationStoreSuite(t *testing.T) {
	suite.Run(t, new(EvaluationStoreSuite))
}

func (s *EvaluationStoreSuite) grade(studentID domain.UserID, questionID domain.QuestionID, taID domain.UserID, marking domain.Marking) *models.Evaluation {
	e, err := models.New(studentID, questionID, taID, marking, "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, e))
	return e
}

// TestKeyUniqueness verifies (student, question, ta) stays unique through
// creates and updates.
func (s *EvaluationStoreSuite) TestKeyUniqueness() {
	s.Run("rejects duplicate key on create", func() {
		s.grade(1, 10, 2, domain.MarkingDone)

		dup, err := models.New(1, 10, 2, domain.MarkingPartial, "second opinion")
		s.Require().NoError(err)
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("allows same pair graded by another ta", func() {
		s.grade(1, 11, 2, domain.MarkingDone)
		s.grade(1, 11, 3, domain.MarkingNotDone)
	})

	s.Run("rejects update that collides with another row", func() {
		a := s.grade(5, 50, 6, domain.MarkingDone)
		s.grade(5, 51, 6, domain.MarkingDone)

		a.QuestionID = 51
		s.Require().ErrorIs(s.store.Update(s.ctx, a), sentinel.ErrConflict)
	})
}

// TestFindByKey verifies the upsert lookup path.
func (s *EvaluationStoreSuite) TestFindByKey() {
	created := s.grade(1, 10, 2, domain.MarkingPartial)

	found, err := s.store.FindByKey(s.ctx, models.Key{StudentID: 1, QuestionID: 10, TAID: 2})
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)

	_, err = s.store.FindByKey(s.ctx, models.Key{StudentID: 1, QuestionID: 10, TAID: 9})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestUpdates verifies marking and remarks changes persist under the same id.
func (s *EvaluationStoreSuite) TestUpdates() {
	e := s.grade(1, 10, 2, domain.MarkingPartial)

	e.Marking = domain.MarkingDone
	e.Remarks = "fixed on resubmission"
	s.Require().NoError(s.store.Update(s.ctx, e))

	found, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(domain.MarkingDone, found.Marking)
	s.Equal("fixed on resubmission", found.Remarks)
}

// TestListScopes verifies insertion order and per-party filtering.
func (s *EvaluationStoreSuite) TestListScopes() {
	first := s.grade(1, 10, 2, domain.MarkingDone)
	second := s.grade(3, 10, 2, domain.MarkingPartial)
	third := s.grade(1, 11, 4, domain.MarkingNotDone)

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)
	s.Equal(third.ID, all[2].ID)

	byStudent, err := s.store.ListByStudent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(byStudent, 2)
	s.Equal(first.ID, byStudent[0].ID)
	s.Equal(third.ID, byStudent[1].ID)

	byTA, err := s.store.ListByTA(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(byTA, 2)
	s.Equal(first.ID, byTA[0].ID)
	s.Equal(second.ID, byTA[1].ID)
}

// TestCascadeDeletes verifies the hooks the roster service cascades through.
func (s *EvaluationStoreSuite) TestCascadeDeletes() {
	s.Run("by questions", func() {
		s.grade(1, 10, 2, domain.MarkingDone)
		s.grade(3, 11, 2, domain.MarkingDone)
		kept := s.grade(1, 12, 2, domain.MarkingDone)

		s.Require().NoError(s.store.DeleteByQuestions(s.ctx, []domain.QuestionID{10, 11}))

		all, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 1)
		s.Equal(kept.ID, all[0].ID)
	})

	s.Run("by student", func() {
		s.grade(7, 20, 2, domain.MarkingDone)
		s.grade(7, 21, 4, domain.MarkingPartial)

		s.Require().NoError(s.store.DeleteByStudent(s.ctx, 7))

		got, err := s.store.ListByStudent(s.ctx, 7)
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("by ta", func() {
		s.grade(8, 30, 9, domain.MarkingDone)
		s.grade(5, 30, 9, domain.MarkingDone)

		s.Require().NoError(s.store.DeleteByTA(s.ctx, 9))

		got, err := s.store.ListByTA(s.ctx, 9)
		s.Require().NoError(err)
		s.Empty(got)
	})
}
