package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	ctx   context.Context
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemoryUserStore()
	s.ctx = context.Background()
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) newUser(name, email string, role domain.Role) *models.User {
	u, err := models.NewUser(name, email, role, time.Now())
	s.Require().NoError(err)
	return u
}

// TestCreationAndLookups verifies the store assigns ids and retrieves users.
func (s *UserStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds user by ID", func() {
		u := s.newUser("Ada", "ada@example.edu", domain.RoleStudent)
		s.Require().NoError(s.store.Create(s.ctx, u))
		s.False(u.ID.IsZero())

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("ada@example.edu", found.Email)
	})

	s.Run("finds user by email case-insensitively", func() {
		u := s.newUser("Grace", "Grace@example.edu", domain.RoleTA)
		s.Require().NoError(s.store.Create(s.ctx, u))

		found, err := s.store.FindByEmail(s.ctx, "grace@EXAMPLE.edu")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, domain.UserID(999))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestEmailUniqueness verifies case-insensitive email uniqueness.
func (s *UserStoreSuite) TestEmailUniqueness() {
	s.Run("rejects duplicate email on create", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("One", "dup@example.edu", domain.RoleStudent)))

		err := s.store.Create(s.ctx, s.newUser("Two", "DUP@example.edu", domain.RoleStudent))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects taking another user's email on update", func() {
		a := s.newUser("A", "a@example.edu", domain.RoleStudent)
		b := s.newUser("B", "b@example.edu", domain.RoleStudent)
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))

		b.Email = "A@example.edu"
		s.Require().ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrConflict)
	})
}

// TestIDPSubBinding verifies first-login subject binding and lookup.
func (s *UserStoreSuite) TestIDPSubBinding() {
	s.Run("binds and finds by subject", func() {
		u := s.newUser("Ada", "ada@example.edu", domain.RoleStudent)
		s.Require().NoError(s.store.Create(s.ctx, u))

		s.Require().NoError(s.store.BindIDPSub(s.ctx, u.ID, "idp|abc123"))

		found, err := s.store.FindByIDPSub(s.ctx, "idp|abc123")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unbound subject", func() {
		_, err := s.store.FindByIDPSub(s.ctx, "idp|nobody")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestListing verifies insertion order and role filtering.
func (s *UserStoreSuite) TestListing() {
	s.Run("lists in insertion order", func() {
		first := s.newUser("First", "first@example.edu", domain.RoleStudent)
		second := s.newUser("Second", "second@example.edu", domain.RoleTA)
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))

		all, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal(first.ID, all[0].ID)
		s.Equal(second.ID, all[1].ID)
	})

	s.Run("filters by role", func() {
		s.store = NewInMemoryUserStore()
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("S", "s@example.edu", domain.RoleStudent)))
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("T", "t@example.edu", domain.RoleTA)))

		tas, err := s.store.ListByRole(s.ctx, domain.RoleTA)
		s.Require().NoError(err)
		s.Require().Len(tas, 1)
		s.Equal("t@example.edu", tas[0].Email)
	})
}

// TestDeletion verifies delete semantics.
func (s *UserStoreSuite) TestDeletion() {
	s.Run("deletes existing user", func() {
		u := s.newUser("Gone", "gone@example.edu", domain.RoleStudent)
		s.Require().NoError(s.store.Create(s.ctx, u))
		s.Require().NoError(s.store.Delete(s.ctx, u.ID))

		_, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for missing user", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, domain.UserID(404)), sentinel.ErrNotFound)
	})
}

type SubjectStoreSuite struct {
	suite.Suite
	store *InMemorySubjectStore
	ctx   context.Context
}

func (s *SubjectStoreSuite) SetupTest() {
	s.store = NewInMemorySubjectStore()
	s.ctx = context.Background()
}

func TestSubjectStoreSuite(t *testing.T) {
	suite.Run(t, new(SubjectStoreSuite))
}

func (s *SubjectStoreSuite) TestCRUD() {
	s.Run("creates, updates and deletes", func() {
		subj, err := models.NewSubject("Databases", "relational systems")
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, subj))

		subj.Description = "relational and distributed systems"
		s.Require().NoError(s.store.Update(s.ctx, subj))

		found, err := s.store.FindByID(s.ctx, subj.ID)
		s.Require().NoError(err)
		s.Equal("relational and distributed systems", found.Description)

		s.Require().NoError(s.store.Delete(s.ctx, subj.ID))
		_, err = s.store.FindByID(s.ctx, subj.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("lists by ids", func() {
		a, _ := models.NewSubject("A", "")
		b, _ := models.NewSubject("B", "")
		c, _ := models.NewSubject("C", "")
		for _, subj := range []*models.Subject{a, b, c} {
			s.Require().NoError(s.store.Create(s.ctx, subj))
		}

		got, err := s.store.ListByIDs(s.ctx, []domain.SubjectID{a.ID, c.ID})
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(a.ID, got[0].ID)
		s.Equal(c.ID, got[1].ID)
	})
}

type QuestionStoreSuite struct {
	suite.Suite
	store *InMemoryQuestionStore
	ctx   context.Context
}

func (s *QuestionStoreSuite) SetupTest() {
	s.store = NewInMemoryQuestionStore()
	s.ctx = context.Background()
}

func TestQuestionStoreSuite(t *testing.T) {
	suite.Run(t, new(QuestionStoreSuite))
}

func (s *QuestionStoreSuite) newQuestion(subjectID domain.SubjectID, text string) *models.Question {
	q, err := models.NewQuestion(subjectID, text)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, q))
	return q
}

func (s *QuestionStoreSuite) TestSubjectScoping() {
	s.Run("lists questions across several subjects", func() {
		q1 := s.newQuestion(1, "explain joins")
		q2 := s.newQuestion(2, "normalize this schema")
		s.newQuestion(3, "unrelated")

		got, err := s.store.ListBySubjects(s.ctx, []domain.SubjectID{1, 2})
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(q1.ID, got[0].ID)
		s.Equal(q2.ID, got[1].ID)
	})

	s.Run("empty subject set yields no questions", func() {
		s.newQuestion(1, "explain joins")

		got, err := s.store.ListBySubjects(s.ctx, nil)
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("deletes by subject and reports removed ids", func() {
		q1 := s.newQuestion(5, "first")
		q2 := s.newQuestion(5, "second")
		keep := s.newQuestion(6, "kept")

		removed, err := s.store.DeleteBySubject(s.ctx, 5)
		s.Require().NoError(err)
		s.ElementsMatch([]domain.QuestionID{q1.ID, q2.ID}, removed)

		_, err = s.store.FindByID(s.ctx, keep.ID)
		s.Require().NoError(err)
	})
}

type EnrollmentStoreSuite struct {
	suite.Suite
	store *InMemoryEnrollmentStore
	ctx   context.Context
}

func (s *EnrollmentStoreSuite) SetupTest() {
	s.store = NewInMemoryEnrollmentStore()
	s.ctx = context.Background()
}

func TestEnrollmentStoreSuite(t *testing.T) {
	suite.Run(t, new(EnrollmentStoreSuite))
}

func (s *EnrollmentStoreSuite) enroll(userID domain.UserID, subjectID domain.SubjectID) *models.Enrollment {
	e, err := models.NewEnrollment(userID, subjectID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, e))
	return e
}

// TestPairUniqueness verifies a student enrolls in a subject at most once.
func (s *EnrollmentStoreSuite) TestPairUniqueness() {
	s.enroll(1, 10)

	dup, err := models.NewEnrollment(1, 10)
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)

	// Same student, different subject is fine.
	s.enroll(1, 11)
}

func (s *EnrollmentStoreSuite) TestSubjectIDsForUser() {
	s.enroll(1, 10)
	s.enroll(1, 11)
	s.enroll(2, 12)

	ids, err := s.store.SubjectIDsForUser(s.ctx, 1)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.SubjectID{10, 11}, ids)
}

func (s *EnrollmentStoreSuite) TestCascadeDeletes() {
	s.Run("deletes by user", func() {
		s.enroll(1, 10)
		s.enroll(1, 11)
		kept := s.enroll(2, 10)

		s.Require().NoError(s.store.DeleteByUser(s.ctx, 1))

		all, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 1)
		s.Equal(kept.ID, all[0].ID)
	})

	s.Run("deletes by subject", func() {
		s.enroll(3, 20)
		s.enroll(4, 20)
		kept := s.enroll(3, 21)

		s.Require().NoError(s.store.DeleteBySubject(s.ctx, 20))

		got, err := s.store.ListByUser(s.ctx, 3)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(kept.ID, got[0].ID)
	})
}
