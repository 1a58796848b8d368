//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gradegate/internal/roster/models"
	"gradegate/internal/roster/store"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
	"gradegate/pkg/testutil/containers"
)

type RosterPostgresSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	users       *store.PostgresUserStore
	subjects    *store.PostgresSubjectStore
	questions   *store.PostgresQuestionStore
	enrollments *store.PostgresEnrollmentStore
}

func TestRosterPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RosterPostgresSuite))
}

func (s *RosterPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.users = store.NewPostgresUserStore(s.postgres.DB)
	s.subjects = store.NewPostgresSubjectStore(s.postgres.DB)
	s.questions = store.NewPostgresQuestionStore(s.postgres.DB)
	s.enrollments = store.NewPostgresEnrollmentStore(s.postgres.DB)
}

func (s *RosterPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"evaluations", "enrollments", "questions", "subjects", "users")
	s.Require().NoError(err)
}

func (s *RosterPostgresSuite) createUser(name, email string, role domain.Role) *models.User {
	u, err := models.NewUser(name, email, role, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *RosterPostgresSuite) createSubject(name string) *models.Subject {
	subj, err := models.NewSubject(name, "")
	s.Require().NoError(err)
	s.Require().NoError(s.subjects.Create(context.Background(), subj))
	return subj
}

// TestUserRoundTrip verifies persistence of the full user shape, including
// the idp_sub binding.
func (s *RosterPostgresSuite) TestUserRoundTrip() {
	ctx := context.Background()
	u := s.createUser("Ada Lovelace", "ada@example.edu", domain.RoleStudent)

	s.Require().NoError(s.users.BindIDPSub(ctx, u.ID, "idp|ada"))

	found, err := s.users.FindByIDPSub(ctx, "idp|ada")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal(domain.RoleStudent, found.Role)

	byEmail, err := s.users.FindByEmail(ctx, "ADA@example.edu")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
}

// TestEmailUniqueViolation verifies the unique index maps to ErrConflict.
func (s *RosterPostgresSuite) TestEmailUniqueViolation() {
	ctx := context.Background()
	s.createUser("One", "dup@example.edu", domain.RoleStudent)

	dup, err := models.NewUser("Two", "Dup@example.edu", domain.RoleStudent, time.Now())
	s.Require().NoError(err)
	s.Require().ErrorIs(s.users.Create(ctx, dup), sentinel.ErrConflict)
}

// TestConcurrentDuplicateEnrollment verifies the (user_id, subject_id)
// constraint under concurrency: exactly one of N racing inserts wins.
func (s *RosterPostgresSuite) TestConcurrentDuplicateEnrollment() {
	ctx := context.Background()
	student := s.createUser("Racer", "racer@example.edu", domain.RoleStudent)
	subj := s.createSubject("Concurrency")

	const goroutines = 20
	var wg sync.WaitGroup
	var created atomic.Int32
	var conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := models.NewEnrollment(student.ID, subj.ID)
			s.Require().NoError(err)
			switch err := s.enrollments.Create(ctx, e); {
			case err == nil:
				created.Add(1)
			case s.ErrorIs(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load(), "exactly one insert should win")
	s.Equal(int32(goroutines-1), conflicts.Load())

	all, err := s.enrollments.ListByUser(ctx, student.ID)
	s.Require().NoError(err)
	s.Len(all, 1)
}

// TestEnrollmentListing verifies both enrollment list queries scan full rows.
func (s *RosterPostgresSuite) TestEnrollmentListing() {
	ctx := context.Background()
	alice := s.createUser("Alice", "alice@example.edu", domain.RoleStudent)
	bob := s.createUser("Bob", "bob@example.edu", domain.RoleStudent)
	subj := s.createSubject("Listing")

	for _, studentID := range []domain.UserID{alice.ID, bob.ID} {
		e, err := models.NewEnrollment(studentID, subj.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.enrollments.Create(ctx, e))
	}

	all, err := s.enrollments.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(alice.ID, all[0].UserID)
	s.Equal(subj.ID, all[0].SubjectID)

	mine, err := s.enrollments.ListByUser(ctx, bob.ID)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(bob.ID, mine[0].UserID)
}

// TestQuestionCascadeHelpers verifies subject-scoped listing and deletion.
func (s *RosterPostgresSuite) TestQuestionCascadeHelpers() {
	ctx := context.Background()
	dbs := s.createSubject("Databases")
	algo := s.createSubject("Algorithms")

	q1, err := models.NewQuestion(dbs.ID, "explain joins")
	s.Require().NoError(err)
	s.Require().NoError(s.questions.Create(ctx, q1))
	q2, err := models.NewQuestion(dbs.ID, "normalize this schema")
	s.Require().NoError(err)
	s.Require().NoError(s.questions.Create(ctx, q2))
	keep, err := models.NewQuestion(algo.ID, "prove the bound")
	s.Require().NoError(err)
	s.Require().NoError(s.questions.Create(ctx, keep))

	scoped, err := s.questions.ListBySubjects(ctx, []domain.SubjectID{dbs.ID})
	s.Require().NoError(err)
	s.Len(scoped, 2)

	removed, err := s.questions.DeleteBySubject(ctx, dbs.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.QuestionID{q1.ID, q2.ID}, removed)

	left, err := s.questions.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(left, 1)
	s.Equal(keep.ID, left[0].ID)
}
