package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	evalmodels "gradegate/internal/evaluation/models"
	evalstore "gradegate/internal/evaluation/store"
	"gradegate/internal/roster/models"
	"gradegate/internal/roster/store"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
	"gradegate/pkg/platform/sentinel"
	"gradegate/pkg/testutil"
)

type RosterServiceSuite struct {
	suite.Suite
	svc         *Service
	users       *store.InMemoryUserStore
	subjects    *store.InMemorySubjectStore
	questions   *store.InMemoryQuestionStore
	enrollments *store.InMemoryEnrollmentStore
	evals       *evalstore.InMemory

	admin   domain.UserID
	grader  domain.UserID
	student domain.UserID
}

func TestRosterServiceSuite(t *testing.T) {
	suite.Run(t, new(RosterServiceSuite))
}

func (s *RosterServiceSuite) SetupTest() {
	s.users = store.NewInMemoryUserStore()
	s.subjects = store.NewInMemorySubjectStore()
	s.questions = store.NewInMemoryQuestionStore()
	s.enrollments = store.NewInMemoryEnrollmentStore()
	s.evals = evalstore.NewInMemory()
	s.svc = New(s.users, s.subjects, s.questions, s.enrollments, s.evals)

	s.admin = s.seedUser("Admin", "admin@example.edu", domain.RoleAdmin)
	s.grader = s.seedUser("Grader", "grader@example.edu", domain.RoleTA)
	s.student = s.seedUser("Student", "student@example.edu", domain.RoleStudent)
}

func (s *RosterServiceSuite) seedUser(name, email string, role domain.Role) domain.UserID {
	u, err := models.NewUser(name, email, role, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(testutil.AsAdmin(1), u))
	return u.ID
}

func (s *RosterServiceSuite) seedSubject(name string) *models.Subject {
	subj, err := s.svc.CreateSubject(testutil.AsAdmin(s.admin), name, "")
	s.Require().NoError(err)
	return subj
}

func (s *RosterServiceSuite) seedQuestion(subjectID domain.SubjectID, text string) *models.Question {
	q, err := s.svc.CreateQuestion(testutil.AsAdmin(s.admin), subjectID, text)
	s.Require().NoError(err)
	return q
}

func (s *RosterServiceSuite) seedEvaluation(studentID domain.UserID, questionID domain.QuestionID, taID domain.UserID) *evalmodels.Evaluation {
	e, err := evalmodels.New(studentID, questionID, taID, domain.MarkingDone, "")
	s.Require().NoError(err)
	s.Require().NoError(s.evals.Create(testutil.AsAdmin(s.admin), e))
	return e
}

// TestUserCRUD verifies admin-only user management.
func (s *RosterServiceSuite) TestUserCRUD() {
	s.Run("creates a user", func() {
		u, err := s.svc.CreateUser(testutil.AsAdmin(s.admin), "New TA", "newta@example.edu", domain.RoleTA)
		s.Require().NoError(err)
		s.False(u.ID.IsZero())
	})

	s.Run("rejects a duplicate email with Conflict", func() {
		_, err := s.svc.CreateUser(testutil.AsAdmin(s.admin), "Dup", "STUDENT@example.edu", domain.RoleStudent)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-admins are forbidden", func() {
		_, err := s.svc.CreateUser(testutil.AsTA(s.grader), "X", "x@example.edu", domain.RoleStudent)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.svc.CreateUser(testutil.AsStudent(s.student), "Y", "y@example.edu", domain.RoleStudent)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("update keeps email uniqueness", func() {
		email := "grader@example.edu"
		_, err := s.svc.UpdateUser(testutil.AsAdmin(s.admin), s.student, UpdateUserParams{Email: &email})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unauthenticated callers are rejected", func() {
		_, err := s.svc.ListUsers(context.Background())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

// TestDirectoryScoping verifies who sees which users.
func (s *RosterServiceSuite) TestDirectoryScoping() {
	s.Run("admin lists everyone", func() {
		all, err := s.svc.ListUsers(testutil.AsAdmin(s.admin))
		s.Require().NoError(err)
		s.Len(all, 3)
	})

	s.Run("ta lists students only", func() {
		got, err := s.svc.ListUsers(testutil.AsTA(s.grader))
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(s.student, got[0].ID)
	})

	s.Run("ta reading a non-student gets NotFound", func() {
		_, err := s.svc.GetUser(testutil.AsTA(s.grader), s.admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("students have no directory", func() {
		_, err := s.svc.ListUsers(testutil.AsStudent(s.student))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.svc.ListStudents(testutil.AsStudent(s.student))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// TestSubjectVisibility verifies enrollment-scoped subject reads.
func (s *RosterServiceSuite) TestSubjectVisibility() {
	enrolled := s.seedSubject("Databases")
	hidden := s.seedSubject("Algorithms")
	_, err := s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.student, enrolled.ID)
	s.Require().NoError(err)

	s.Run("student lists enrolled subjects only", func() {
		got, err := s.svc.ListSubjects(testutil.AsStudent(s.student))
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(enrolled.ID, got[0].ID)
	})

	s.Run("student reading an unenrolled subject gets NotFound", func() {
		_, err := s.svc.GetSubject(testutil.AsStudent(s.student), hidden.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("ta sees every subject", func() {
		got, err := s.svc.ListSubjects(testutil.AsTA(s.grader))
		s.Require().NoError(err)
		s.Len(got, 2)
	})
}

// TestQuestionVisibility verifies enrollment-scoped question reads.
func (s *RosterServiceSuite) TestQuestionVisibility() {
	enrolled := s.seedSubject("Databases")
	hidden := s.seedSubject("Algorithms")
	visible := s.seedQuestion(enrolled.ID, "explain joins")
	invisible := s.seedQuestion(hidden.ID, "prove the bound")
	_, err := s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.student, enrolled.ID)
	s.Require().NoError(err)

	s.Run("student lists questions of enrolled subjects", func() {
		got, err := s.svc.ListQuestions(testutil.AsStudent(s.student), 0)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(visible.ID, got[0].ID)
	})

	s.Run("student reading a hidden question gets NotFound", func() {
		_, err := s.svc.GetQuestion(testutil.AsStudent(s.student), invisible.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admin lists everything", func() {
		got, err := s.svc.ListQuestions(testutil.AsAdmin(s.admin), 0)
		s.Require().NoError(err)
		s.Len(got, 2)
	})
}

// TestEnrollmentRules verifies the admin-only enrollment lifecycle.
func (s *RosterServiceSuite) TestEnrollmentRules() {
	subj := s.seedSubject("Databases")

	s.Run("rejects enrolling a non-student", func() {
		_, err := s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.grader, subj.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate pair is a Conflict", func() {
		_, err := s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.student, subj.ID)
		s.Require().NoError(err)

		_, err = s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.student, subj.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("ta cannot enroll anyone", func() {
		_, err := s.svc.CreateEnrollment(testutil.AsTA(s.grader), s.student, subj.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("student asking about another user's enrollments gets NotFound", func() {
		_, err := s.svc.ListEnrollmentsFor(testutil.AsStudent(s.student), s.grader)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestSubjectCascade verifies deleting a subject removes its questions, their
// evaluations, and its enrollments in one sweep.
func (s *RosterServiceSuite) TestSubjectCascade() {
	subj := s.seedSubject("Databases")
	other := s.seedSubject("Algorithms")
	q1 := s.seedQuestion(subj.ID, "explain joins")
	kept := s.seedQuestion(other.ID, "prove the bound")
	_, err := s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.student, subj.ID)
	s.Require().NoError(err)
	s.seedEvaluation(s.student, q1.ID, s.grader)
	surviving := s.seedEvaluation(s.student, kept.ID, s.grader)

	s.Require().NoError(s.svc.DeleteSubject(testutil.AsAdmin(s.admin), subj.ID))

	questions, err := s.svc.ListQuestions(testutil.AsAdmin(s.admin), 0)
	s.Require().NoError(err)
	s.Require().Len(questions, 1)
	s.Equal(kept.ID, questions[0].ID)

	evals, err := s.evals.List(testutil.AsAdmin(s.admin))
	s.Require().NoError(err)
	s.Require().Len(evals, 1)
	s.Equal(surviving.ID, evals[0].ID)

	enrollments, err := s.svc.ListEnrollments(testutil.AsAdmin(s.admin))
	s.Require().NoError(err)
	s.Empty(enrollments)
}

// TestUserCascade verifies deleting a student or a TA sweeps their dependent
// records.
func (s *RosterServiceSuite) TestUserCascade() {
	subj := s.seedSubject("Databases")
	q := s.seedQuestion(subj.ID, "explain joins")
	other := s.seedUser("Other Student", "other@example.edu", domain.RoleStudent)
	_, err := s.svc.CreateEnrollment(testutil.AsAdmin(s.admin), s.student, subj.ID)
	s.Require().NoError(err)
	s.seedEvaluation(s.student, q.ID, s.grader)
	surviving := s.seedEvaluation(other, q.ID, s.grader)

	s.Run("deleting a student sweeps enrollments and evaluations", func() {
		s.Require().NoError(s.svc.DeleteUser(testutil.AsAdmin(s.admin), s.student))

		evals, err := s.evals.List(testutil.AsAdmin(s.admin))
		s.Require().NoError(err)
		s.Require().Len(evals, 1)
		s.Equal(surviving.ID, evals[0].ID)

		enrollments, err := s.svc.ListEnrollments(testutil.AsAdmin(s.admin))
		s.Require().NoError(err)
		s.Empty(enrollments)
	})

	s.Run("deleting a ta sweeps authored evaluations", func() {
		s.Require().NoError(s.svc.DeleteUser(testutil.AsAdmin(s.admin), s.grader))

		evals, err := s.evals.List(testutil.AsAdmin(s.admin))
		s.Require().NoError(err)
		s.Empty(evals)
	})

	s.Run("admins cannot delete themselves", func() {
		err := s.svc.DeleteUser(testutil.AsAdmin(s.admin), s.admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestRoleChangeKeepsSnapshots verifies demoting a grader leaves historical
// rows untouched.
func (s *RosterServiceSuite) TestRoleChangeKeepsSnapshots() {
	subj := s.seedSubject("Databases")
	q := s.seedQuestion(subj.ID, "explain joins")
	e := s.seedEvaluation(s.student, q.ID, s.grader)

	demoted := domain.RoleStudent
	_, err := s.svc.UpdateUser(testutil.AsAdmin(s.admin), s.grader, UpdateUserParams{Role: &demoted})
	s.Require().NoError(err)

	stored, err := s.evals.FindByID(testutil.AsAdmin(s.admin), e.ID)
	s.Require().NoError(err)
	s.Equal(s.grader, stored.TAID)
}

// flakySubjectStore fails a configurable number of List calls with
// ErrUnavailable and counts the attempts.
type flakySubjectStore struct {
	*store.InMemorySubjectStore
	listFailures int
	listCalls    int
}

func (f *flakySubjectStore) List(ctx context.Context) ([]*models.Subject, error) {
	f.listCalls++
	if f.listFailures > 0 {
		f.listFailures--
		return nil, sentinel.ErrUnavailable
	}
	return f.InMemorySubjectStore.List(ctx)
}

// TestUnavailableReadRetry verifies roster reads retry exactly once on an
// Unavailable store.
func (s *RosterServiceSuite) TestUnavailableReadRetry() {
	s.seedSubject("Databases")

	s.Run("a read failing once succeeds on the retry", func() {
		flaky := &flakySubjectStore{InMemorySubjectStore: s.subjects, listFailures: 1}
		svc := New(s.users, flaky, s.questions, s.enrollments, s.evals)

		subjects, err := svc.ListSubjects(testutil.AsAdmin(s.admin))
		s.Require().NoError(err)
		s.Len(subjects, 1)
		s.Equal(2, flaky.listCalls)
	})

	s.Run("a read failing twice surfaces Unavailable after one retry", func() {
		flaky := &flakySubjectStore{InMemorySubjectStore: s.subjects, listFailures: 2}
		svc := New(s.users, flaky, s.questions, s.enrollments, s.evals)

		_, err := svc.ListSubjects(testutil.AsAdmin(s.admin))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(2, flaky.listCalls)
	})
}
