package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
)

// ctxAlive surfaces a caller-cancelled or timed-out context the same way the
// PostgreSQL stores do, so services see one behavior.
func ctxAlive(ctx context.Context) error {
	if ctx.Err() != nil {
		return sentinel.ErrUnavailable
	}
	return nil
}

// InMemoryUserStore is a mutex-guarded map store for unit tests and dev runs.
type InMemoryUserStore struct {
	mu     sync.RWMutex
	users  map[domain.UserID]*models.User
	nextID domain.UserID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[domain.UserID]*models.User), nextID: 1}
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *models.User) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
		if u.IDPSub != "" && existing.IDPSub == u.IDPSub {
			return sentinel.ErrConflict
		}
	}
	u.ID = s.nextID
	s.nextID++
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryUserStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByIDPSub(ctx context.Context, sub string) (*models.User, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.IDPSub != "" && u.IDPSub == sub {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) BindIDPSub(ctx context.Context, id domain.UserID, sub string) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && other.IDPSub == sub {
			return sentinel.ErrConflict
		}
	}
	u.IDPSub = sub
	return nil
}

func (s *InMemoryUserStore) Update(ctx context.Context, u *models.User) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	stored.Name = u.Name
	stored.Email = u.Email
	stored.Role = u.Role
	return nil
}

func (s *InMemoryUserStore) Delete(ctx context.Context, id domain.UserID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *InMemoryUserStore) List(ctx context.Context) ([]*models.User, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryUserStore) ListByRole(ctx context.Context, role domain.Role) ([]*models.User, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// InMemorySubjectStore is a mutex-guarded map store for unit tests and dev runs.
type InMemorySubjectStore struct {
	mu       sync.RWMutex
	subjects map[domain.SubjectID]*models.Subject
	nextID   domain.SubjectID
}

func NewInMemorySubjectStore() *InMemorySubjectStore {
	return &InMemorySubjectStore{subjects: make(map[domain.SubjectID]*models.Subject), nextID: 1}
}

func (s *InMemorySubjectStore) Create(ctx context.Context, sub *models.Subject) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.nextID
	s.nextID++
	cp := *sub
	s.subjects[sub.ID] = &cp
	return nil
}

func (s *InMemorySubjectStore) FindByID(ctx context.Context, id domain.SubjectID) (*models.Subject, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemorySubjectStore) Update(ctx context.Context, sub *models.Subject) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.subjects[sub.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Name = sub.Name
	stored.Description = sub.Description
	return nil
}

func (s *InMemorySubjectStore) Delete(ctx context.Context, id domain.SubjectID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.subjects, id)
	return nil
}

func (s *InMemorySubjectStore) List(ctx context.Context) ([]*models.Subject, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		cp := *sub
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemorySubjectStore) ListByIDs(ctx context.Context, ids []domain.SubjectID) ([]*models.Subject, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[domain.SubjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := all[:0]
	for _, sub := range all {
		if want[sub.ID] {
			out = append(out, sub)
		}
	}
	return out, nil
}

// InMemoryQuestionStore is a mutex-guarded map store for unit tests and dev runs.
type InMemoryQuestionStore struct {
	mu        sync.RWMutex
	questions map[domain.QuestionID]*models.Question
	nextID    domain.QuestionID
}

func NewInMemoryQuestionStore() *InMemoryQuestionStore {
	return &InMemoryQuestionStore{questions: make(map[domain.QuestionID]*models.Question), nextID: 1}
}

func (s *InMemoryQuestionStore) Create(ctx context.Context, q *models.Question) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.nextID
	s.nextID++
	cp := *q
	s.questions[q.ID] = &cp
	return nil
}

func (s *InMemoryQuestionStore) FindByID(ctx context.Context, id domain.QuestionID) (*models.Question, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *InMemoryQuestionStore) Update(ctx context.Context, q *models.Question) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.questions[q.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.SubjectID = q.SubjectID
	stored.Text = q.Text
	return nil
}

func (s *InMemoryQuestionStore) Delete(ctx context.Context, id domain.QuestionID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *InMemoryQuestionStore) List(ctx context.Context) ([]*models.Question, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		cp := *q
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryQuestionStore) ListBySubjects(ctx context.Context, subjectIDs []domain.SubjectID) ([]*models.Question, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[domain.SubjectID]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		want[id] = true
	}
	out := all[:0]
	for _, q := range all {
		if want[q.SubjectID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *InMemoryQuestionStore) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) ([]domain.QuestionID, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []domain.QuestionID
	for id, q := range s.questions {
		if q.SubjectID == subjectID {
			removed = append(removed, id)
			delete(s.questions, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed, nil
}

// InMemoryEnrollmentStore is a mutex-guarded map store for unit tests and dev runs.
type InMemoryEnrollmentStore struct {
	mu          sync.RWMutex
	enrollments map[domain.EnrollmentID]*models.Enrollment
	nextID      domain.EnrollmentID
}

func NewInMemoryEnrollmentStore() *InMemoryEnrollmentStore {
	return &InMemoryEnrollmentStore{enrollments: make(map[domain.EnrollmentID]*models.Enrollment), nextID: 1}
}

func (s *InMemoryEnrollmentStore) Create(ctx context.Context, e *models.Enrollment) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.enrollments {
		if existing.UserID == e.UserID && existing.SubjectID == e.SubjectID {
			return sentinel.ErrConflict
		}
	}
	e.ID = s.nextID
	s.nextID++
	cp := *e
	s.enrollments[e.ID] = &cp
	return nil
}

func (s *InMemoryEnrollmentStore) FindByID(ctx context.Context, id domain.EnrollmentID) (*models.Enrollment, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemoryEnrollmentStore) Delete(ctx context.Context, id domain.EnrollmentID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.enrollments, id)
	return nil
}

func (s *InMemoryEnrollmentStore) List(ctx context.Context) ([]*models.Enrollment, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryEnrollmentStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.Enrollment, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryEnrollmentStore) SubjectIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.SubjectID, error) {
	own, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.SubjectID, 0, len(own))
	for _, e := range own {
		ids = append(ids, e.SubjectID)
	}
	return ids, nil
}

func (s *InMemoryEnrollmentStore) DeleteByUser(ctx context.Context, userID domain.UserID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.enrollments {
		if e.UserID == userID {
			delete(s.enrollments, id)
		}
	}
	return nil
}

func (s *InMemoryEnrollmentStore) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.enrollments {
		if e.SubjectID == subjectID {
			delete(s.enrollments, id)
		}
	}
	return nil
}
