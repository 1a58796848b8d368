package store

import (
	"context"
	"sort"
	"sync"

	"gradegate/internal/evaluation/models"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store for unit tests and dev runs.
type InMemory struct {
	mu     sync.RWMutex
	evals  map[domain.EvaluationID]*models.Evaluation
	byKey  map[models.Key]domain.EvaluationID
	nextID domain.EvaluationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		evals:  make(map[domain.EvaluationID]*models.Evaluation),
		byKey:  make(map[models.Key]domain.EvaluationID),
		nextID: 1,
	}
}

func ctxAlive(ctx context.Context) error {
	if ctx.Err() != nil {
		return sentinel.ErrUnavailable
	}
	return nil
}

func (s *InMemory) Create(ctx context.Context, e *models.Evaluation) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byKey[e.Key()]; exists {
		return sentinel.ErrConflict
	}
	e.ID = s.nextID
	s.nextID++
	cp := *e
	s.evals[e.ID] = &cp
	s.byKey[e.Key()] = e.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.EvaluationID) (*models.Evaluation, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evals[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemory) FindByKey(ctx context.Context, key models.Key) (*models.Evaluation, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.evals[id]
	return &cp, nil
}

func (s *InMemory) Update(ctx context.Context, e *models.Evaluation) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.evals[e.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if otherID, exists := s.byKey[e.Key()]; exists && otherID != e.ID {
		return sentinel.ErrConflict
	}
	delete(s.byKey, stored.Key())
	stored.StudentID = e.StudentID
	stored.QuestionID = e.QuestionID
	stored.TAID = e.TAID
	stored.Marking = e.Marking
	stored.Remarks = e.Remarks
	s.byKey[stored.Key()] = stored.ID
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id domain.EvaluationID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evals[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byKey, e.Key())
	delete(s.evals, id)
	return nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Evaluation, error) {
	if err := ctxAlive(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Evaluation, 0, len(s.evals))
	for _, e := range s.evals {
		cp := *e
		out = append(out, &cp)
	}
	// Insertion order: ids are assigned monotonically.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) ListByStudent(ctx context.Context, studentID domain.UserID) ([]*models.Evaluation, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemory) ListByTA(ctx context.Context, taID domain.UserID) ([]*models.Evaluation, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.TAID == taID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemory) DeleteByQuestions(ctx context.Context, questionIDs []domain.QuestionID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	want := make(map[domain.QuestionID]bool, len(questionIDs))
	for _, id := range questionIDs {
		want[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.evals {
		if want[e.QuestionID] {
			delete(s.byKey, e.Key())
			delete(s.evals, id)
		}
	}
	return nil
}

func (s *InMemory) DeleteByStudent(ctx context.Context, studentID domain.UserID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.evals {
		if e.StudentID == studentID {
			delete(s.byKey, e.Key())
			delete(s.evals, id)
		}
	}
	return nil
}

func (s *InMemory) DeleteByTA(ctx context.Context, taID domain.UserID) error {
	if err := ctxAlive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.evals {
		if e.TAID == taID {
			delete(s.byKey, e.Key())
			delete(s.evals, id)
		}
	}
	return nil
}
