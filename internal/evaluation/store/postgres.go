package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"gradegate/internal/evaluation/models"
	"gradegate/internal/storage"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
	txcontext "gradegate/pkg/platform/tx"
)

// Postgres persists evaluations in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) storage.Executor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const evalColumns = `id, student_id, question_id, ta_id, marking, remarks`

func scanEvaluation(row interface{ Scan(...any) error }) (*models.Evaluation, error) {
	var e models.Evaluation
	if err := row.Scan(&e.ID, &e.StudentID, &e.QuestionID, &e.TAID, &e.Marking, &e.Remarks); err != nil {
		return nil, storage.MapError(err)
	}
	return &e, nil
}

func (s *Postgres) Create(ctx context.Context, e *models.Evaluation) error {
	query := `
		INSERT INTO evaluations (student_id, question_id, ta_id, marking, remarks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		e.StudentID, e.QuestionID, e.TAID, e.Marking, e.Remarks).Scan(&e.ID)
	return storage.MapError(err)
}

func (s *Postgres) FindByID(ctx context.Context, id domain.EvaluationID) (*models.Evaluation, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE id = $1`, id)
	return scanEvaluation(row)
}

func (s *Postgres) FindByKey(ctx context.Context, key models.Key) (*models.Evaluation, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+evalColumns+` FROM evaluations
		 WHERE student_id = $1 AND question_id = $2 AND ta_id = $3`,
		key.StudentID, key.QuestionID, key.TAID)
	return scanEvaluation(row)
}

func (s *Postgres) Update(ctx context.Context, e *models.Evaluation) error {
	query := `
		UPDATE evaluations
		SET student_id = $2, question_id = $3, ta_id = $4, marking = $5, remarks = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, e.StudentID, e.QuestionID, e.TAID, e.Marking, e.Remarks)
	if err != nil {
		return storage.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.EvaluationID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return storage.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Evaluation, error) {
	return s.listWhere(ctx, `SELECT `+evalColumns+` FROM evaluations ORDER BY id`)
}

func (s *Postgres) ListByStudent(ctx context.Context, studentID domain.UserID) ([]*models.Evaluation, error) {
	return s.listWhere(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE student_id = $1 ORDER BY id`, studentID)
}

func (s *Postgres) ListByTA(ctx context.Context, taID domain.UserID) ([]*models.Evaluation, error) {
	return s.listWhere(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE ta_id = $1 ORDER BY id`, taID)
}

func (s *Postgres) DeleteByQuestions(ctx context.Context, questionIDs []domain.QuestionID) error {
	if len(questionIDs) == 0 {
		return nil
	}
	ids := make([]int64, len(questionIDs))
	for i, id := range questionIDs {
		ids[i] = int64(id)
	}
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM evaluations WHERE question_id = ANY($1)`, pq.Array(ids))
	return storage.MapError(err)
}

func (s *Postgres) DeleteByStudent(ctx context.Context, studentID domain.UserID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM evaluations WHERE student_id = $1`, studentID)
	return storage.MapError(err)
}

func (s *Postgres) DeleteByTA(ctx context.Context, taID domain.UserID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM evaluations WHERE ta_id = $1`, taID)
	return storage.MapError(err)
}

func (s *Postgres) listWhere(ctx context.Context, query string, args ...any) ([]*models.Evaluation, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var out []*models.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, storage.MapError(rows.Err())
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*InMemory)(nil)
)
