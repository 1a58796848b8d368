package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"gradegate/internal/roster/models"
	"gradegate/internal/storage"
	"gradegate/pkg/domain"
	"gradegate/pkg/platform/sentinel"
	txcontext "gradegate/pkg/platform/tx"
)

// execer resolves the executor for a call: the transaction stashed in context
// by the service's Runner, or the pool.
func execer(ctx context.Context, db *sql.DB) storage.Executor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

func subjectIDs64(ids []domain.SubjectID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// PostgresUserStore persists users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, name, email, COALESCE(idp_sub, ''), role, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IDPSub, &u.Role, &u.CreatedAt); err != nil {
		return nil, storage.MapError(err)
	}
	return &u, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, idp_sub, role, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING id
	`
	err := execer(ctx, s.db).QueryRowContext(ctx, query,
		u.Name, u.Email, u.IDPSub, u.Role, u.CreatedAt).Scan(&u.ID)
	return storage.MapError(err)
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PostgresUserStore) FindByIDPSub(ctx context.Context, sub string) (*models.User, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE idp_sub = $1`, sub)
	return scanUser(row)
}

func (s *PostgresUserStore) BindIDPSub(ctx context.Context, id domain.UserID, sub string) error {
	res, err := execer(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET idp_sub = $2 WHERE id = $1`, id, sub)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresUserStore) Update(ctx context.Context, u *models.User) error {
	res, err := execer(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, role = $4 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Role)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresUserStore) Delete(ctx context.Context, id domain.UserID) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresUserStore) List(ctx context.Context) ([]*models.User, error) {
	return s.listWhere(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func (s *PostgresUserStore) ListByRole(ctx context.Context, role domain.Role) ([]*models.User, error) {
	return s.listWhere(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id`, role)
}

func (s *PostgresUserStore) listWhere(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, storage.MapError(rows.Err())
}

// requireRow turns a zero-row mutation into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresSubjectStore persists subjects in PostgreSQL.
type PostgresSubjectStore struct {
	db *sql.DB
}

func NewPostgresSubjectStore(db *sql.DB) *PostgresSubjectStore {
	return &PostgresSubjectStore{db: db}
}

func (s *PostgresSubjectStore) Create(ctx context.Context, sub *models.Subject) error {
	err := execer(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO subjects (name, description) VALUES ($1, $2) RETURNING id`,
		sub.Name, sub.Description).Scan(&sub.ID)
	return storage.MapError(err)
}

func (s *PostgresSubjectStore) FindByID(ctx context.Context, id domain.SubjectID) (*models.Subject, error) {
	var sub models.Subject
	err := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, description FROM subjects WHERE id = $1`, id).
		Scan(&sub.ID, &sub.Name, &sub.Description)
	if err != nil {
		return nil, storage.MapError(err)
	}
	return &sub, nil
}

func (s *PostgresSubjectStore) Update(ctx context.Context, sub *models.Subject) error {
	res, err := execer(ctx, s.db).ExecContext(ctx,
		`UPDATE subjects SET name = $2, description = $3 WHERE id = $1`,
		sub.ID, sub.Name, sub.Description)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresSubjectStore) Delete(ctx context.Context, id domain.SubjectID) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresSubjectStore) List(ctx context.Context) ([]*models.Subject, error) {
	return s.listWhere(ctx, `SELECT id, name, description FROM subjects ORDER BY id`)
}

func (s *PostgresSubjectStore) ListByIDs(ctx context.Context, ids []domain.SubjectID) ([]*models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listWhere(ctx,
		`SELECT id, name, description FROM subjects WHERE id = ANY($1) ORDER BY id`,
		pq.Array(subjectIDs64(ids)))
}

func (s *PostgresSubjectStore) listWhere(ctx context.Context, query string, args ...any) ([]*models.Subject, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var out []*models.Subject
	for rows.Next() {
		var sub models.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description); err != nil {
			return nil, storage.MapError(err)
		}
		out = append(out, &sub)
	}
	return out, storage.MapError(rows.Err())
}

// PostgresQuestionStore persists questions in PostgreSQL.
type PostgresQuestionStore struct {
	db *sql.DB
}

func NewPostgresQuestionStore(db *sql.DB) *PostgresQuestionStore {
	return &PostgresQuestionStore{db: db}
}

func (s *PostgresQuestionStore) Create(ctx context.Context, q *models.Question) error {
	err := execer(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO questions (subject_id, text) VALUES ($1, $2) RETURNING id`,
		q.SubjectID, q.Text).Scan(&q.ID)
	return storage.MapError(err)
}

func (s *PostgresQuestionStore) FindByID(ctx context.Context, id domain.QuestionID) (*models.Question, error) {
	var q models.Question
	err := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, subject_id, text FROM questions WHERE id = $1`, id).
		Scan(&q.ID, &q.SubjectID, &q.Text)
	if err != nil {
		return nil, storage.MapError(err)
	}
	return &q, nil
}

func (s *PostgresQuestionStore) Update(ctx context.Context, q *models.Question) error {
	res, err := execer(ctx, s.db).ExecContext(ctx,
		`UPDATE questions SET subject_id = $2, text = $3 WHERE id = $1`,
		q.ID, q.SubjectID, q.Text)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresQuestionStore) Delete(ctx context.Context, id domain.QuestionID) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresQuestionStore) List(ctx context.Context) ([]*models.Question, error) {
	return s.listWhere(ctx, `SELECT id, subject_id, text FROM questions ORDER BY id`)
}

func (s *PostgresQuestionStore) ListBySubjects(ctx context.Context, subjectIDs []domain.SubjectID) ([]*models.Question, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	return s.listWhere(ctx,
		`SELECT id, subject_id, text FROM questions WHERE subject_id = ANY($1) ORDER BY id`,
		pq.Array(subjectIDs64(subjectIDs)))
}

func (s *PostgresQuestionStore) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) ([]domain.QuestionID, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`DELETE FROM questions WHERE subject_id = $1 RETURNING id`, subjectID)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var removed []domain.QuestionID
	for rows.Next() {
		var id domain.QuestionID
		if err := rows.Scan(&id); err != nil {
			return nil, storage.MapError(err)
		}
		removed = append(removed, id)
	}
	return removed, storage.MapError(rows.Err())
}

func (s *PostgresQuestionStore) listWhere(ctx context.Context, query string, args ...any) ([]*models.Question, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var out []*models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.Text); err != nil {
			return nil, storage.MapError(err)
		}
		out = append(out, &q)
	}
	return out, storage.MapError(rows.Err())
}

// PostgresEnrollmentStore persists enrollments in PostgreSQL. The composite
// unique constraint on (user_id, subject_id) turns a concurrent duplicate
// create into ErrConflict.
type PostgresEnrollmentStore struct {
	db *sql.DB
}

func NewPostgresEnrollmentStore(db *sql.DB) *PostgresEnrollmentStore {
	return &PostgresEnrollmentStore{db: db}
}

func (s *PostgresEnrollmentStore) Create(ctx context.Context, e *models.Enrollment) error {
	err := execer(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO enrollments (user_id, subject_id) VALUES ($1, $2) RETURNING id`,
		e.UserID, e.SubjectID).Scan(&e.ID)
	return storage.MapError(err)
}

func (s *PostgresEnrollmentStore) FindByID(ctx context.Context, id domain.EnrollmentID) (*models.Enrollment, error) {
	var e models.Enrollment
	err := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, user_id, subject_id FROM enrollments WHERE id = $1`, id).
		Scan(&e.ID, &e.UserID, &e.SubjectID)
	if err != nil {
		return nil, storage.MapError(err)
	}
	return &e, nil
}

func (s *PostgresEnrollmentStore) Delete(ctx context.Context, id domain.EnrollmentID) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return storage.MapError(err)
	}
	return requireRow(res)
}

func (s *PostgresEnrollmentStore) listWhere(ctx context.Context, query string, args ...any) ([]*models.Enrollment, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var out []*models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.SubjectID); err != nil {
			return nil, storage.MapError(err)
		}
		out = append(out, &e)
	}
	return out, storage.MapError(rows.Err())
}

func (s *PostgresEnrollmentStore) List(ctx context.Context) ([]*models.Enrollment, error) {
	return s.listWhere(ctx, `SELECT id, user_id, subject_id FROM enrollments ORDER BY id`)
}

func (s *PostgresEnrollmentStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.Enrollment, error) {
	return s.listWhere(ctx,
		`SELECT id, user_id, subject_id FROM enrollments WHERE user_id = $1 ORDER BY id`, userID)
}

func (s *PostgresEnrollmentStore) SubjectIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.SubjectID, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT subject_id FROM enrollments WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, storage.MapError(err)
	}
	defer rows.Close()
	var out []domain.SubjectID
	for rows.Next() {
		var id domain.SubjectID
		if err := rows.Scan(&id); err != nil {
			return nil, storage.MapError(err)
		}
		out = append(out, id)
	}
	return out, storage.MapError(rows.Err())
}

func (s *PostgresEnrollmentStore) DeleteByUser(ctx context.Context, userID domain.UserID) error {
	_, err := execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM enrollments WHERE user_id = $1`, userID)
	return storage.MapError(err)
}

func (s *PostgresEnrollmentStore) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) error {
	_, err := execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM enrollments WHERE subject_id = $1`, subjectID)
	return storage.MapError(err)
}

var (
	_ UserStore       = (*PostgresUserStore)(nil)
	_ SubjectStore    = (*PostgresSubjectStore)(nil)
	_ QuestionStore   = (*PostgresQuestionStore)(nil)
	_ EnrollmentStore = (*PostgresEnrollmentStore)(nil)

	_ UserStore       = (*InMemoryUserStore)(nil)
	_ SubjectStore    = (*InMemorySubjectStore)(nil)
	_ QuestionStore   = (*InMemoryQuestionStore)(nil)
	_ EnrollmentStore = (*InMemoryEnrollmentStore)(nil)
)
