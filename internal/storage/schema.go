package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup and by integration tests.
//
// The two composite UNIQUE constraints are load-bearing: they serialize
// concurrent enrollment and evaluation creation so a race surfaces as a
// conflict instead of a duplicate row. Foreign keys are plain references; all
// cascade behavior is owned by the service layer inside one transaction, so
// the application stays the single place where deletion policy is spelled out.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	idp_sub     TEXT,
	role        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS users_idp_sub_key ON users (idp_sub) WHERE idp_sub IS NOT NULL;

CREATE TABLE IF NOT EXISTS subjects (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
	id          BIGSERIAL PRIMARY KEY,
	subject_id  BIGINT NOT NULL REFERENCES subjects (id),
	text        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS questions_subject_idx ON questions (subject_id);

CREATE TABLE IF NOT EXISTS enrollments (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users (id),
	subject_id  BIGINT NOT NULL REFERENCES subjects (id),
	UNIQUE (user_id, subject_id)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id          BIGSERIAL PRIMARY KEY,
	student_id  BIGINT NOT NULL REFERENCES users (id),
	question_id BIGINT NOT NULL REFERENCES questions (id),
	ta_id       BIGINT NOT NULL REFERENCES users (id),
	marking     TEXT NOT NULL,
	remarks     TEXT NOT NULL DEFAULT '',
	UNIQUE (student_id, question_id, ta_id)
);
CREATE INDEX IF NOT EXISTS evaluations_student_idx ON evaluations (student_id);
CREATE INDEX IF NOT EXISTS evaluations_ta_idx ON evaluations (ta_id);
`

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
