package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		username        TEXT UNIQUE NOT NULL,
		hashed_password TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'teacher'
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL REFERENCES users(id),
		full_name       TEXT NOT NULL,
		passport_serial TEXT UNIQUE NOT NULL,
		jshshir         TEXT NOT NULL,
		phone_number    TEXT
	);

	CREATE TABLE IF NOT EXISTS students (
		id         BIGSERIAL PRIMARY KEY,
		student_id TEXT UNIQUE NOT NULL,
		full_name  TEXT NOT NULL,
		group_id   TEXT NOT NULL DEFAULT '',
		photo_url  TEXT,
		signature  JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tests (
		id          BIGSERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		subject_id  BIGINT REFERENCES subjects(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS questions (
		id             BIGSERIAL PRIMARY KEY,
		test_id        BIGINT NOT NULL REFERENCES tests(id),
		text           TEXT NOT NULL,
		image          TEXT,
		options        JSONB NOT NULL,
		correct_option INT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id         UUID PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id),
		test_id    BIGINT NOT NULL REFERENCES tests(id),
		score      DOUBLE PRECISION NOT NULL,
		taken_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_test ON questions(test_id);
	CREATE INDEX IF NOT EXISTS idx_results_student ON results(student_id);
	CREATE INDEX IF NOT EXISTS idx_results_test ON results(test_id);
	`
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}
