package enrollment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"examgate/internal/faceid"
	"examgate/internal/shared"
)

// Student is an enrolled student. Signature is nil until a face has been
// enrolled; once written it is only ever replaced whole.
type Student struct {
	ID        int64            `json:"id"`
	StudentID string           `json:"student_id"`
	FullName  string           `json:"full_name"`
	GroupID   string           `json:"group_id"`
	PhotoURL  *string          `json:"photo_url,omitempty"`
	Signature faceid.Signature `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const uniqueViolation = "23505"

// Insert writes a new student with their face signature.
func (r *Repository) Insert(ctx context.Context, s Student) (Student, error) {
	sig, err := marshalSignature(s.Signature)
	if err != nil {
		return Student{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (student_id, full_name, group_id, photo_url, signature)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.StudentID, s.FullName, s.GroupID, s.PhotoURL, sig)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Student{}, shared.ErrDuplicate
		}
		return Student{}, err
	}
	return s, nil
}

// GetByStudentID returns one student by their external identifier.
func (r *Repository) GetByStudentID(ctx context.Context, studentID string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, full_name, group_id, photo_url, signature, created_at
		FROM students WHERE student_id = $1
	`, studentID)
	return scanStudent(row)
}

// List returns students ordered by external id.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Student, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, full_name, group_id, photo_url, signature, created_at
		FROM students ORDER BY student_id LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Signatures returns all enrolled signatures keyed by external student id,
// ordered by database id. The order is load-bearing: identification resolves
// ties by first-encountered record.
func (r *Repository) Signatures(ctx context.Context) ([]faceid.Enrolled, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, signature
		FROM students
		WHERE signature IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var known []faceid.Enrolled
	for rows.Next() {
		var (
			e   faceid.Enrolled
			raw []byte
		)
		if err := rows.Scan(&e.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Signature); err != nil {
			return nil, err
		}
		known = append(known, e)
	}
	return known, rows.Err()
}

// StudentExists reports whether the external id is enrolled.
func (r *Repository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1)`, studentID,
	).Scan(&exists)
	return exists, err
}

// SetPhotoURL records where the enrollment photo was stored.
func (r *Repository) SetPhotoURL(ctx context.Context, studentID, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE students SET photo_url = $2 WHERE student_id = $1`, studentID, url)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (Student, error) {
	var (
		s   Student
		raw []byte
	)
	if err := row.Scan(&s.ID, &s.StudentID, &s.FullName, &s.GroupID, &s.PhotoURL, &raw, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, shared.ErrNotFound
		}
		return Student{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Signature); err != nil {
			return Student{}, err
		}
	}
	return s, nil
}

func marshalSignature(sig faceid.Signature) (any, error) {
	if sig == nil {
		return nil, nil
	}
	return json.Marshal(sig)
}
