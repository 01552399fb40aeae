package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"examgate/internal/shared"
)

// Subject groups tests by discipline.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Question belongs to a test. Options holds at least two labels and
// CorrectOption indexes into them.
type Question struct {
	ID            int64    `json:"id"`
	TestID        int64    `json:"test_id"`
	Text          string   `json:"text"`
	Image         *string  `json:"image,omitempty"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// Test is an ordered collection of questions.
type Test struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	SubjectID   *int64     `json:"subject_id,omitempty"`
	Subject     *Subject   `json:"subject,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Result is one immutable scored submission. Re-takes append new rows.
type Result struct {
	ID          string    `json:"id"`
	StudentID   int64     `json:"-"`
	TestID      int64     `json:"test_id"`
	Score       float64   `json:"score"`
	TakenAt     time.Time `json:"taken_at"`
	StudentName string    `json:"student_name,omitempty"`
	TestTitle   string    `json:"test_title,omitempty"`
}

// Repository persists tests, questions, subjects and results in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const uniqueViolation = "23505"

// CreateTest inserts the test and its questions in one transaction.
func (r *Repository) CreateTest(ctx context.Context, t Test) (Test, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Test{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO tests (title, description, subject_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, t.Title, t.Description, t.SubjectID)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return Test{}, err
	}
	if err := insertQuestions(ctx, tx, t.ID, t.Questions); err != nil {
		return Test{}, err
	}
	if err := tx.Commit(); err != nil {
		return Test{}, err
	}
	return r.GetTest(ctx, t.ID)
}

// UpdateTest replaces the test row and all of its questions. Question ids
// change on every update; callers must not hold on to them.
func (r *Repository) UpdateTest(ctx context.Context, t Test) (Test, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Test{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tests SET title = $2, description = $3, subject_id = $4 WHERE id = $1
	`, t.ID, t.Title, t.Description, t.SubjectID)
	if err != nil {
		return Test{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Test{}, shared.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE test_id = $1`, t.ID); err != nil {
		return Test{}, err
	}
	if err := insertQuestions(ctx, tx, t.ID, t.Questions); err != nil {
		return Test{}, err
	}
	if err := tx.Commit(); err != nil {
		return Test{}, err
	}
	return r.GetTest(ctx, t.ID)
}

func insertQuestions(ctx context.Context, tx *sql.Tx, testID int64, questions []Question) error {
	for _, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (test_id, text, image, options, correct_option)
			VALUES ($1, $2, $3, $4, $5)
		`, testID, q.Text, q.Image, opts, q.CorrectOption); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTest removes a test with its questions and results.
func (r *Repository) DeleteTest(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE test_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE test_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return tx.Commit()
}

// GetTest returns one test with questions in canonical order (ascending
// question id). Scoring relies on this order.
func (r *Repository) GetTest(ctx context.Context, id int64) (Test, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.title, t.description, t.subject_id, t.created_at, s.name
		FROM tests t LEFT JOIN subjects s ON s.id = t.subject_id
		WHERE t.id = $1
	`, id)
	var (
		t           Test
		subjectName sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.SubjectID, &t.CreatedAt, &subjectName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, shared.ErrNotFound
		}
		return Test{}, err
	}
	if t.SubjectID != nil && subjectName.Valid {
		t.Subject = &Subject{ID: *t.SubjectID, Name: subjectName.String}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, test_id, text, image, options, correct_option
		FROM questions WHERE test_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return Test{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			q    Question
			opts []byte
		)
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &q.Image, &opts, &q.CorrectOption); err != nil {
			return Test{}, err
		}
		if err := json.Unmarshal(opts, &q.Options); err != nil {
			return Test{}, err
		}
		t.Questions = append(t.Questions, q)
	}
	return t, rows.Err()
}

// ListTests returns all tests, newest first, without questions loaded.
func (r *Repository) ListTests(ctx context.Context) ([]Test, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.subject_id, t.created_at, s.name
		FROM tests t LEFT JOIN subjects s ON s.id = t.subject_id
		ORDER BY t.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []Test
	for rows.Next() {
		var (
			t           Test
			subjectName sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.SubjectID, &t.CreatedAt, &subjectName); err != nil {
			return nil, err
		}
		if t.SubjectID != nil && subjectName.Valid {
			t.Subject = &Subject{ID: *t.SubjectID, Name: subjectName.String}
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// InsertResult appends one result row. Results are never updated.
func (r *Repository) InsertResult(ctx context.Context, res Result) (Result, error) {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO results (id, student_id, test_id, score)
		VALUES ($1, $2, $3, $4)
		RETURNING taken_at
	`, res.ID, res.StudentID, res.TestID, res.Score)
	if err := row.Scan(&res.TakenAt); err != nil {
		return Result{}, err
	}
	return res, nil
}

// ListResults returns every result with student and test names attached.
func (r *Repository) ListResults(ctx context.Context) ([]Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.student_id, r.test_id, r.score, r.taken_at,
		       COALESCE(st.full_name, 'Unknown'), COALESCE(t.title, 'Unknown')
		FROM results r
		LEFT JOIN students st ON st.id = r.student_id
		LEFT JOIN tests t ON t.id = r.test_id
		ORDER BY r.taken_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

// ListResultsByStudent returns one student's results, newest first.
func (r *Repository) ListResultsByStudent(ctx context.Context, studentID int64) ([]Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.student_id, r.test_id, r.score, r.taken_at,
		       '', COALESCE(t.title, 'Unknown')
		FROM results r
		LEFT JOIN tests t ON t.id = r.test_id
		WHERE r.student_id = $1
		ORDER BY r.taken_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.ID, &res.StudentID, &res.TestID, &res.Score, &res.TakenAt, &res.StudentName, &res.TestTitle); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// CreateSubject inserts a subject; duplicate names are rejected.
func (r *Repository) CreateSubject(ctx context.Context, name string) (Subject, error) {
	var s Subject
	s.Name = name
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id`, name,
	).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Subject{}, shared.ErrDuplicate
		}
		return Subject{}, err
	}
	return s, nil
}

// ListSubjects returns all subjects.
func (r *Repository) ListSubjects(ctx context.Context, limit, offset int) ([]Subject, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM subjects ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// DeleteSubject removes a subject and detaches its tests.
func (r *Repository) DeleteSubject(ctx context.Context, id int64) (Subject, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Subject{}, err
	}
	defer tx.Rollback()

	var s Subject
	err = tx.QueryRowContext(ctx, `SELECT id, name FROM subjects WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, shared.ErrNotFound
		}
		return Subject{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tests SET subject_id = NULL WHERE subject_id = $1`, id); err != nil {
		return Subject{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return Subject{}, err
	}
	return s, tx.Commit()
}
