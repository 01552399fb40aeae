package staff

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"examgate/internal/shared"
)

// User is a staff account authenticated by password.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// Teacher is the profile attached to a teacher user. The passport serial
// doubles as the login username and the JSHSHIR personal number seeds the
// password.
type Teacher struct {
	ID             int64   `json:"id"`
	UserID         int64   `json:"user_id"`
	FullName       string  `json:"full_name"`
	PassportSerial string  `json:"passport_serial"`
	JSHSHIR        string  `json:"jshshir"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
}

// Repository persists staff users and teacher profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const uniqueViolation = "23505"

// CreateUser inserts a staff account.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, hashed_password, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, u.Username, u.PasswordHash, u.Role).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByUsername returns one staff account.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, hashed_password, role FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// StaffExists reports whether the username belongs to a staff account.
func (r *Repository) StaffExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	return exists, err
}

// CreateTeacher inserts a user plus the teacher profile in one transaction.
func (r *Repository) CreateTeacher(ctx context.Context, t Teacher, passwordHash string) (Teacher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, hashed_password, role)
		VALUES ($1, $2, 'teacher')
		RETURNING id
	`, t.PassportSerial, passwordHash).Scan(&t.UserID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Teacher{}, shared.ErrDuplicate
		}
		return Teacher{}, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO teachers (user_id, full_name, passport_serial, jshshir, phone_number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, t.UserID, t.FullName, t.PassportSerial, t.JSHSHIR, t.PhoneNumber).Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Teacher{}, shared.ErrDuplicate
		}
		return Teacher{}, err
	}
	return t, tx.Commit()
}

// GetTeacher returns one teacher profile.
func (r *Repository) GetTeacher(ctx context.Context, id int64) (Teacher, error) {
	var t Teacher
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, passport_serial, jshshir, phone_number
		FROM teachers WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.FullName, &t.PassportSerial, &t.JSHSHIR, &t.PhoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, shared.ErrNotFound
	}
	return t, err
}

// ListTeachers returns all teacher profiles.
func (r *Repository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, full_name, passport_serial, jshshir, phone_number
		FROM teachers ORDER BY full_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.UserID, &t.FullName, &t.PassportSerial, &t.JSHSHIR, &t.PhoneNumber); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// UpdateTeacher writes the profile and keeps the linked user row in step:
// a passport change renames the username, a password hash change replaces
// the stored hash. Either may be empty to leave the user untouched.
func (r *Repository) UpdateTeacher(ctx context.Context, t Teacher, newPasswordHash string) (Teacher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE teachers SET full_name = $2, passport_serial = $3, jshshir = $4, phone_number = $5
		WHERE id = $1
	`, t.ID, t.FullName, t.PassportSerial, t.JSHSHIR, t.PhoneNumber)
	if err != nil {
		return Teacher{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Teacher{}, shared.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET username = $2 WHERE id = $1`, t.UserID, t.PassportSerial); err != nil {
		return Teacher{}, err
	}
	if newPasswordHash != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET hashed_password = $2 WHERE id = $1`, t.UserID, newPasswordHash); err != nil {
			return Teacher{}, err
		}
	}
	return t, tx.Commit()
}

// DeleteTeacher removes the profile and its user account.
func (r *Repository) DeleteTeacher(ctx context.Context, id int64) (Teacher, error) {
	t, err := r.GetTeacher(ctx, id)
	if err != nil {
		return Teacher{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return Teacher{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, t.UserID); err != nil {
		return Teacher{}, err
	}
	return t, tx.Commit()
}
