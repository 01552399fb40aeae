package staff

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"examgate/internal/auth"
	"examgate/internal/shared"
)

// Store is the persistence surface the service needs. *Repository
// implements it; tests substitute an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateTeacher(ctx context.Context, t Teacher, passwordHash string) (Teacher, error)
	GetTeacher(ctx context.Context, id int64) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher, newPasswordHash string) (Teacher, error)
	DeleteTeacher(ctx context.Context, id int64) (Teacher, error)
}

// Service wraps staff account and teacher-record business rules. Password
// hashing is a one-way black box; bcrypt is the current choice.
type Service struct {
	repo Store
}

// NewService constructs a new Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// TeacherInput carries teacher create/update fields. Empty optional fields
// mean "leave unchanged" on update.
type TeacherInput struct {
	FullName       string  `json:"full_name"`
	PassportSerial string  `json:"passport_serial"`
	JSHSHIR        string  `json:"jshshir"`
	PhoneNumber    *string `json:"phone_number"`
	Password       string  `json:"password,omitempty"`
}

// Register creates a staff account. Unknown roles collapse to teacher.
func (s *Service) Register(ctx context.Context, username, password, role string) (User, error) {
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password required", shared.ErrValidation)
	}
	if role != auth.RoleAdmin && role != auth.RoleTeacher {
		role = auth.RoleTeacher
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, User{Username: username, PasswordHash: string(hash), Role: role})
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CreateTeacher creates a teacher profile with its login: the passport
// serial becomes the username and the JSHSHIR the initial password.
func (s *Service) CreateTeacher(ctx context.Context, in TeacherInput) (Teacher, error) {
	if in.FullName == "" || in.PassportSerial == "" || in.JSHSHIR == "" {
		return Teacher{}, fmt.Errorf("%w: full name, passport serial and jshshir required", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.JSHSHIR), bcrypt.DefaultCost)
	if err != nil {
		return Teacher{}, err
	}
	return s.repo.CreateTeacher(ctx, Teacher{
		FullName:       in.FullName,
		PassportSerial: in.PassportSerial,
		JSHSHIR:        in.JSHSHIR,
		PhoneNumber:    in.PhoneNumber,
	}, string(hash))
}

// ListTeachers returns all teacher profiles.
func (s *Service) ListTeachers(ctx context.Context) ([]Teacher, error) {
	return s.repo.ListTeachers(ctx)
}

// UpdateTeacher applies partial updates. A JSHSHIR change re-seeds the
// password unless an explicit password override is supplied.
func (s *Service) UpdateTeacher(ctx context.Context, id int64, in TeacherInput) (Teacher, error) {
	current, err := s.repo.GetTeacher(ctx, id)
	if err != nil {
		return Teacher{}, err
	}

	newPassword := ""
	if in.FullName != "" {
		current.FullName = in.FullName
	}
	if in.PhoneNumber != nil {
		current.PhoneNumber = in.PhoneNumber
	}
	if in.JSHSHIR != "" && in.JSHSHIR != current.JSHSHIR {
		current.JSHSHIR = in.JSHSHIR
		newPassword = in.JSHSHIR
	}
	if in.PassportSerial != "" {
		current.PassportSerial = in.PassportSerial
	}
	if in.Password != "" {
		newPassword = in.Password
	}

	hash := ""
	if newPassword != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return Teacher{}, err
		}
		hash = string(h)
	}
	return s.repo.UpdateTeacher(ctx, current, hash)
}

// DeleteTeacher removes a teacher and its staff account.
func (s *Service) DeleteTeacher(ctx context.Context, id int64) (Teacher, error) {
	return s.repo.DeleteTeacher(ctx, id)
}
