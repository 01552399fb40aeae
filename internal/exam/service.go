package exam

import (
	"context"
	"fmt"

	"examgate/internal/shared"
)

// Store is the persistence surface the service needs. *Repository
// implements it; tests substitute an in-memory fake.
type Store interface {
	CreateTest(ctx context.Context, t Test) (Test, error)
	UpdateTest(ctx context.Context, t Test) (Test, error)
	DeleteTest(ctx context.Context, id int64) error
	GetTest(ctx context.Context, id int64) (Test, error)
	ListTests(ctx context.Context) ([]Test, error)
	InsertResult(ctx context.Context, res Result) (Result, error)
	ListResults(ctx context.Context) ([]Result, error)
	ListResultsByStudent(ctx context.Context, studentID int64) ([]Result, error)
	CreateSubject(ctx context.Context, name string) (Subject, error)
	ListSubjects(ctx context.Context, limit, offset int) ([]Subject, error)
	DeleteSubject(ctx context.Context, id int64) (Subject, error)
}

// Service applies test validation and scoring rules on top of the repository.
type Service struct {
	repo          Store
	strictAnswers bool
}

// NewService creates a service. strictAnswers rejects submissions whose
// answer count differs from the question count instead of scoring the
// overlapping prefix.
func NewService(repo Store, strictAnswers bool) *Service {
	return &Service{repo: repo, strictAnswers: strictAnswers}
}

// validateQuestions checks each question. An empty list is legal: such a
// test exists, and every submission against it scores 0.
func validateQuestions(questions []Question) error {
	for _, q := range questions {
		if q.Text == "" {
			return fmt.Errorf("%w: question text required", shared.ErrValidation)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least 2 options", shared.ErrValidation, q.Text)
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("%w: correct option index %d is out of bounds for question %q",
				shared.ErrValidation, q.CorrectOption, q.Text)
		}
	}
	return nil
}

// CreateTest validates and stores a new test.
func (s *Service) CreateTest(ctx context.Context, t Test) (Test, error) {
	if t.Title == "" {
		return Test{}, fmt.Errorf("%w: title required", shared.ErrValidation)
	}
	if err := validateQuestions(t.Questions); err != nil {
		return Test{}, err
	}
	return s.repo.CreateTest(ctx, t)
}

// UpdateTest validates and replaces a test with its questions.
func (s *Service) UpdateTest(ctx context.Context, t Test) (Test, error) {
	if t.Title == "" {
		return Test{}, fmt.Errorf("%w: title required", shared.ErrValidation)
	}
	if err := validateQuestions(t.Questions); err != nil {
		return Test{}, err
	}
	return s.repo.UpdateTest(ctx, t)
}

// DeleteTest removes a test.
func (s *Service) DeleteTest(ctx context.Context, id int64) error {
	return s.repo.DeleteTest(ctx, id)
}

// GetTest returns a test with questions in canonical order.
func (s *Service) GetTest(ctx context.Context, id int64) (Test, error) {
	return s.repo.GetTest(ctx, id)
}

// ListTests returns all tests.
func (s *Service) ListTests(ctx context.Context) ([]Test, error) {
	return s.repo.ListTests(ctx)
}

// Submit scores a student's answers against the test and appends one
// immutable result row. Concurrent re-takes are allowed and all recorded.
func (s *Service) Submit(ctx context.Context, studentDBID, testID int64, answers []int) (Result, error) {
	t, err := s.repo.GetTest(ctx, testID)
	if err != nil {
		return Result{}, err
	}
	if s.strictAnswers && len(answers) != len(t.Questions) {
		return Result{}, fmt.Errorf("%w: expected %d answers, got %d",
			shared.ErrValidation, len(t.Questions), len(answers))
	}
	score := Score(t.Questions, answers)
	return s.repo.InsertResult(ctx, Result{
		StudentID: studentDBID,
		TestID:    testID,
		Score:     score,
	})
}

// AllResults returns every recorded result.
func (s *Service) AllResults(ctx context.Context) ([]Result, error) {
	return s.repo.ListResults(ctx)
}

// ResultsFor returns one student's results.
func (s *Service) ResultsFor(ctx context.Context, studentDBID int64) ([]Result, error) {
	return s.repo.ListResultsByStudent(ctx, studentDBID)
}

// CreateSubject stores a new subject.
func (s *Service) CreateSubject(ctx context.Context, name string) (Subject, error) {
	if name == "" {
		return Subject{}, fmt.Errorf("%w: subject name required", shared.ErrValidation)
	}
	return s.repo.CreateSubject(ctx, name)
}

// ListSubjects returns subjects.
func (s *Service) ListSubjects(ctx context.Context, limit, offset int) ([]Subject, error) {
	return s.repo.ListSubjects(ctx, limit, offset)
}

// DeleteSubject removes a subject.
func (s *Service) DeleteSubject(ctx context.Context, id int64) (Subject, error) {
	return s.repo.DeleteSubject(ctx, id)
}
