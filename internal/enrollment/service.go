package enrollment

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"examgate/internal/faceid"
)

// ErrNotRecognized is returned when a face matches no enrolled student, or
// does not match the claimed one.
var ErrNotRecognized = errors.New("student not recognized")

// ErrNoEnrolledFace is returned when a student record exists but carries no
// face signature.
var ErrNoEnrolledFace = errors.New("student has no registered face data")

// identifyAmbiguous counts identification calls where more than one enrolled
// signature matched the candidate. The first-match policy is kept, but the
// collisions should not go unnoticed.
var identifyAmbiguous = promauto.NewCounter(prometheus.CounterOpts{
	Name: "faceid_identify_ambiguous_total",
	Help: "Identification calls where multiple enrolled faces matched the candidate.",
})

// Store is the persistence surface the service needs. *Repository
// implements it; tests substitute an in-memory fake.
type Store interface {
	Insert(ctx context.Context, s Student) (Student, error)
	GetByStudentID(ctx context.Context, studentID string) (Student, error)
	List(ctx context.Context, limit, offset int) ([]Student, error)
	Signatures(ctx context.Context) ([]faceid.Enrolled, error)
	SetPhotoURL(ctx context.Context, studentID, url string) error
}

// Service coordinates face enrollment, identification and re-verification.
type Service struct {
	repo      Store
	extractor faceid.Extractor
	tolerance float64
}

// NewService creates a service backed by a repository and an extractor.
func NewService(repo Store, extractor faceid.Extractor, tolerance float64) *Service {
	if tolerance <= 0 {
		tolerance = faceid.DefaultTolerance
	}
	return &Service{repo: repo, extractor: extractor, tolerance: tolerance}
}

// Tolerance returns the configured match tolerance.
func (s *Service) Tolerance() float64 { return s.tolerance }

// Enroll extracts the signature from the enrollment image (which must show
// exactly one face) and creates the student record.
func (s *Service) Enroll(ctx context.Context, fullName, studentID, groupID string, image []byte) (Student, error) {
	sig, err := s.extractor.Extract(image)
	if err != nil {
		return Student{}, err
	}
	return s.repo.Insert(ctx, Student{
		StudentID: studentID,
		FullName:  fullName,
		GroupID:   groupID,
		Signature: sig,
	})
}

// Identify extracts a signature from the image and scans every enrolled
// signature for a match. The first enrolled record wins.
func (s *Service) Identify(ctx context.Context, image []byte) (Student, error) {
	candidate, err := s.extractor.Extract(image)
	if err != nil {
		return Student{}, err
	}
	known, err := s.repo.Signatures(ctx)
	if err != nil {
		return Student{}, err
	}
	match, ambiguous, err := faceid.Identify(candidate, known, s.tolerance)
	if err != nil {
		return Student{}, err
	}
	if ambiguous {
		identifyAmbiguous.Inc()
	}
	if match == nil {
		return Student{}, ErrNotRecognized
	}
	return s.repo.GetByStudentID(ctx, match.ID)
}

// Verify checks the image against one specific student's stored signature.
func (s *Service) Verify(ctx context.Context, studentID string, image []byte) (Student, error) {
	student, err := s.repo.GetByStudentID(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	if student.Signature == nil {
		return Student{}, ErrNoEnrolledFace
	}
	candidate, err := s.extractor.Extract(image)
	if err != nil {
		return Student{}, err
	}
	ok, err := faceid.Matches(student.Signature, candidate, s.tolerance)
	if err != nil {
		return Student{}, err
	}
	if !ok {
		return Student{}, ErrNotRecognized
	}
	return student, nil
}

// Get returns one student by external id.
func (s *Service) Get(ctx context.Context, studentID string) (Student, error) {
	return s.repo.GetByStudentID(ctx, studentID)
}

// List returns enrolled students.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Student, error) {
	return s.repo.List(ctx, limit, offset)
}

// AttachPhoto records the stored photo URL for a student.
func (s *Service) AttachPhoto(ctx context.Context, studentID, url string) error {
	return s.repo.SetPhotoURL(ctx, studentID, url)
}
