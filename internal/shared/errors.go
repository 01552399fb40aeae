package shared

import "errors"

// Sentinel errors shared across domain packages. Handlers match these with
// errors.Is to pick a status code; nothing here is process-fatal.
var (
	// ErrNotFound indicates a missing test, student, subject or teacher.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict (student id, username, subject name).
	ErrDuplicate = errors.New("already exists")
	// ErrValidation indicates rejected input, e.g. a correct-option index out of bounds.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates a failed password login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
