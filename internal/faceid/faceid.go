// Package faceid turns face images into fixed-length numeric signatures and
// decides whether two signatures belong to the same person.
package faceid

import (
	"errors"
	"math"
)

// Dim is the dimensionality of every signature produced by the extractor.
const Dim = 128

// DefaultTolerance is the maximum Euclidean distance between two signatures
// still considered a match.
const DefaultTolerance = 0.6

var (
	// ErrNoFaceDetected is returned when the image contains no face.
	ErrNoFaceDetected = errors.New("no face found in the image")
	// ErrAmbiguousInput is returned when the image contains more than one
	// face; the engine refuses to guess which one is the subject.
	ErrAmbiguousInput = errors.New("multiple faces found in the image")
	// ErrDimensionMismatch is returned when two signatures of different
	// length are compared. Extractor invariants make this unreachable in
	// practice, but it is checked anyway.
	ErrDimensionMismatch = errors.New("signature dimension mismatch")
	// ErrProcessing wraps an underlying decode or detection failure.
	ErrProcessing = errors.New("face processing failed")
)

// Signature is an ordered fixed-length vector describing one face.
type Signature []float64

// Distance returns the Euclidean distance between two signatures.
func Distance(a, b Signature) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Matches reports whether candidate is within tolerance of known.
// Lower distance means more similar.
func Matches(known, candidate Signature, tolerance float64) (bool, error) {
	dist, err := Distance(known, candidate)
	if err != nil {
		return false, err
	}
	return dist <= tolerance, nil
}

// Enrolled pairs a stored signature with the identifier that owns it.
type Enrolled struct {
	ID        string
	Signature Signature
}

// Identify scans known in order and returns the first record whose signature
// matches the candidate, or nil when nothing matches. The first-encountered
// tie-break is deliberate: there is no similarity ranking, so callers should
// watch the ambiguous flag, which is set when more than one record matched.
func Identify(candidate Signature, known []Enrolled, tolerance float64) (match *Enrolled, ambiguous bool, err error) {
	matched := 0
	for i := range known {
		ok, merr := Matches(known[i].Signature, candidate, tolerance)
		if merr != nil {
			return nil, false, merr
		}
		if ok {
			matched++
			if match == nil {
				match = &known[i]
			}
		}
	}
	return match, matched > 1, nil
}
