package faceid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigOf(vals ...float64) Signature {
	s := make(Signature, Dim)
	copy(s, vals)
	return s
}

func TestDistance(t *testing.T) {
	a := sigOf(0, 0)
	b := sigOf(3, 4)
	dist, err := Distance(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, dist, 1e-9)
}

func TestDistanceDimensionMismatch(t *testing.T) {
	_, err := Distance(Signature{1, 2}, Signature{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Matches(Signature{1}, sigOf(), 0.6)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMatchesReflexive(t *testing.T) {
	s := sigOf(0.12, -0.4, 0.9)
	for _, tol := range []float64{0, 0.1, 0.6, 10} {
		ok, err := Matches(s, s, tol)
		require.NoError(t, err)
		assert.True(t, ok, "signature must match itself at tolerance %g", tol)
	}
}

func TestMatchesThreshold(t *testing.T) {
	known := sigOf(0)
	near := sigOf(0.59)
	exact := sigOf(0.6)
	far := sigOf(0.61)

	ok, err := Matches(known, near, DefaultTolerance)
	require.NoError(t, err)
	assert.True(t, ok)

	// Boundary is inclusive: distance == tolerance still matches.
	ok, err = Matches(known, exact, DefaultTolerance)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(known, far, DefaultTolerance)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdentifyFirstMatchWins(t *testing.T) {
	known := []Enrolled{
		{ID: "s1", Signature: sigOf(5)},
		{ID: "s2", Signature: sigOf(0.1)},
		{ID: "s3", Signature: sigOf(0.2)},
	}

	match, ambiguous, err := Identify(sigOf(0), known, DefaultTolerance)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "s2", match.ID)
	assert.True(t, ambiguous, "s2 and s3 both match, collision must be flagged")
}

func TestIdentifyNoMatch(t *testing.T) {
	known := []Enrolled{{ID: "s1", Signature: sigOf(5)}}
	match, ambiguous, err := Identify(sigOf(0), known, DefaultTolerance)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.False(t, ambiguous)
}

func TestIdentifyEmptySet(t *testing.T) {
	match, ambiguous, err := Identify(sigOf(0), nil, DefaultTolerance)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.False(t, ambiguous)
}

func TestIdentifySingleMatchNotAmbiguous(t *testing.T) {
	known := []Enrolled{
		{ID: "s1", Signature: sigOf(0.05)},
		{ID: "s2", Signature: sigOf(3)},
	}
	match, ambiguous, err := Identify(sigOf(0), known, DefaultTolerance)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "s1", match.ID)
	assert.False(t, ambiguous)
}

func TestDistanceUnchangedInputs(t *testing.T) {
	a := sigOf(1, 2)
	b := sigOf(3, 4)
	aCopy := append(Signature(nil), a...)
	bCopy := append(Signature(nil), b...)

	if _, err := Distance(a, b); err != nil {
		t.Fatalf("Distance returned error: %v", err)
	}
	assert.Equal(t, aCopy, a)
	assert.Equal(t, bCopy, b)
}

func TestDistanceZeroVectors(t *testing.T) {
	dist, err := Distance(sigOf(), sigOf())
	require.NoError(t, err)
	if math.Abs(dist) > 1e-12 {
		t.Fatalf("expected zero distance, got %g", dist)
	}
}
