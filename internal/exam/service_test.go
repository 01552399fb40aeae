package exam

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgate/internal/shared"
)

// fakeStore keeps everything in maps, enough to drive the service rules.
type fakeStore struct {
	nextID   int64
	tests    map[int64]Test
	results  []Result
	subjects map[int64]Subject
}

func newFakeStore() *fakeStore {
	return &fakeStore{tests: map[int64]Test{}, subjects: map[int64]Subject{}}
}

func (f *fakeStore) CreateTest(_ context.Context, t Test) (Test, error) {
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	f.tests[t.ID] = t
	return t, nil
}

func (f *fakeStore) UpdateTest(_ context.Context, t Test) (Test, error) {
	if _, ok := f.tests[t.ID]; !ok {
		return Test{}, shared.ErrNotFound
	}
	f.tests[t.ID] = t
	return t, nil
}

func (f *fakeStore) DeleteTest(_ context.Context, id int64) error {
	if _, ok := f.tests[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.tests, id)
	return nil
}

func (f *fakeStore) GetTest(_ context.Context, id int64) (Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return Test{}, shared.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTests(_ context.Context) ([]Test, error) {
	out := make([]Test, 0, len(f.tests))
	for _, t := range f.tests {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) InsertResult(_ context.Context, res Result) (Result, error) {
	res.ID = uuid.NewString()
	res.TakenAt = time.Now()
	f.results = append(f.results, res)
	return res, nil
}

func (f *fakeStore) ListResults(_ context.Context) ([]Result, error) {
	return f.results, nil
}

func (f *fakeStore) ListResultsByStudent(_ context.Context, studentID int64) ([]Result, error) {
	var out []Result
	for _, r := range f.results {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateSubject(_ context.Context, name string) (Subject, error) {
	for _, s := range f.subjects {
		if s.Name == name {
			return Subject{}, shared.ErrDuplicate
		}
	}
	f.nextID++
	s := Subject{ID: f.nextID, Name: name}
	f.subjects[s.ID] = s
	return s, nil
}

func (f *fakeStore) ListSubjects(_ context.Context, _, _ int) ([]Subject, error) {
	out := make([]Subject, 0, len(f.subjects))
	for _, s := range f.subjects {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) DeleteSubject(_ context.Context, id int64) (Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return Subject{}, shared.ErrNotFound
	}
	delete(f.subjects, id)
	return s, nil
}

func seedTest(t *testing.T, svc *Service, correct ...int) Test {
	t.Helper()
	created, err := svc.CreateTest(context.Background(), Test{
		Title:     "midterm",
		Questions: questionsFor(correct...),
	})
	require.NoError(t, err)
	return created
}

func TestCreateTestValidation(t *testing.T) {
	svc := NewService(newFakeStore(), false)
	ctx := context.Background()

	cases := []struct {
		name string
		test Test
	}{
		{"missing title", Test{Questions: questionsFor(0)}},
		{"empty question text", Test{Title: "t", Questions: []Question{
			{Options: []string{"a", "b"}},
		}}},
		{"one option", Test{Title: "t", Questions: []Question{
			{Text: "q", Options: []string{"a"}},
		}}},
		{"correct index out of range", Test{Title: "t", Questions: []Question{
			{Text: "q", Options: []string{"a", "b"}, CorrectOption: 2},
		}}},
		{"negative correct index", Test{Title: "t", Questions: []Question{
			{Text: "q", Options: []string{"a", "b"}, CorrectOption: -1},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTest(ctx, tc.test)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateTestWithoutQuestions(t *testing.T) {
	svc := NewService(newFakeStore(), false)
	ctx := context.Background()

	created, err := svc.CreateTest(ctx, Test{Title: "placeholder"})
	require.NoError(t, err)

	res, err := svc.Submit(ctx, 1, created.ID, []int{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Score, 1e-9)
}

func TestSubmitScoresAndRecords(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, false)
	created := seedTest(t, svc, 0, 1, 2, 3)

	res, err := svc.Submit(context.Background(), 42, created.ID, []int{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 50, res.Score, 1e-9)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, created.ID, res.TestID)
	assert.Equal(t, int64(42), res.StudentID)
	assert.Len(t, store.results, 1)
}

func TestSubmitUnknownTest(t *testing.T) {
	svc := NewService(newFakeStore(), false)
	_, err := svc.Submit(context.Background(), 42, 999, []int{0})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSubmitLenientScoresPrefix(t *testing.T) {
	svc := NewService(newFakeStore(), false)
	created := seedTest(t, svc, 0, 1, 2, 3)

	res, err := svc.Submit(context.Background(), 1, created.ID, []int{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 50, res.Score, 1e-9)
}

func TestSubmitStrictRejectsMismatch(t *testing.T) {
	svc := NewService(newFakeStore(), true)
	created := seedTest(t, svc, 0, 1, 2, 3)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, created.ID, []int{0, 1})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Submit(ctx, 1, created.ID, []int{0, 1, 2, 3, 0})
	assert.ErrorIs(t, err, shared.ErrValidation)

	res, err := svc.Submit(ctx, 1, created.ID, []int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 100, res.Score, 1e-9)
}

func TestReTakesAppend(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, false)
	created := seedTest(t, svc, 0)
	ctx := context.Background()

	first, err := svc.Submit(ctx, 7, created.ID, []int{1})
	require.NoError(t, err)
	second, err := svc.Submit(ctx, 7, created.ID, []int{0})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	mine, err := svc.ResultsFor(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.InDelta(t, 0, mine[0].Score, 1e-9)
	assert.InDelta(t, 100, mine[1].Score, 1e-9)
}

func TestSubjectValidation(t *testing.T) {
	svc := NewService(newFakeStore(), false)
	ctx := context.Background()

	_, err := svc.CreateSubject(ctx, "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateSubject(ctx, "math")
	require.NoError(t, err)
	_, err = svc.CreateSubject(ctx, "math")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}
