package enrollment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgate/internal/faceid"
	"examgate/internal/shared"
)

// stubExtractor maps image bytes to canned signatures, keeping dlib out of
// the tests. The signature's first component is taken from the image's first
// byte so distances are easy to reason about.
type stubExtractor struct {
	err error
}

func (e stubExtractor) Extract(image []byte) (faceid.Signature, error) {
	if e.err != nil {
		return nil, e.err
	}
	sig := make(faceid.Signature, faceid.Dim)
	if len(image) > 0 {
		sig[0] = float64(image[0]) / 100
	}
	return sig, nil
}

type memStore struct {
	nextID   int64
	students map[string]Student
	order    []string
}

func newMemStore() *memStore {
	return &memStore{students: map[string]Student{}}
}

func (m *memStore) Insert(_ context.Context, s Student) (Student, error) {
	if _, ok := m.students[s.StudentID]; ok {
		return Student{}, shared.ErrDuplicate
	}
	m.nextID++
	s.ID = m.nextID
	m.students[s.StudentID] = s
	m.order = append(m.order, s.StudentID)
	return s, nil
}

func (m *memStore) GetByStudentID(_ context.Context, studentID string) (Student, error) {
	s, ok := m.students[studentID]
	if !ok {
		return Student{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memStore) List(_ context.Context, _, _ int) ([]Student, error) {
	out := make([]Student, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.students[id])
	}
	return out, nil
}

func (m *memStore) Signatures(_ context.Context) ([]faceid.Enrolled, error) {
	var out []faceid.Enrolled
	for _, id := range m.order {
		s := m.students[id]
		if s.Signature == nil {
			continue
		}
		out = append(out, faceid.Enrolled{ID: s.StudentID, Signature: s.Signature})
	}
	return out, nil
}

func (m *memStore) SetPhotoURL(_ context.Context, studentID, url string) error {
	s, ok := m.students[studentID]
	if !ok {
		return shared.ErrNotFound
	}
	s.PhotoURL = &url
	m.students[studentID] = s
	return nil
}

// Image fixtures. The stub turns the first byte b into signature (b/100, 0...),
// so 0x00 and 0x05 are 0.05 apart (match at 0.6) while 0x00 and 0xFF are 2.55
// apart (no match).
var (
	imgNear = []byte{0x00}
	imgSame = []byte{0x05}
	imgFar  = []byte{0xFF}
)

func newTestService(store Store) *Service {
	return NewService(store, stubExtractor{}, faceid.DefaultTolerance)
}

func TestEnrollStoresSignature(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	s, err := svc.Enroll(context.Background(), "Aziza Karimova", "ST-1", "CS-101", imgNear)
	require.NoError(t, err)
	assert.Equal(t, "ST-1", s.StudentID)
	require.Len(t, s.Signature, faceid.Dim)

	_, err = svc.Enroll(context.Background(), "Aziza Karimova", "ST-1", "CS-101", imgNear)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestEnrollExtractorFailure(t *testing.T) {
	svc := NewService(newMemStore(), stubExtractor{err: faceid.ErrNoFaceDetected}, 0)
	_, err := svc.Enroll(context.Background(), "a", "ST-1", "g", imgNear)
	assert.ErrorIs(t, err, faceid.ErrNoFaceDetected)
}

func TestIdentify(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "Aziza Karimova", "ST-1", "CS-101", imgNear)
	require.NoError(t, err)

	got, err := svc.Identify(ctx, imgSame)
	require.NoError(t, err)
	assert.Equal(t, "ST-1", got.StudentID)
	assert.Equal(t, "Aziza Karimova", got.FullName)

	_, err = svc.Identify(ctx, imgFar)
	assert.ErrorIs(t, err, ErrNotRecognized)
}

func TestIdentifyNobodyEnrolled(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Identify(context.Background(), imgNear)
	assert.ErrorIs(t, err, ErrNotRecognized)
}

func TestIdentifyFirstEnrolledWins(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "First", "ST-1", "g", imgNear)
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, "Second", "ST-2", "g", imgSame)
	require.NoError(t, err)

	got, err := svc.Identify(ctx, imgNear)
	require.NoError(t, err)
	assert.Equal(t, "ST-1", got.StudentID)
}

func TestVerify(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "Aziza Karimova", "ST-1", "CS-101", imgNear)
	require.NoError(t, err)

	got, err := svc.Verify(ctx, "ST-1", imgSame)
	require.NoError(t, err)
	assert.Equal(t, "ST-1", got.StudentID)

	_, err = svc.Verify(ctx, "ST-1", imgFar)
	assert.ErrorIs(t, err, ErrNotRecognized)

	_, err = svc.Verify(ctx, "ST-404", imgSame)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerifyNoEnrolledFace(t *testing.T) {
	store := newMemStore()
	_, err := store.Insert(context.Background(), Student{StudentID: "ST-1", FullName: "No Face"})
	require.NoError(t, err)

	svc := newTestService(store)
	_, err = svc.Verify(context.Background(), "ST-1", imgNear)
	assert.ErrorIs(t, err, ErrNoEnrolledFace)
}

func TestAttachPhoto(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "Aziza Karimova", "ST-1", "CS-101", imgNear)
	require.NoError(t, err)

	require.NoError(t, svc.AttachPhoto(ctx, "ST-1", "https://cdn.example/st-1.jpg"))
	got, err := svc.Get(ctx, "ST-1")
	require.NoError(t, err)
	require.NotNil(t, got.PhotoURL)
	assert.Equal(t, "https://cdn.example/st-1.jpg", *got.PhotoURL)
}

func TestToleranceDefault(t *testing.T) {
	svc := NewService(newMemStore(), stubExtractor{}, 0)
	assert.Equal(t, faceid.DefaultTolerance, svc.Tolerance())
}
