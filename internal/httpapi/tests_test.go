package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"examgate/internal/exam"
	"examgate/internal/shared"
)

// statsStore serves exactly one test; everything else is out of scope for
// the handler under test.
type statsStore struct {
	test exam.Test
}

func (s statsStore) GetTest(_ context.Context, id int64) (exam.Test, error) {
	if id != s.test.ID || s.test.ID == 0 {
		return exam.Test{}, shared.ErrNotFound
	}
	return s.test, nil
}

func (s statsStore) CreateTest(_ context.Context, t exam.Test) (exam.Test, error) { return t, nil }
func (s statsStore) UpdateTest(_ context.Context, t exam.Test) (exam.Test, error) { return t, nil }
func (s statsStore) DeleteTest(context.Context, int64) error                      { return nil }
func (s statsStore) ListTests(context.Context) ([]exam.Test, error)               { return nil, nil }
func (s statsStore) InsertResult(_ context.Context, r exam.Result) (exam.Result, error) {
	return r, nil
}
func (s statsStore) ListResults(context.Context) ([]exam.Result, error) { return nil, nil }
func (s statsStore) ListResultsByStudent(context.Context, int64) ([]exam.Result, error) {
	return nil, nil
}
func (s statsStore) CreateSubject(_ context.Context, name string) (exam.Subject, error) {
	return exam.Subject{Name: name}, nil
}
func (s statsStore) ListSubjects(context.Context, int, int) ([]exam.Subject, error) {
	return nil, nil
}
func (s statsStore) DeleteSubject(context.Context, int64) (exam.Subject, error) {
	return exam.Subject{}, nil
}

func statsRouter(store exam.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, exam.NewService(store, false), nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/tests/:id/stats", h.TestStats)
	return r
}

func TestTestStatsUnknownTest(t *testing.T) {
	r := statsRouter(statsStore{})

	req := httptest.NewRequest(http.MethodGet, "/tests/999/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestStatsWithoutRedis(t *testing.T) {
	r := statsRouter(statsStore{test: exam.Test{ID: 7, Title: "midterm"}})

	req := httptest.NewRequest(http.MethodGet, "/tests/7/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
