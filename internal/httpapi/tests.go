package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examgate/internal/auth"
	"examgate/internal/exam"
	"examgate/internal/queue"
)

type questionInput struct {
	Text          string   `json:"text" binding:"required"`
	Image         *string  `json:"image"`
	Options       []string `json:"options" binding:"required"`
	CorrectOption int      `json:"correct_option"`
}

type testInput struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	SubjectID   *int64          `json:"subject_id"`
	Questions   []questionInput `json:"questions"`
}

func (in testInput) toTest(id int64) exam.Test {
	t := exam.Test{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		SubjectID:   in.SubjectID,
	}
	for _, q := range in.Questions {
		t.Questions = append(t.Questions, exam.Question{
			Text:          q.Text,
			Image:         q.Image,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		})
	}
	return t
}

// CreateTest stores a new test with its questions.
func (h *Handler) CreateTest(c *gin.Context) {
	var req testInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.exams.CreateTest(c.Request.Context(), req.toTest(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateTest replaces a test and all of its questions.
func (h *Handler) UpdateTest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req testInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.exams.UpdateTest(c.Request.Context(), req.toTest(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteTest removes a test.
func (h *Handler) DeleteTest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.exams.DeleteTest(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTests returns all tests.
func (h *Handler) ListTests(c *gin.Context) {
	tests, err := h.exams.ListTests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests})
}

// GetTest returns one test with its questions in canonical order.
func (h *Handler) GetTest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.exams.GetTest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type submitRequest struct {
	TestID  int64 `json:"test_id" binding:"required"`
	Answers []int `json:"answers"`
}

// submissionEvent is what the worker consumes to maintain per-test stats.
type submissionEvent struct {
	TestID int64   `json:"test_id"`
	Score  float64 `json:"score"`
}

// SubmitTest scores the logged-in student's answers and records a result.
func (h *Handler) SubmitTest(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student, err := h.enroll.Get(c.Request.Context(), p.StudentID)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.exams.Submit(c.Request.Context(), student.ID, req.TestID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.queue != nil {
		body, _ := json.Marshal(submissionEvent{TestID: result.TestID, Score: result.Score})
		if err := h.queue.Publish(c.Request.Context(), queue.Message{Type: "submission", Body: body}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "test submitted successfully",
		"result_id": result.ID,
		"score":     result.Score,
	})
}

// TestStats returns the per-test aggregates the worker maintains in redis.
func (h *Handler) TestStats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.exams.GetTest(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	if h.redis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats not available"})
		return
	}
	vals, err := h.redis.HGetAll(c.Request.Context(), exam.StatsKey(id)).Result()
	if err != nil {
		respondError(c, err)
		return
	}
	count, _ := strconv.ParseInt(vals["count"], 10, 64)
	sum, _ := strconv.ParseFloat(vals["sum"], 64)
	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	}
	c.JSON(http.StatusOK, gin.H{
		"test_id":       id,
		"submissions":   count,
		"average_score": avg,
	})
}

// AllResults returns every recorded result for staff review.
func (h *Handler) AllResults(c *gin.Context) {
	results, err := h.exams.AllResults(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// MyResults returns the logged-in student's results.
func (h *Handler) MyResults(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	student, err := h.enroll.Get(c.Request.Context(), p.StudentID)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.exams.ResultsFor(c.Request.Context(), student.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
