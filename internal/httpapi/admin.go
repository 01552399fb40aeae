package httpapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"examgate/internal/staff"
)

// ---------- Subjects ----------

type subjectInput struct {
	Name string `json:"name" binding:"required"`
}

// CreateSubject stores a new subject.
func (h *Handler) CreateSubject(c *gin.Context) {
	var req subjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	subject, err := h.exams.CreateSubject(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

// ListSubjects returns subjects.
func (h *Handler) ListSubjects(c *gin.Context) {
	limit, offset := 100, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	subjects, err := h.exams.ListSubjects(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

// DeleteSubject removes a subject; its tests lose the reference.
func (h *Handler) DeleteSubject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	subject, err := h.exams.DeleteSubject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

// ---------- Teachers ----------

// CreateTeacher creates a teacher record together with its staff login.
func (h *Handler) CreateTeacher(c *gin.Context) {
	var req staff.TeacherInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	teacher, err := h.staff.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, teacher)
}

// ListTeachers returns all teacher records.
func (h *Handler) ListTeachers(c *gin.Context) {
	teachers, err := h.staff.ListTeachers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers})
}

// UpdateTeacher applies partial updates to a teacher record.
func (h *Handler) UpdateTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req staff.TeacherInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	teacher, err := h.staff.UpdateTeacher(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teacher)
}

// DeleteTeacher removes a teacher record and its login.
func (h *Handler) DeleteTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	teacher, err := h.staff.DeleteTeacher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teacher)
}

// ---------- Uploads ----------

// Upload stores a question/option image and returns its URL.
func (h *Handler) Upload(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
		return
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	result, err := h.cloud.UploadBytes(data, name, "")
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "public_id": result.PublicID})
}
