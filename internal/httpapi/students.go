package httpapi

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examgate/internal/auth"
)

type enrollRequest struct {
	FullName  string `form:"full_name" binding:"required"`
	StudentID string `form:"student_id" binding:"required"`
	GroupID   string `form:"group_id" binding:"required"`
}

// CreateStudent enrolls a student from a multipart form with the enrollment
// photo in "file". The photo must show exactly one face.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}

	student, err := h.enroll.Enroll(c.Request.Context(), req.FullName, req.StudentID, req.GroupID, image)
	if err != nil {
		respondError(c, err)
		return
	}

	// Photo storage is best effort; the signature is already persisted.
	if h.cloud != nil {
		result, err := h.cloud.UploadBytes(image, req.StudentID+".jpg", "students/"+req.StudentID)
		if err != nil {
			log.Printf("enrollment photo upload failed for %s: %v", req.StudentID, err)
		} else if err := h.enroll.AttachPhoto(c.Request.Context(), req.StudentID, result.SecureURL); err != nil {
			log.Printf("attach photo failed for %s: %v", req.StudentID, err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         student.ID,
		"full_name":  student.FullName,
		"student_id": student.StudentID,
		"message":    "student created successfully",
	})
}

// ListStudents returns enrolled students without their signatures.
func (h *Handler) ListStudents(c *gin.Context) {
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
	students, err := h.enroll.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// VerifyStudent re-verifies a claimed student id against an uploaded face
// and mints a student token on success. Unauthenticated but rate limited.
func (h *Handler) VerifyStudent(c *gin.Context) {
	studentID := c.PostForm("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id field required"})
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}
	student, err := h.enroll.Verify(c.Request.Context(), studentID, image)
	if err != nil {
		respondError(c, err)
		return
	}
	token, expiresAt, err := h.issuer.Issue(auth.Student(student.StudentID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt.Unix(),
		"student": gin.H{
			"id":         student.ID,
			"full_name":  student.FullName,
			"student_id": student.StudentID,
		},
	})
}

// VerifyMatch confirms the uploaded face belongs to the logged-in student.
// Used as a pre-test check.
func (h *Handler) VerifyMatch(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}
	if _, err := h.enroll.Verify(c.Request.Context(), p.StudentID, image); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "face verified successfully"})
}
