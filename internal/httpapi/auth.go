package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"examgate/internal/auth"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Register creates a staff account. Unknown roles collapse to teacher.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.staff.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges staff credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.staff.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, expiresAt, err := h.issuer.Issue(auth.Staff(user.Username, user.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt.Unix(),
	})
}

// StudentIdentify authenticates a student purely by face: the uploaded image
// is matched against every enrolled signature and the first match gets a
// student token.
func (h *Handler) StudentIdentify(c *gin.Context) {
	image, ok := readImageFile(c)
	if !ok {
		return
	}
	student, err := h.enroll.Identify(c.Request.Context(), image)
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

// readImageFile pulls the multipart "file" field into memory. On failure it
// has already written the response.
func readImageFile(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
		return nil, false
	}
	return data, true
}
