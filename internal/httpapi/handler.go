// Package httpapi decodes requests, calls the domain services and maps their
// typed errors to status codes. No domain logic lives here.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"examgate/internal/auth"
	"examgate/internal/cloudinary"
	"examgate/internal/enrollment"
	"examgate/internal/exam"
	"examgate/internal/faceid"
	"examgate/internal/queue"
	"examgate/internal/shared"
	"examgate/internal/staff"
)

// Handler carries the wired services for all endpoints.
type Handler struct {
	enroll *enrollment.Service
	exams  *exam.Service
	staff  *staff.Service
	issuer *auth.Issuer
	queue  queue.Queue
	cloud  *cloudinary.Client // nil if Cloudinary not configured
	redis  *redis.Client
}

// New creates a handler.
func New(enroll *enrollment.Service, exams *exam.Service, staffSvc *staff.Service,
	issuer *auth.Issuer, q queue.Queue, cloud *cloudinary.Client, rdb *redis.Client) *Handler {
	return &Handler{
		enroll: enroll,
		exams:  exams,
		staff:  staffSvc,
		issuer: issuer,
		queue:  q,
		cloud:  cloud,
		redis:  rdb,
	}
}

// Directory adapts the repositories to the auth middleware so verified
// subjects are re-checked against live records.
type Directory struct {
	Staff    *staff.Repository
	Students *enrollment.Repository
}

// StaffExists implements auth.Directory.
func (d Directory) StaffExists(ctx context.Context, username string) (bool, error) {
	return d.Staff.StaffExists(ctx, username)
}

// StudentExists implements auth.Directory.
func (d Directory) StudentExists(ctx context.Context, studentID string) (bool, error) {
	return d.Students.StudentExists(ctx, studentID)
}

// respondError maps the closed error taxonomy onto status codes. Anything
// outside the taxonomy is a processing failure: logged with its cause,
// reported without it.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, faceid.ErrNoFaceDetected),
		errors.Is(err, faceid.ErrAmbiguousInput),
		errors.Is(err, enrollment.ErrNoEnrolledFace):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, enrollment.ErrNotRecognized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
