package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Directory re-resolves token subjects against the live store so that a
// token minted for a since-deleted account is rejected.
type Directory interface {
	StaffExists(ctx context.Context, username string) (bool, error)
	StudentExists(ctx context.Context, studentID string) (bool, error)
}

// Require enforces bearer JWT tokens and the given capability tier. On
// success the verified principal is stored on the gin context.
func Require(issuer *Issuer, dir Directory, required Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error()})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])

		p, err := issuer.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		if err := Authorize(p, required); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		exists, err := resolve(c.Request.Context(), dir, p)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "principal lookup failed"})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrPrincipalNotFound.Error()})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func resolve(ctx context.Context, dir Directory, p Principal) (bool, error) {
	if dir == nil {
		return false, errors.New("no principal directory configured")
	}
	if p.Kind == KindStudent {
		return dir.StudentExists(ctx, p.StudentID)
	}
	return dir.StaffExists(ctx, p.Username)
}

// PrincipalFrom returns the principal stored by Require.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
