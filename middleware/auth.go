package middleware

import (
	"net/http"
	"strings"

	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
)

const ClaimsKey = "claims"

type TokenValidator interface {
	ValidateToken(tokenStr string) (*services.Claims, error)
}

// RequireRole rejects requests without a valid bearer token (401) or whose
// token carries a different role (403).
func RequireRole(auth TokenValidator, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}

		claims, err := auth.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired token"})
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "insufficient role"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
