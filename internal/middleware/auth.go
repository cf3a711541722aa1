package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CredentialValidator resolves a bearer credential to a user id. Credential
// issuance lives with the external auth flow.
type CredentialValidator interface {
	UserIDByCredential(ctx context.Context, credential string) (int, error)
}

// AuthMiddleware validates the Authorization header and stores the user id on
// the request context.
func AuthMiddleware(validator CredentialValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := validator.UserIDByCredential(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
