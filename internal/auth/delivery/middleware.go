package delivery

import (
	"net/http"
	"strings"

	authdomain "miinplanner-backend/internal/auth/domain"
	"miinplanner-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// AuthMiddleware requires a valid bearer token. Requests from users with an
// unverified email are refused unless the path is in allowUnverified.
func AuthMiddleware(verifier usecase.Verifier, allowUnverified ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowUnverified))
	for _, p := range allowUnverified {
		allowed[p] = true
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		session, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		if !session.EmailVerified && !allowed[c.FullPath()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": authdomain.ErrEmailNotVerified.Error()})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFrom returns the session stored by AuthMiddleware
func SessionFrom(c *gin.Context) (*authdomain.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*authdomain.Session)
	return s, ok
}
