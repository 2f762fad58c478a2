package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// IdentityVerifier resolves a bearer credential to a user uid.
type IdentityVerifier interface {
	VerifySubject(ctx context.Context, bearer string) (string, error)
}

// RequireAuth ensures the request carries an identity: a session from the
// web login, or a Google ID token bearer when verifier is non-nil.
func RequireAuth(verifier IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && verifier != nil {
			uid, err := verifier.VerifySubject(c.Request.Context(), strings.TrimSpace(bearer))
			if err != nil || uid == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.Set(SessionUserID, uid)
			c.Next()
			return
		}

		session := sessions.Default(c)
		userID, _ := session.Get(SessionUserID).(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Set context values for downstream handlers
		c.Set(SessionUserID, userID)
		c.Set(SessionUserEmail, session.Get(SessionUserEmail))
		c.Set(SessionUserName, session.Get(SessionUserName))

		c.Next()
	}
}

// CurrentUID returns the authenticated uid set by RequireAuth.
func CurrentUID(c *gin.Context) string {
	return c.GetString(SessionUserID)
}
