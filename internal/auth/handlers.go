package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/markbates/goth/gothic"
)

// Session keys
const (
	SessionUserID    = "user_id"
	SessionUserEmail = "user_email"
	SessionUserName  = "user_name"
)

// UserEnsurer creates the user record on first login and stamps later ones.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, uid, email, name string) (*models.User, error)
}

// HandleLogin initiates the Google OAuth flow
func HandleLogin(c *gin.Context) {
	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Add("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, ensures the user record exists,
// and stores the identity in the session
func HandleCallback(users UserEnsurer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Add("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			logger.Warn("Auth error", "error", err)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		if _, err := users.EnsureUser(c.Request.Context(), gothUser.UserID, gothUser.Email, gothUser.Name); err != nil {
			logger.Error("Failed to ensure user record", "user_id", gothUser.UserID, "error", err)
			c.Redirect(http.StatusFound, "/login?error=user_failed")
			return
		}

		session := sessions.Default(c)
		session.Set(SessionUserID, gothUser.UserID)
		session.Set(SessionUserEmail, gothUser.Email)
		session.Set(SessionUserName, gothUser.Name)

		if err := session.Save(); err != nil {
			logger.Error("Session save error", "error", err)
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		logger.Info("User authenticated", "user_id", gothUser.UserID)
		c.Redirect(http.StatusFound, "/api/gists/today")
	}
}

// HandleLogout clears the session
func HandleLogout(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		session.Clear()

		if err := session.Save(); err != nil {
			logger.Error("Session clear error", "error", err)
		}

		c.Redirect(http.StatusFound, "/login")
	}
}
