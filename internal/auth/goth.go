package auth

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jimdaga/morning-gist/internal/config"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// SessionCookieName is the gin session that carries the logged-in uid.
const SessionCookieName = "morning_gist_session"

// SessionMaxAge is shared by the login session and gothic's state cookie.
const SessionMaxAge = 86400 * 30

// loginScopes cover identity only. Calendar access is granted separately
// through the code exchange, so login never prompts for it.
var loginScopes = []string{"openid", "email", "profile"}

// CookieOptions are the cookie settings for both session stores.
// Secure is off outside production so localhost works over plain HTTP.
func CookieOptions(production bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   SessionMaxAge,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}

// InitProviders registers Google login with gothic. Without a client ID the
// login routes stay mounted but fail, and a warning is logged.
func InitProviders(cfg *config.Config, logger *slog.Logger) {
	// gothic keeps its own gorilla store, separate from the gin session.
	gothStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	opts := CookieOptions(cfg.IsProduction())
	gothStore.Options = &opts
	gothic.Store = gothStore

	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set. Web login and calendar linking will not work until credentials are configured.")
		return
	}

	provider := google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, loginScopes...)
	provider.SetPrompt("select_account")
	goth.UseProviders(provider)

	logger.Info("Goth providers initialized", "providers", "google", "callback", cfg.GoogleCallbackURL)
}
