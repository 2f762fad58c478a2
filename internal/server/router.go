// Package server wires the HTTP routes.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/morning-gist/internal/account"
	"github.com/jimdaga/morning-gist/internal/auth"
	"github.com/jimdaga/morning-gist/internal/calendar"
	"github.com/jimdaga/morning-gist/internal/gists"
	"github.com/jimdaga/morning-gist/internal/health"
	"github.com/jimdaga/morning-gist/internal/store"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Store         *store.Store
	Exchanger     *calendar.Exchanger
	Verifier      auth.IdentityVerifier
	Enqueue       func(uid string) error
	ReadyChecks   map[string]health.Check
	SessionSecret string
	Production    bool
	Logger        *slog.Logger
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	store := cookie.NewStore([]byte(d.SessionSecret))
	opts := auth.CookieOptions(d.Production)
	store.Options(sessions.Options{
		Path:     opts.Path,
		MaxAge:   opts.MaxAge,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
	r.Use(sessions.Sessions(auth.SessionCookieName, store))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", gin.WrapF(health.ReadyHandler(d.ReadyChecks)))

	// Web login
	r.GET("/login", auth.HandleLogin)
	r.GET("/auth/google/callback", auth.HandleCallback(d.Store, d.Logger))
	r.GET("/logout", auth.HandleLogout(d.Logger))

	// Calendar authorization-code exchange
	r.Any("/oauth/google/exchange", calendar.ExchangeCodeHandler(d.Exchanger))

	api := r.Group("/api", auth.RequireAuth(d.Verifier))
	{
		api.GET("/gists/today", gists.TodayHandler(d.Store, time.Now))
		api.GET("/gists", gists.ListHandler(d.Store))
		api.POST("/gists/generate", gists.GenerateHandler(d.Enqueue, d.Logger))
		api.GET("/gists/:date", gists.GetHandler(d.Store))
		api.GET("/delivery-logs", gists.DeliveryLogsHandler(d.Store))

		acct := account.NewHandlers(d.Store, d.Logger)
		api.GET("/account", acct.Get)
		api.PUT("/account/preferences", acct.UpdatePreferences)
		api.PUT("/account/delivery", acct.UpdateDelivery)
		api.PUT("/account/plan", acct.UpdatePlan)
	}

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
