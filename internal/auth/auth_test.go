package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/jimdaga/morning-gist/internal/config"
	"github.com/jimdaga/morning-gist/internal/logging"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

type stubVerifier struct{}

func (stubVerifier) VerifySubject(_ context.Context, bearer string) (string, error) {
	if bearer == "valid" {
		return "bearer-uid", nil
	}
	return "", errors.New("bad token")
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ginsessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))

	r.GET("/test-login", func(c *gin.Context) {
		s := ginsessions.Default(c)
		s.Set(SessionUserID, "session-uid")
		_ = s.Save()
		c.Status(http.StatusOK)
	})

	api := r.Group("/api", RequireAuth(stubVerifier{}))
	api.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUID(c))
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := setupRouter()

	t.Run("no identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	})

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer valid")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "bearer-uid", w.Body.String())
	})

	t.Run("invalid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer forged")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("session", func(t *testing.T) {
		login := httptest.NewRecorder()
		r.ServeHTTP(login, httptest.NewRequest(http.MethodGet, "/test-login", nil))
		require.Equal(t, http.StatusOK, login.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		for _, ck := range login.Result().Cookies() {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "session-uid", w.Body.String())
	})
}

func TestGoogleIDTokenVerifier(t *testing.T) {
	v := &GoogleIDTokenVerifier{
		audience: "client-id",
		validate: func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
			if audience != "client-id" {
				return nil, errors.New("audience mismatch")
			}
			switch token {
			case "good":
				return &idtoken.Payload{Subject: "google-sub"}, nil
			case "nosub":
				return &idtoken.Payload{}, nil
			}
			return nil, errors.New("signature invalid")
		},
	}

	uid, err := v.VerifySubject(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "google-sub", uid)

	for _, tok := range []string{"", "nosub", "forged"} {
		_, err := v.VerifySubject(context.Background(), tok)
		assert.Error(t, err, tok)
	}
}

func TestCookieOptions(t *testing.T) {
	dev := CookieOptions(false)
	assert.False(t, dev.Secure)
	assert.True(t, dev.HttpOnly)
	assert.Equal(t, SessionMaxAge, dev.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, dev.SameSite)

	assert.True(t, CookieOptions(true).Secure)
}

func TestInitProviders(t *testing.T) {
	t.Cleanup(goth.ClearProviders)

	InitProviders(&config.Config{SessionSecret: "secret"}, logging.Discard())
	_, err := goth.GetProvider("google")
	assert.Error(t, err, "no provider without a client ID")

	store, ok := gothic.Store.(*sessions.CookieStore)
	require.True(t, ok)
	assert.False(t, store.Options.Secure)

	InitProviders(&config.Config{
		Env:                "production",
		SessionSecret:      "secret",
		GoogleClientID:     "client",
		GoogleClientSecret: "shh",
		GoogleCallbackURL:  "https://gist.example.com/auth/google/callback",
	}, logging.Discard())
	p, err := goth.GetProvider("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
	assert.True(t, gothic.Store.(*sessions.CookieStore).Options.Secure)
}
