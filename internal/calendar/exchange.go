package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimdaga/morning-gist/internal/models"
	"golang.org/x/oauth2"
)

// ErrNotConfigured is returned when the OAuth client credentials are missing.
var ErrNotConfigured = errors.New("google oauth client is not configured")

// IdentityVerifier resolves a bearer credential to a user uid.
type IdentityVerifier interface {
	VerifySubject(ctx context.Context, bearer string) (string, error)
}

// Exchanger trades authorization codes for calendar tokens and stores them
// in the dedicated integration record.
type Exchanger struct {
	oauth    *oauth2.Config
	tokens   TokenStore
	verifier IdentityVerifier
	logger   *slog.Logger
}

// NewExchanger creates an exchanger. verifier may be nil, in which case only
// the uid body field identifies the caller.
func NewExchanger(opts Options, tokens TokenStore, verifier IdentityVerifier, logger *slog.Logger) *Exchanger {
	ex := &Exchanger{tokens: tokens, verifier: verifier, logger: logger}
	if opts.ClientID != "" && opts.ClientSecret != "" {
		ex.oauth = OAuthConfig(opts)
	}
	return ex
}

// Exchange runs the authorization_code grant and persists the resulting
// tokens for uid. Provider rejections come back as *oauth2.RetrieveError.
func (e *Exchanger) Exchange(ctx context.Context, uid, code string) error {
	if e.oauth == nil {
		return ErrNotConfigured
	}

	tok, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	loc := models.TokenLocation{Kind: models.TokenLocationIntegration, UserUID: uid}
	if err := e.tokens.SaveTokens(ctx, loc, tokenSetFromExchange(tok)); err != nil {
		return fmt.Errorf("failed to save calendar tokens: %w", err)
	}

	e.logger.Info("Stored Google Calendar tokens", "user_id", uid, "has_refresh_token", tok.RefreshToken != "")
	return nil
}
