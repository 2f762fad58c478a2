package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jimdaga/morning-gist/internal/models"
	"golang.org/x/oauth2"
)

// maxDiagnosticBody bounds how much of a failed token response is logged.
const maxDiagnosticBody = 1000

// diagnosticHeaders are the token-endpoint response headers worth logging.
var diagnosticHeaders = []string{"Content-Type", "WWW-Authenticate", "Date", "X-Google-Request-Id"}

// ensureFresh returns a usable token set, refreshing and persisting when the
// stored access token is missing or expires within the freshness window.
func (c *Client) ensureFresh(ctx context.Context, tokens models.TokenSet, loc models.TokenLocation) (models.TokenSet, error) {
	if tokens.Fresh(c.now()) {
		return tokens, nil
	}

	refreshed, ok := c.refresh(ctx, tokens, loc.UserUID)
	if !ok {
		return models.TokenSet{}, errNoValidToken
	}
	if err := c.tokens.SaveTokens(ctx, loc, refreshed); err != nil {
		return models.TokenSet{}, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	return refreshed, nil
}

// refresh runs the refresh_token grant. Failures are logged and reported as
// ok=false; they never surface as errors.
func (c *Client) refresh(ctx context.Context, prev models.TokenSet, uid string) (models.TokenSet, bool) {
	if prev.RefreshToken == "" {
		return models.TokenSet{}, false
	}

	// An empty access token forces the token source to hit the endpoint.
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: prev.RefreshToken}).Token()
	if err != nil {
		c.logRefreshFailure(uid, err)
		return models.TokenSet{}, false
	}
	if tok.AccessToken == "" {
		return models.TokenSet{}, false
	}

	return mergeToken(prev, tok), true
}

// mergeToken lays a provider response over the previous set. The refresh
// token is always carried over.
func mergeToken(prev models.TokenSet, tok *oauth2.Token) models.TokenSet {
	next := prev
	next.AccessToken = tok.AccessToken
	if !tok.Expiry.IsZero() {
		next.Expiry = tok.Expiry.UTC()
	}
	if tok.TokenType != "" {
		next.TokenType = tok.TokenType
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		next.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		next.IDToken = idToken
	}
	return next
}

// tokenSetFromExchange converts an authorization-code response.
func tokenSetFromExchange(tok *oauth2.Token) models.TokenSet {
	t := mergeToken(models.TokenSet{}, tok)
	t.RefreshToken = tok.RefreshToken
	return t
}

func (c *Client) logRefreshFailure(uid string, err error) {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.Response == nil {
		c.logger.Warn("Google OAuth token refresh failed", "user_id", uid, "error", err)
		return
	}

	c.logger.Warn("Google OAuth token refresh failed",
		"user_id", uid,
		"status", retrieveErr.Response.StatusCode,
		"error_code", retrieveErr.ErrorCode,
		"headers", headersOfInterest(retrieveErr.Response.Header),
		"body", truncate(string(retrieveErr.Body), maxDiagnosticBody),
	)
}

func headersOfInterest(h http.Header) map[string]string {
	out := make(map[string]string)
	for _, name := range diagnosticHeaders {
		if v := h.Get(name); v != "" {
			out[name] = v
		}
	}
	return out
}
