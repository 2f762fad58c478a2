package calendar

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type exchangeRequest struct {
	Code string `json:"code"`
	UID  string `json:"uid"`
}

// ExchangeCodeHandler serves the one-shot authorization-code exchange.
// The caller is identified by a verified bearer id token, or failing that
// by the uid body field.
func ExchangeCodeHandler(ex *Exchanger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}

		var req exchangeRequest
		// A malformed body is treated like an empty one.
		if err := c.ShouldBindJSON(&req); err != nil {
			ex.logger.Debug("Ignoring unreadable exchange body", "error", err)
		}

		code := strings.TrimSpace(req.Code)
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
			return
		}

		uid, ok := ex.resolveUID(c, strings.TrimSpace(req.UID))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identifier"})
			return
		}

		if err := ex.Exchange(c.Request.Context(), uid, code); err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				status := 0
				if retrieveErr.Response != nil {
					status = retrieveErr.Response.StatusCode
				}
				ex.logger.Error("Google token exchange rejected",
					"user_id", uid,
					"status", status,
					"body", truncate(string(retrieveErr.Body), maxDiagnosticBody),
				)
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange authorization code"})
				return
			}

			ex.logger.Error("Unexpected error exchanging code", "user_id", uid, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected error exchanging code"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// resolveUID prefers a verified bearer token over the body uid. A bearer
// token that fails verification is rejected outright.
func (e *Exchanger) resolveUID(c *gin.Context, bodyUID string) (string, bool) {
	header := c.GetHeader("Authorization")
	if bearer, found := strings.CutPrefix(header, "Bearer "); found && e.verifier != nil {
		uid, err := e.verifier.VerifySubject(c.Request.Context(), strings.TrimSpace(bearer))
		if err != nil || uid == "" {
			e.logger.Warn("Rejected exchange bearer token", "error", err)
			return "", false
		}
		return uid, true
	}

	if bodyUID == "" {
		return "", false
	}
	return bodyUID, true
}
