package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIDTokenVerifier checks Google-signed ID tokens and yields their subject.
type GoogleIDTokenVerifier struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleIDTokenVerifier verifies tokens issued for the OAuth client audience.
func NewGoogleIDTokenVerifier(audience string) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{audience: audience, validate: idtoken.Validate}
}

// VerifySubject returns the uid (token subject) of a valid bearer token.
func (v *GoogleIDTokenVerifier) VerifySubject(ctx context.Context, bearer string) (string, error) {
	if bearer == "" {
		return "", errors.New("empty id token")
	}
	payload, err := v.validate(ctx, bearer, v.audience)
	if err != nil {
		return "", fmt.Errorf("invalid id token: %w", err)
	}
	if payload.Subject == "" {
		return "", errors.New("id token has no subject")
	}
	return payload.Subject, nil
}
