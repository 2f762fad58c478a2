package models

import "time"

// FreshnessWindow is how far ahead of expiry an access token is considered stale.
const FreshnessWindow = 60 * time.Second

// TokenSet is the OAuth bundle used to call Google Calendar on a user's behalf.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	TokenType    string
	IDToken      string
	Expiry       time.Time // zero when the provider never reported one
}

// HasAny reports whether the set carries an access or a refresh token.
func (t TokenSet) HasAny() bool {
	return t.AccessToken != "" || t.RefreshToken != ""
}

// Fresh reports whether the access token can be used as-is at now.
// A token without a recorded expiry is trusted until the API rejects it.
func (t TokenSet) Fresh(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return t.Expiry.After(now.Add(FreshnessWindow))
}

// TokenLocationKind tells which storage shape a token set was loaded from.
type TokenLocationKind int

const (
	TokenLocationNone TokenLocationKind = iota
	// TokenLocationIntegration is the dedicated calendar_integrations row.
	TokenLocationIntegration
	// TokenLocationUserRecord is the legacy users.integrations.googleCalendar field.
	TokenLocationUserRecord
)

func (k TokenLocationKind) String() string {
	switch k {
	case TokenLocationIntegration:
		return "integration"
	case TokenLocationUserRecord:
		return "user"
	default:
		return "none"
	}
}

// TokenLocation is resolved once at load time; writes go back to the same place.
type TokenLocation struct {
	Kind    TokenLocationKind
	UserUID string
}

// LegacyTokenSet is the JSON shape stored inside users.integrations.
// expiryDate is epoch milliseconds.
type LegacyTokenSet struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	Scope        *string `json:"scope"`
	TokenType    *string `json:"tokenType"`
	ExpiryDate   *int64  `json:"expiryDate"`
	IDToken      *string `json:"idToken"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

// TokenSet converts the legacy shape.
func (l LegacyTokenSet) TokenSet() TokenSet {
	t := TokenSet{
		AccessToken:  deref(l.AccessToken),
		RefreshToken: deref(l.RefreshToken),
		Scope:        deref(l.Scope),
		TokenType:    deref(l.TokenType),
		IDToken:      deref(l.IDToken),
	}
	if l.ExpiryDate != nil && *l.ExpiryDate > 0 {
		t.Expiry = time.UnixMilli(*l.ExpiryDate).UTC()
	}
	return t
}

// NewLegacyTokenSet converts t into the legacy shape, writing nulls for
// empty fields.
func NewLegacyTokenSet(t TokenSet, updatedAt time.Time) LegacyTokenSet {
	l := LegacyTokenSet{
		AccessToken:  nullable(t.AccessToken),
		RefreshToken: nullable(t.RefreshToken),
		Scope:        nullable(t.Scope),
		TokenType:    nullable(t.TokenType),
		IDToken:      nullable(t.IDToken),
		UpdatedAt:    updatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !t.Expiry.IsZero() {
		ms := t.Expiry.UnixMilli()
		l.ExpiryDate = &ms
	}
	return l
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
