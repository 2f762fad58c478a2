package models

import (
	"time"

	"github.com/jimdaga/morning-gist/internal/crypto"
	"gorm.io/gorm"
)

var sealer *crypto.Sealer

// InitEncryption initializes the token sealer for the models package.
// Without it, tokens are stored as plaintext.
func InitEncryption(encryptionKey string) error {
	s, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		return err
	}
	sealer = s
	return nil
}

// CalendarIntegration is the dedicated Google Calendar token record, one per user
type CalendarIntegration struct {
	gorm.Model
	UserUID      string `gorm:"column:user_uid;not null;uniqueIndex"`
	Provider     string `gorm:"not null;default:'google'"`
	AccessToken  string `gorm:"type:text"` // stored encrypted
	RefreshToken string `gorm:"type:text"` // stored encrypted
	Scope        string `gorm:"type:text"`
	TokenType    string
	IDToken      string `gorm:"column:id_token;type:text"`
	TokenExpiry  *time.Time
}

// TableName keeps the table name stable regardless of naming strategy.
func (CalendarIntegration) TableName() string {
	return "calendar_integrations"
}

// NewCalendarIntegration builds the row for uid from a token set.
func NewCalendarIntegration(uid string, t TokenSet) *CalendarIntegration {
	ci := &CalendarIntegration{
		UserUID:      uid,
		Provider:     "google",
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Scope:        t.Scope,
		TokenType:    t.TokenType,
		IDToken:      t.IDToken,
	}
	if !t.Expiry.IsZero() {
		expiry := t.Expiry.UTC()
		ci.TokenExpiry = &expiry
	}
	return ci
}

// TokenSet returns the decrypted token bundle.
func (c *CalendarIntegration) TokenSet() TokenSet {
	t := TokenSet{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Scope:        c.Scope,
		TokenType:    c.TokenType,
		IDToken:      c.IDToken,
	}
	if c.TokenExpiry != nil {
		t.Expiry = *c.TokenExpiry
	}
	return t
}

// BeforeSave seals tokens before they reach the database.
func (c *CalendarIntegration) BeforeSave(tx *gorm.DB) error {
	return c.transformTokens(sealTokens)
}

// AfterSave restores plaintext so the caller's struct stays usable.
func (c *CalendarIntegration) AfterSave(tx *gorm.DB) error {
	return c.transformTokens(openTokens)
}

// AfterFind decrypts tokens after loading from database
func (c *CalendarIntegration) AfterFind(tx *gorm.DB) error {
	return c.transformTokens(openTokens)
}

const (
	sealTokens = iota
	openTokens
)

func (c *CalendarIntegration) transformTokens(direction int) error {
	if sealer == nil {
		return nil
	}

	apply := sealer.Open
	if direction == sealTokens {
		apply = sealer.Seal
	}

	for _, field := range []*string{&c.AccessToken, &c.RefreshToken, &c.IDToken} {
		out, err := apply(*field)
		if err != nil {
			return err
		}
		*field = out
	}
	return nil
}
