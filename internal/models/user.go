package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan is the subscription tier. Billing is stubbed; the plan only drives
// the default delivery method.
type Plan string

const (
	PlanWeb   Plan = "web"
	PlanPrint Plan = "print"
	PlanLoop  Plan = "loop"
)

// DeliveryMethod is the channel a gist is made available through.
type DeliveryMethod string

const (
	DeliveryWeb DeliveryMethod = "web"
	DeliveryFax DeliveryMethod = "fax"
)

// Preferences is the free-form preference bag edited from the account page.
type Preferences struct {
	Timezone    string   `json:"timezone,omitempty"`
	City        string   `json:"city,omitempty"`
	NewsDomains []string `json:"newsDomains,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	MaxPages    int      `json:"maxPages,omitempty"`
	QuietDays   []string `json:"quietDays,omitempty"`
}

// DeliverySchedule holds scheduling hints; the cron trigger is global for now.
type DeliverySchedule struct {
	Hour         *int `json:"hour,omitempty"`
	Minute       *int `json:"minute,omitempty"`
	WeekdaysOnly bool `json:"weekdaysOnly,omitempty"`
}

// DeliverySettings is the user's explicit delivery configuration.
type DeliverySettings struct {
	Method    DeliveryMethod    `json:"method,omitempty"`
	FaxNumber string            `json:"faxNumber,omitempty"`
	Schedule  *DeliverySchedule `json:"schedule,omitempty"`
}

// LegacyIntegrations is the nested integrations field older user records
// carry. Only the Google Calendar token set is read from it.
type LegacyIntegrations struct {
	GoogleCalendar *LegacyTokenSet `json:"googleCalendar,omitempty"`
}

// User represents an application user keyed by their identity-provider subject
type User struct {
	gorm.Model
	UID                      string                                 `gorm:"column:uid;not null;uniqueIndex" json:"uid"`
	Email                    *string                                `json:"email"`
	Name                     string                                 `gorm:"not null;default:''" json:"name"`
	Plan                     Plan                                   `gorm:"not null;default:'print'" json:"plan"`
	Preferences              datatypes.JSONType[Preferences]        `gorm:"column:prefs;type:jsonb;not null;default:'{}'" json:"prefs"`
	Delivery                 datatypes.JSONType[DeliverySettings]   `gorm:"column:delivery;type:jsonb;not null;default:'{}'" json:"delivery"`
	Integrations             datatypes.JSONType[LegacyIntegrations] `gorm:"column:integrations;type:jsonb;not null;default:'{}'" json:"-"`
	StripeSubscriptionStatus string                                 `gorm:"not null;default:'demo'" json:"stripeSubscriptionStatus"`
	LastLoginAt              *time.Time                             `json:"lastLoginAt,omitempty"`
}

// UserView is the minimal in-memory view the gist generator works from.
type UserView struct {
	UID         string
	Email       *string
	Plan        Plan
	Preferences Preferences
	Delivery    DeliverySettings
}

// View builds the generator's view of u, defaulting a missing plan to print.
func (u User) View() UserView {
	plan := u.Plan
	if plan == "" {
		plan = PlanPrint
	}
	return UserView{
		UID:         u.UID,
		Email:       u.Email,
		Plan:        plan,
		Preferences: u.Preferences.Data(),
		Delivery:    u.Delivery.Data(),
	}
}
