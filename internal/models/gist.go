package models

import (
	"time"

	"gorm.io/datatypes"
)

// Delivery status constants
const (
	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusReceived  DeliveryStatus = "received"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// DeliveryStatus tracks a gist through delivery.
type DeliveryStatus string

// CalendarItem is one display-ready calendar entry.
type CalendarItem struct {
	Time  string `json:"time,omitempty"`
	Title string `json:"title"`
	Note  string `json:"note,omitempty"`
}

// WorldItem is one "world" headline with a plain-language takeaway.
type WorldItem struct {
	Headline    string `json:"headline"`
	Implication string `json:"implication"`
}

// GistDelivery is the delivery sub-record of a gist.
type GistDelivery struct {
	Method      DeliveryMethod `json:"method"`
	Pages       int            `json:"pages"`
	Status      DeliveryStatus `json:"status"`
	DeliveredAt *time.Time     `json:"deliveredAt,omitempty"`
}

// MorningGist is one user's digest for one date key. (user_uid, date_key) is
// unique, so regenerating the same day overwrites the row in place.
type MorningGist struct {
	ID             uint                              `gorm:"primaryKey" json:"-"`
	GistID         string                            `gorm:"column:gist_id;not null" json:"id"`
	UserUID        string                            `gorm:"column:user_uid;not null;uniqueIndex:idx_morning_gists_user_date" json:"userId"`
	DateKey        string                            `gorm:"column:date_key;not null;uniqueIndex:idx_morning_gists_user_date" json:"date"`
	Timezone       string                            `gorm:"not null" json:"timezone"`
	WeatherSummary string                            `gorm:"type:text;not null" json:"weatherSummary"`
	FirstEvent     *string                           `gorm:"type:text" json:"firstEvent,omitempty"`
	DayItems       datatypes.JSONSlice[CalendarItem] `gorm:"type:jsonb;not null" json:"dayItems"`
	WorldItems     datatypes.JSONSlice[WorldItem]    `gorm:"type:jsonb;not null" json:"worldItems"`
	GistBullets    datatypes.JSONSlice[string]       `gorm:"type:jsonb;not null" json:"gistBullets"`
	OneThing       string                            `gorm:"type:text;not null" json:"oneThing"`
	Delivery       datatypes.JSONType[GistDelivery]  `gorm:"type:jsonb;not null" json:"delivery"`
	CreatedAt      time.Time                         `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt      time.Time                         `json:"-"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (MorningGist) TableName() string {
	return "morning_gists"
}
