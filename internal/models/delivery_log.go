package models

import "time"

// Delivery log types
const (
	DeliveryLogMorning = "morning"
	DeliveryLogEvening = "evening"
)

// DeliveryLog is an append-only audit row per generation or delivery event.
// Rows are never updated.
type DeliveryLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserUID   string         `gorm:"column:user_uid;not null;index" json:"userId"`
	Type      string         `gorm:"not null" json:"type"`
	Method    DeliveryMethod `gorm:"not null" json:"method"`
	Status    DeliveryStatus `gorm:"not null" json:"status"`
	Pages     *int           `json:"pages"`
	CreatedAt time.Time      `json:"createdAt"`
}
