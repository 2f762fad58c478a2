package models

import "time"

// FaxJobStatus is the state of a queued fax.
type FaxJobStatus string

const (
	FaxJobQueued FaxJobStatus = "queued"
	FaxJobSent   FaxJobStatus = "sent"
	FaxJobFailed FaxJobStatus = "failed"
)

// FaxJob is a fax-queue entry consumed by the external fax worker.
type FaxJob struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserUID   string       `gorm:"column:user_uid;not null;index" json:"userId"`
	DateKey   string       `gorm:"column:date_key;not null" json:"dateKey"`
	FaxNumber string       `gorm:"not null" json:"faxNumber"`
	Status    FaxJobStatus `gorm:"not null;default:'queued'" json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// TableName matches the fax_queue collection name.
func (FaxJob) TableName() string {
	return "fax_queue"
}
