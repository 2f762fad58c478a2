package streams

import "time"

// Stream name constants
const (
	StreamFaxRequests = "fax:requests"
	StreamFaxResults  = "fax:results"
)

// Consumer group constants
const (
	GroupFaxSenders  = "fax-senders"  // external fax worker
	GroupGistWorkers = "gist-workers" // Go side
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Fax result statuses reported by the fax worker
const (
	FaxResultDelivered = "delivered"
	FaxResultFailed    = "failed"
)

// FaxRequest asks the fax worker to send one gist
type FaxRequest struct {
	JobID     uint      `json:"job_id"`
	UID       string    `json:"uid"`
	DateKey   string    `json:"dateKey"`
	FaxNumber string    `json:"faxNumber"`
	QueuedAt  time.Time `json:"queuedAt"`
}

// FaxResult reports the outcome of a fax request
type FaxResult struct {
	UID     string `json:"uid"`
	DateKey string `json:"dateKey"`
	Status  string `json:"status"` // delivered/failed
	Pages   *int   `json:"pages,omitempty"`
	Error   string `json:"error,omitempty"`
}
