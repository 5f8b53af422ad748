package models

// Queue event actions published to the moderator feed.
const (
	EventEnqueued = "enqueued"
	EventApproved = "approved"
	EventRejected = "rejected"
	EventSpam     = "spam"
	EventDeleted  = "deleted"
)

// QueueEvent is the message broadcast over Redis pub/sub whenever a queue
// entry is created or changes state. Connected moderator clients receive it
// verbatim over their websocket.
type QueueEvent struct {
	Action     string `json:"action"`
	QueueID    uint   `json:"queue_id"`
	Kind       Kind   `json:"kind"`
	ProjectID  uint   `json:"project_id"`
	ReporterID uint   `json:"reporter_id"`
	Status     string `json:"status"`
	// SpamCount is set on spam events: the number of entries the cascade
	// changed.
	SpamCount int64 `json:"spam_count,omitempty"`
}
