package models

import "time"

// Status is the lifecycle state of a queue entry. Values match the wire
// format used by the REST API and the database column.
type Status int

const (
	StatusPending  Status = 0
	StatusRejected Status = 1
	StatusApproved Status = 2
	StatusSpam     Status = 3
)

// allowedTransitions is the explicit state table. Approved is terminal.
// Rejected and Spam entries can still move to Spam through the reporter-wide
// spam cascade, which also re-stamps entries that are already Spam.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:  {StatusApproved: true, StatusRejected: true, StatusSpam: true},
	StatusRejected: {StatusSpam: true},
	StatusSpam:     {StatusSpam: true},
	StatusApproved: {},
}

// CanTransition reports whether moving from s to target is a legal
// lifecycle transition.
func (s Status) CanTransition(target Status) bool {
	return allowedTransitions[s][target]
}

// Terminal reports whether s is a decided state (anything but Pending).
func (s Status) Terminal() bool {
	return s != StatusPending
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRejected:
		return "rejected"
	case StatusApproved:
		return "approved"
	case StatusSpam:
		return "spam"
	default:
		return "unknown"
	}
}

// Kind distinguishes what kind of submission a queue entry wraps.
type Kind string

const (
	KindIssue Kind = "issue"
	KindNote  Kind = "note"
)

// QueueEntry is one moderated submission. The payload is stored verbatim as
// the JSON the content materializer expects, so an approved entry can be
// replayed without any re-encoding.
type QueueEntry struct {
	// ID is the queue entry identifier, assigned by the database.
	ID uint `gorm:"primaryKey" json:"id"`
	// Kind is "issue" or "note". Immutable after creation.
	Kind Kind `gorm:"type:varchar(10);not null;default:'issue'" json:"kind"`
	// ProjectID scopes the entry to one project. Immutable.
	ProjectID uint `gorm:"not null;index:idx_moderate_project" json:"project_id"`
	// ReporterID is the original submitter. Immutable.
	ReporterID uint `gorm:"not null;index:idx_moderate_reporter" json:"reporter_id"`
	// ParentID is the issue a note attaches to; 0 for issues.
	ParentID uint `gorm:"not null;default:0" json:"parent_id"`
	// Data is the serialized submission payload. Immutable.
	Data string `gorm:"type:text;not null" json:"-"`
	// SubmittedAt is when the entry was enqueued. Immutable.
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
	// Status is the current lifecycle state.
	Status Status `gorm:"not null;default:0;index:idx_moderate_status" json:"status"`
	// ModeratorID and ModeratedAt are stamped on the transition out of
	// Pending, and re-stamped by the spam cascade.
	ModeratorID uint      `json:"moderator_id,omitempty"`
	ModeratedAt time.Time `json:"moderated_at,omitempty"`
}
