package moderate

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a queue id is unknown, or when a concurrent
// moderator already moved the entry out of the state the operation needs.
var ErrNotFound = errors.New("queue entry not found")

// ErrAccessDenied is returned when the acting user does not meet the
// moderation threshold for the entry's project.
var ErrAccessDenied = errors.New("access denied to moderated items")

// RateLimitedError is returned by admission control when a reporter has too
// many pending entries inside the configured window.
type RateLimitedError struct {
	Max    int
	Window time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("moderation queue rate limit reached (%d entries per %s)", e.Max, e.Window)
}

// StaleReferenceError is returned by Approve when an entity the entry
// references vanished or was disabled after enqueue. The entry is left
// untouched; the moderator has to reject or delete it instead.
type StaleReferenceError struct {
	Entity string // "reporter", "project" or "issue"
	ID     uint
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("cannot approve: %s %d no longer exists or is disabled", e.Entity, e.ID)
}
