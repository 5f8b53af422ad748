package moderate

import "encoding/json"

// Notification template kinds passed to the Notifier.
const (
	TemplateIssueRejected = "issue_rejected"
	TemplateNoteRejected  = "note_rejected"
	TemplateIssueSpam     = "issue_spam"
	TemplateNoteSpam      = "note_spam"
)

// Materializer turns a queued payload into real host content. The acting
// user id is passed explicitly per call; approving impersonates the original
// reporter for exactly one call and never touches shared session state.
// Validation errors from the host propagate unchanged.
type Materializer interface {
	CreateIssue(actingUserID uint, payload json.RawMessage) (uint, error)
	CreateNote(actingUserID uint, issueID uint, payload json.RawMessage) (uint, error)
}

// AccessChecker is the host's permission oracle.
type AccessChecker interface {
	HasProjectLevel(threshold int, projectID uint, userID uint) bool
	HasGlobalLevel(threshold int, userID uint) bool
	// AccessibleProjects returns the projects where the user meets the
	// threshold. Empty means the user can see and act on nothing.
	AccessibleProjects(threshold int, userID uint) ([]uint, error)
}

// Directory is the host's identity lookup for users, projects and issues.
type Directory interface {
	UserExists(userID uint) bool
	UserEnabled(userID uint) bool
	// DisableUser is idempotent: disabling an already-disabled or deleted
	// account is not an error.
	DisableUser(userID uint) error

	ProjectExists(projectID uint) bool
	ProjectEnabled(projectID uint) bool

	IssueExists(issueID uint) bool
	IssueReporter(issueID uint) (uint, error)
	IssueProject(issueID uint) (uint, error)
}

// Notifier delivers reporter notifications. Best-effort by contract: the
// engine logs failures and never lets them fail a moderation decision.
type Notifier interface {
	Notify(userID uint, template string, context map[string]interface{}) error
}
