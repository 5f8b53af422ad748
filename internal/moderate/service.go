// Package moderate implements the moderation queue: admission control,
// bypass policy, the entry lifecycle state machine, and the access-scoped
// queries moderators use to work the queue.
package moderate

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mantishub/Moderate/internal/config"
	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/storage"
)

// AllProjects is the project scope meaning "every project the acting user
// has moderation access to".
const AllProjects uint = 0

// Service handles the business logic of the moderation queue.
type Service struct {
	Storage      storage.Storage
	Access       AccessChecker
	Directory    Directory
	Materializer Materializer
	Notifier     Notifier
	Config       config.Config
}

// NewService creates a new moderation service.
func NewService(s storage.Storage, access AccessChecker, directory Directory, materializer Materializer, notifier Notifier, cfg config.Config) *Service {
	return &Service{
		Storage:      s,
		Access:       access,
		Directory:    directory,
		Materializer: materializer,
		Notifier:     notifier,
		Config:       cfg,
	}
}

// ShouldBypassIssue reports whether a new issue from the user in the given
// project skips moderation.
func (s *Service) ShouldBypassIssue(projectID uint, userID uint) bool {
	return s.Access.HasProjectLevel(s.Config.BypassThreshold, projectID, userID)
}

// ShouldBypassNote reports whether a new note on the given issue skips
// moderation. Notes on one's own issue are never moderated, regardless of
// access level.
func (s *Service) ShouldBypassNote(issueID uint, userID uint) (bool, error) {
	projectID, err := s.Directory.IssueProject(issueID)
	if err != nil {
		return false, err
	}

	if s.Access.HasProjectLevel(s.Config.BypassThreshold, projectID, userID) {
		return true, nil
	}

	reporterID, err := s.Directory.IssueReporter(issueID)
	if err != nil {
		return false, err
	}
	return reporterID == userID, nil
}

// CheckAdmission enforces the per-reporter rate limit on queue insertion.
// Runs before the entry is persisted, so the entry being created never
// counts against itself. A zero max disables the check.
func (s *Service) CheckAdmission(reporterID uint) error {
	if s.Config.AntispamMaxCount == 0 {
		return nil
	}

	since := time.Now().Add(-s.Config.AntispamWindow)
	count, err := s.Storage.CountPendingSince(reporterID, since)
	if err != nil {
		return err
	}

	if count >= int64(s.Config.AntispamMaxCount) {
		return &RateLimitedError{Max: s.Config.AntispamMaxCount, Window: s.Config.AntispamWindow}
	}
	return nil
}

// Enqueue admits a submission into the moderation queue and returns the new
// entry id. For notes a zero projectID is resolved from the parent issue.
func (s *Service) Enqueue(kind models.Kind, projectID uint, reporterID uint, parentID uint, payload json.RawMessage) (uint, error) {
	if kind == models.KindNote && projectID == 0 {
		resolved, err := s.Directory.IssueProject(parentID)
		if err != nil {
			return 0, err
		}
		projectID = resolved
	}

	if err := s.CheckAdmission(reporterID); err != nil {
		return 0, err
	}

	entry := &models.QueueEntry{
		Kind:        kind,
		ProjectID:   projectID,
		ReporterID:  reporterID,
		ParentID:    parentID,
		Data:        string(payload),
		SubmittedAt: time.Now(),
		Status:      models.StatusPending,
	}
	if err := s.Storage.InsertEntry(entry); err != nil {
		return 0, err
	}

	s.publishEvent(models.EventEnqueued, entry, 0)
	return entry.ID, nil
}

// Get loads one entry, enforcing moderation access to its project. Point
// lookups outside the acting user's scope fail with ErrAccessDenied.
func (s *Service) Get(queueID uint, actingUserID uint) (*models.QueueEntry, error) {
	entry, err := s.Storage.GetEntry(queueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !s.Access.HasProjectLevel(s.Config.ModerateThreshold, entry.ProjectID, actingUserID) {
		return nil, ErrAccessDenied
	}
	return entry, nil
}

// Approve materializes the entry's content under the original reporter's
// identity and marks the entry Approved. The materializer call runs inside
// the row-lock window, so a concurrent Approve on the same entry blocks and
// then fails with ErrNotFound instead of creating the content twice. If
// materialization fails the entry stays Pending and the host error
// propagates unchanged.
func (s *Service) Approve(queueID uint, actingUserID uint) (uint, error) {
	entry, err := s.Get(queueID, actingUserID)
	if err != nil {
		return 0, err
	}

	// Revalidate references before touching anything; the queue can outlive
	// the entities it points at.
	if !s.Directory.UserExists(entry.ReporterID) || !s.Directory.UserEnabled(entry.ReporterID) {
		return 0, &StaleReferenceError{Entity: "reporter", ID: entry.ReporterID}
	}
	if !s.Directory.ProjectExists(entry.ProjectID) || !s.Directory.ProjectEnabled(entry.ProjectID) {
		return 0, &StaleReferenceError{Entity: "project", ID: entry.ProjectID}
	}
	if entry.Kind == models.KindNote && !s.Directory.IssueExists(entry.ParentID) {
		return 0, &StaleReferenceError{Entity: "issue", ID: entry.ParentID}
	}

	var resultID uint
	updated, err := s.Storage.TransitionLocked(queueID, models.StatusApproved, actingUserID, func(locked *models.QueueEntry) error {
		// Impersonation is a single explicit parameter: content is created
		// attributed to the reporter while the transition itself records the
		// moderator. No shared acting-identity state is mutated.
		payload := json.RawMessage(locked.Data)
		var createErr error
		if locked.Kind == models.KindIssue {
			resultID, createErr = s.Materializer.CreateIssue(locked.ReporterID, payload)
		} else {
			resultID, createErr = s.Materializer.CreateNote(locked.ReporterID, locked.ParentID, payload)
		}
		return createErr
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, storage.ErrConflict) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	s.publishEvent(models.EventApproved, updated, 0)
	return resultID, nil
}

// Reject marks a pending entry Rejected and, when enabled, notifies the
// reporter. The notification is best-effort: a delivery failure is logged
// and never reverses the decision.
func (s *Service) Reject(queueID uint, actingUserID uint, reason string) error {
	if _, err := s.Get(queueID, actingUserID); err != nil {
		return err
	}

	entry, err := s.Storage.TransitionLocked(queueID, models.StatusRejected, actingUserID, nil)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, storage.ErrConflict) {
			return ErrNotFound
		}
		return err
	}

	if s.Config.NotifyOnReject {
		template := TemplateIssueRejected
		if entry.Kind == models.KindNote {
			template = TemplateNoteRejected
		}
		s.notify(entry, actingUserID, template, reason)
	}

	s.publishEvent(models.EventRejected, entry, 0)
	return nil
}

// MarkSpam flags every non-Approved entry of the target's reporter as Spam
// in one atomic update, then disables the reporter's account. Returns the
// number of entries changed. The reporter notification, when enabled, is
// sent first, while the account can still receive it.
func (s *Service) MarkSpam(queueID uint, actingUserID uint) (int64, error) {
	entry, err := s.Get(queueID, actingUserID)
	if err != nil {
		return 0, err
	}

	if s.Config.NotifyOnSpam {
		template := TemplateIssueSpam
		if entry.Kind == models.KindNote {
			template = TemplateNoteSpam
		}
		s.notify(entry, actingUserID, template, "")
	}

	count, err := s.Storage.MarkReporterSpam(entry.ReporterID, actingUserID)
	if err != nil {
		return 0, err
	}

	// Disabling is idempotent: an already-disabled or deleted account is
	// not an error.
	if s.Directory.UserExists(entry.ReporterID) {
		if err := s.Directory.DisableUser(entry.ReporterID); err != nil {
			return count, err
		}
	}

	s.publishEvent(models.EventSpam, entry, count)
	return count, nil
}

// Delete hard-deletes one entry without recording a decision.
func (s *Service) Delete(queueID uint) error {
	entry, err := s.Storage.GetEntry(queueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.Storage.DeleteEntry(queueID); err != nil {
		return err
	}

	s.publishEvent(models.EventDeleted, entry, 0)
	return nil
}

// DeleteByProject purges all entries of a deleted project.
func (s *Service) DeleteByProject(projectID uint) error {
	return s.Storage.DeleteByProject(projectID)
}

// DeleteByUser purges all entries reported by a deleted user.
func (s *Service) DeleteByUser(userID uint) error {
	return s.Storage.DeleteByUser(userID)
}

// Cleanup removes decided entries older than the retention period. Pending
// entries are never removed, regardless of age. Idempotent and safe to run
// concurrently, so it can be fired opportunistically on queue views.
func (s *Service) Cleanup() (int64, error) {
	cutoff := time.Now().Add(-config.RetentionPeriod)
	removed, err := s.Storage.CleanupModerated(cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("Moderation cleanup removed %d entries moderated before %s", removed, cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

// ListPending returns the entries the acting user may moderate,
// newest-submitted first, capped at the queue page size. A user with
// moderation access to no project gets an empty page, not an error.
func (s *Service) ListPending(projectScope uint, includeModerated bool, actingUserID uint) (*storage.PendingPage, error) {
	projectIDs, err := s.accessibleProjects(projectScope, actingUserID)
	if err != nil {
		return nil, err
	}
	return s.Storage.ListEntries(projectIDs, includeModerated, config.QueuePageSize)
}

// ListHistory returns decided entries the acting user may see,
// newest-moderated first, capped at limit.
func (s *Service) ListHistory(projectScope uint, limit int, actingUserID uint) ([]models.QueueEntry, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}

	projectIDs, err := s.accessibleProjects(projectScope, actingUserID)
	if err != nil {
		return nil, err
	}
	return s.Storage.ListHistory(projectIDs, limit)
}

// CountPending counts pending entries within the acting user's scope.
func (s *Service) CountPending(projectScope uint, actingUserID uint) (int64, error) {
	projectIDs, err := s.accessibleProjects(projectScope, actingUserID)
	if err != nil {
		return 0, err
	}
	return s.Storage.CountPending(projectIDs)
}

// ModeratedProjects returns every project the user meets the moderation
// threshold for. Used to fix a live-feed client's scope at connect time.
func (s *Service) ModeratedProjects(userID uint) ([]uint, error) {
	return s.accessibleProjects(AllProjects, userID)
}

// accessibleProjects resolves a project scope to the concrete set of
// projects the user meets the moderation threshold for. A scope naming one
// project the user cannot moderate resolves to the empty set, which listing
// queries treat as zero results.
func (s *Service) accessibleProjects(projectScope uint, userID uint) ([]uint, error) {
	if projectScope == AllProjects {
		return s.Access.AccessibleProjects(s.Config.ModerateThreshold, userID)
	}

	if !s.Access.HasProjectLevel(s.Config.ModerateThreshold, projectScope, userID) {
		return nil, nil
	}
	return []uint{projectScope}, nil
}

// notify sends a reporter notification, best-effort. Skipped entirely for
// disabled reporters, mirroring how the host suppresses mail to them.
func (s *Service) notify(entry *models.QueueEntry, moderatorID uint, template string, reason string) {
	if !s.Directory.UserEnabled(entry.ReporterID) {
		log.Printf("Skipped %s notification for disabled reporter %d", template, entry.ReporterID)
		return
	}

	context := map[string]interface{}{
		"queue_id":     entry.ID,
		"kind":         string(entry.Kind),
		"submitted_at": entry.SubmittedAt,
	}
	if reason != "" {
		context["reason"] = reason
	}
	if s.Config.IncludeModerator {
		context["moderator_id"] = moderatorID
	}

	// Surface the submitted content so the notice can quote it back.
	var payload struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Text        string `json:"text"`
	}
	if err := json.Unmarshal([]byte(entry.Data), &payload); err == nil {
		if entry.Kind == models.KindIssue {
			context["summary"] = payload.Summary
			context["description"] = payload.Description
		} else {
			context["text"] = payload.Text
		}
	}

	if err := s.Notifier.Notify(entry.ReporterID, template, context); err != nil {
		log.Printf("ERROR: Failed to send %s notification to reporter %d: %v", template, entry.ReporterID, err)
	}
}

func (s *Service) publishEvent(action string, entry *models.QueueEntry, spamCount int64) {
	s.Storage.PublishEvent(models.QueueEvent{
		Action:     action,
		QueueID:    entry.ID,
		Kind:       entry.Kind,
		ProjectID:  entry.ProjectID,
		ReporterID: entry.ReporterID,
		Status:     entry.Status.String(),
		SpamCount:  spamCount,
	})
}
