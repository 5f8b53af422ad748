package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mantishub/Moderate/internal/models"
)

// EventChannel is the Redis pub/sub channel carrying queue events.
const EventChannel = "moderate:events"

// ErrConflict is returned when a conditional transition finds the entry in a
// state the transition table does not allow. A concurrent moderator won the
// race, or the entry was already decided.
var ErrConflict = errors.New("queue entry not in expected state")

// PendingPage is the result of a capped pending-queue listing.
type PendingPage struct {
	Items []models.QueueEntry
	// HasMore is true when more rows matched than the page cap.
	HasMore bool
	// TotalCount ignores the cap.
	TotalCount int64
}

type Storage interface {
	InsertEntry(entry *models.QueueEntry) error
	GetEntry(queueID uint) (*models.QueueEntry, error)

	CountPendingSince(reporterID uint, since time.Time) (int64, error)
	CountPending(projectIDs []uint) (int64, error)
	ListEntries(projectIDs []uint, includeModerated bool, limit int) (*PendingPage, error)
	ListHistory(projectIDs []uint, limit int) ([]models.QueueEntry, error)

	TransitionLocked(queueID uint, target models.Status, moderatorID uint, during func(entry *models.QueueEntry) error) (*models.QueueEntry, error)
	MarkReporterSpam(reporterID uint, moderatorID uint) (int64, error)

	DeleteEntry(queueID uint) error
	DeleteByProject(projectID uint) error
	DeleteByUser(userID uint) error
	CleanupModerated(cutoff time.Time) (int64, error)

	PublishEvent(event models.QueueEvent)
}

// Service is the gorm/redis-backed Storage implementation.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// InsertEntry persists a new queue entry. The database assigns the id.
func (s *Service) InsertEntry(entry *models.QueueEntry) error {
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now()
	}
	if err := s.DB.Create(entry).Error; err != nil {
		log.Printf("ERROR: Failed to insert queue entry for reporter %d: %v", entry.ReporterID, err)
		return err
	}
	return nil
}

// GetEntry loads one entry by id. Returns gorm.ErrRecordNotFound when the
// id is unknown.
func (s *Service) GetEntry(queueID uint) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := s.DB.First(&entry, queueID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountPendingSince counts the reporter's Pending entries submitted at or
// after the given time. Used by admission control before inserting, so the
// entry being created is never part of its own count.
func (s *Service) CountPendingSince(reporterID uint, since time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(&models.QueueEntry{}).
		Where("reporter_id = ? AND status = ? AND submitted_at >= ?",
			reporterID, models.StatusPending, since).
		Count(&count).Error
	return count, err
}

// CountPending counts Pending entries within the given projects.
func (s *Service) CountPending(projectIDs []uint) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := s.DB.Model(&models.QueueEntry{}).
		Where("status = ?", models.StatusPending).
		Where("project_id = ANY(?)", pq.Array(projectIDs)).
		Count(&count).Error
	return count, err
}

// ListEntries returns entries within the given projects, newest-submitted
// first. Fetches limit+1 rows to detect truncation and counts the full
// match set separately.
func (s *Service) ListEntries(projectIDs []uint, includeModerated bool, limit int) (*PendingPage, error) {
	if len(projectIDs) == 0 {
		return &PendingPage{Items: []models.QueueEntry{}}, nil
	}

	query := s.DB.Model(&models.QueueEntry{}).
		Where("project_id = ANY(?)", pq.Array(projectIDs))
	if !includeModerated {
		query = query.Where("status = ?", models.StatusPending)
	}

	page := &PendingPage{}
	if err := query.Count(&page.TotalCount).Error; err != nil {
		log.Printf("ERROR: Failed to count queue entries: %v", err)
		return nil, err
	}

	var items []models.QueueEntry
	if err := query.Order("submitted_at DESC").Limit(limit + 1).Find(&items).Error; err != nil {
		log.Printf("ERROR: Failed to list queue entries: %v", err)
		return nil, err
	}

	if len(items) > limit {
		items = items[:limit]
		page.HasMore = true
	}
	page.Items = items
	return page, nil
}

// ListHistory returns decided entries within the given projects,
// newest-moderated first, capped at limit.
func (s *Service) ListHistory(projectIDs []uint, limit int) ([]models.QueueEntry, error) {
	if len(projectIDs) == 0 {
		return []models.QueueEntry{}, nil
	}

	var items []models.QueueEntry
	err := s.DB.
		Where("status IN ?", []models.Status{models.StatusApproved, models.StatusRejected, models.StatusSpam}).
		Where("project_id = ANY(?)", pq.Array(projectIDs)).
		Order("moderated_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		log.Printf("ERROR: Failed to list moderation history: %v", err)
		return nil, err
	}
	return items, nil
}

// TransitionLocked moves one entry to the target status under a row lock.
// The callback, when non-nil, runs while the lock is held and before the
// status is written; if it fails the transaction rolls back and the entry is
// left untouched. A concurrent call on the same entry blocks on the lock and
// then fails with ErrConflict, so at most one transition out of Pending ever
// commits.
func (s *Service) TransitionLocked(queueID uint, target models.Status, moderatorID uint, during func(entry *models.QueueEntry) error) (*models.QueueEntry, error) {
	var entry models.QueueEntry

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&entry, queueID).Error; err != nil {
			return err
		}

		if !entry.Status.CanTransition(target) {
			return ErrConflict
		}

		if during != nil {
			if err := during(&entry); err != nil {
				return err
			}
		}

		entry.Status = target
		entry.ModeratorID = moderatorID
		entry.ModeratedAt = time.Now()

		return tx.Model(&models.QueueEntry{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"status":       entry.Status,
				"moderator_id": entry.ModeratorID,
				"moderated_at": entry.ModeratedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkReporterSpam flags every non-Approved entry of the reporter as Spam in
// one statement, stamping moderator and timestamp uniformly. Returns the
// number of rows changed.
func (s *Service) MarkReporterSpam(reporterID uint, moderatorID uint) (int64, error) {
	result := s.DB.Model(&models.QueueEntry{}).
		Where("reporter_id = ? AND status <> ?", reporterID, models.StatusApproved).
		Updates(map[string]interface{}{
			"status":       models.StatusSpam,
			"moderator_id": moderatorID,
			"moderated_at": time.Now(),
		})
	if result.Error != nil {
		log.Printf("ERROR: Failed to mark reporter %d entries as spam: %v", reporterID, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteEntry removes one entry without recording a decision.
func (s *Service) DeleteEntry(queueID uint) error {
	return s.DB.Delete(&models.QueueEntry{}, queueID).Error
}

// DeleteByProject removes every entry of a deleted project.
func (s *Service) DeleteByProject(projectID uint) error {
	return s.DB.Where("project_id = ?", projectID).Delete(&models.QueueEntry{}).Error
}

// DeleteByUser removes every entry reported by a deleted user.
func (s *Service) DeleteByUser(userID uint) error {
	return s.DB.Where("reporter_id = ?", userID).Delete(&models.QueueEntry{}).Error
}

// CleanupModerated deletes decided entries moderated before the cutoff.
// Pending entries are never touched.
func (s *Service) CleanupModerated(cutoff time.Time) (int64, error) {
	result := s.DB.
		Where("status IN ?", []models.Status{models.StatusApproved, models.StatusRejected, models.StatusSpam}).
		Where("moderated_at < ?", cutoff).
		Delete(&models.QueueEntry{})
	if result.Error != nil {
		log.Printf("ERROR: Failed to clean up moderated entries: %v", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PublishEvent broadcasts a queue event over Redis Pub/Sub. Best-effort:
// a publish failure is logged, never surfaced, so moderation decisions do
// not depend on the feed.
func (s *Service) PublishEvent(event models.QueueEvent) {
	if s.Redis == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: Failed to encode queue event for entry %d: %v", event.QueueID, err)
		return
	}

	if err := s.Redis.Publish(s.Ctx, EventChannel, payload).Err(); err != nil {
		log.Printf("ERROR: Failed to publish queue event for entry %d: %v", event.QueueID, err)
	}
}
