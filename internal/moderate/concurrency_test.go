package moderate_test

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/moderate"
	"github.com/mantishub/Moderate/internal/storage"
)

// memoryStore is a minimal in-memory Storage whose TransitionLocked
// serializes on a mutex the way the real implementation serializes on a row
// lock. Only what the concurrency test touches is implemented.
type memoryStore struct {
	mu      sync.Mutex
	entries map[uint]*models.QueueEntry
}

func newMemoryStore(entries ...*models.QueueEntry) *memoryStore {
	store := &memoryStore{entries: make(map[uint]*models.QueueEntry)}
	for _, entry := range entries {
		store.entries[entry.ID] = entry
	}
	return store
}

func (s *memoryStore) InsertEntry(entry *models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uint(len(s.entries) + 1)
	s.entries[entry.ID] = entry
	return nil
}

func (s *memoryStore) GetEntry(queueID uint) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[queueID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *memoryStore) CountPendingSince(uint, time.Time) (int64, error) { return 0, nil }
func (s *memoryStore) CountPending([]uint) (int64, error)              { return 0, nil }

func (s *memoryStore) ListEntries([]uint, bool, int) (*storage.PendingPage, error) {
	return &storage.PendingPage{Items: []models.QueueEntry{}}, nil
}

func (s *memoryStore) ListHistory([]uint, int) ([]models.QueueEntry, error) {
	return []models.QueueEntry{}, nil
}

func (s *memoryStore) TransitionLocked(queueID uint, target models.Status, moderatorID uint, during func(entry *models.QueueEntry) error) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[queueID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if !entry.Status.CanTransition(target) {
		return nil, storage.ErrConflict
	}
	if during != nil {
		if err := during(entry); err != nil {
			return nil, err
		}
	}

	entry.Status = target
	entry.ModeratorID = moderatorID
	entry.ModeratedAt = time.Now()
	copied := *entry
	return &copied, nil
}

func (s *memoryStore) MarkReporterSpam(uint, uint) (int64, error) { return 0, nil }
func (s *memoryStore) DeleteEntry(uint) error                     { return nil }
func (s *memoryStore) DeleteByProject(uint) error                 { return nil }
func (s *memoryStore) DeleteByUser(uint) error                    { return nil }
func (s *memoryStore) CleanupModerated(time.Time) (int64, error)  { return 0, nil }
func (s *memoryStore) PublishEvent(models.QueueEvent)             {}

// allowAll grants every permission and confirms every reference.
type allowAll struct{}

func (allowAll) HasProjectLevel(int, uint, uint) bool       { return true }
func (allowAll) HasGlobalLevel(int, uint) bool              { return true }
func (allowAll) AccessibleProjects(int, uint) ([]uint, error) { return []uint{1}, nil }
func (allowAll) UserExists(uint) bool                       { return true }
func (allowAll) UserEnabled(uint) bool                      { return true }
func (allowAll) DisableUser(uint) error                     { return nil }
func (allowAll) ProjectExists(uint) bool                    { return true }
func (allowAll) ProjectEnabled(uint) bool                   { return true }
func (allowAll) IssueExists(uint) bool                      { return true }
func (allowAll) IssueReporter(uint) (uint, error)           { return 0, nil }
func (allowAll) IssueProject(uint) (uint, error)            { return 1, nil }

// countingMaterializer counts creations, with a small delay to widen the race
// window.
type countingMaterializer struct {
	issues atomic.Int64
}

func (c *countingMaterializer) CreateIssue(uint, json.RawMessage) (uint, error) {
	time.Sleep(5 * time.Millisecond)
	c.issues.Add(1)
	return 77, nil
}

func (c *countingMaterializer) CreateNote(uint, uint, json.RawMessage) (uint, error) {
	c.issues.Add(1)
	return 77, nil
}

type silentNotifier struct{}

func (silentNotifier) Notify(uint, string, map[string]interface{}) error { return nil }

// TestApprove_ConcurrentModerators races two approvals of the same entry:
// exactly one must materialize content, the other must fail without creating
// anything twice.
func TestApprove_ConcurrentModerators(t *testing.T) {
	// Arrange
	store := newMemoryStore(pendingIssue(5))
	creator := &countingMaterializer{}
	svc := moderate.NewService(store, allowAll{}, allowAll{}, creator, silentNotifier{}, testConfig())

	// Act
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = svc.Approve(5, uint(slot+2))
		}(i)
	}
	wg.Wait()

	// Assert: one winner, one loser, one created issue.
	assert.Equal(t, int64(1), creator.issues.Load())

	var failures int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, moderate.ErrNotFound)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	entry, err := store.GetEntry(5)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusApproved, entry.Status)
}
