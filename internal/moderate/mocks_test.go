package moderate_test

import (
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/storage"
)

// MockStorage is a mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) InsertEntry(entry *models.QueueEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockStorage) GetEntry(queueID uint) (*models.QueueEntry, error) {
	args := m.Called(queueID)
	entry, _ := args.Get(0).(*models.QueueEntry)
	return entry, args.Error(1)
}

func (m *MockStorage) CountPendingSince(reporterID uint, since time.Time) (int64, error) {
	args := m.Called(reporterID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CountPending(projectIDs []uint) (int64, error) {
	args := m.Called(projectIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ListEntries(projectIDs []uint, includeModerated bool, limit int) (*storage.PendingPage, error) {
	args := m.Called(projectIDs, includeModerated, limit)
	page, _ := args.Get(0).(*storage.PendingPage)
	return page, args.Error(1)
}

func (m *MockStorage) ListHistory(projectIDs []uint, limit int) ([]models.QueueEntry, error) {
	args := m.Called(projectIDs, limit)
	items, _ := args.Get(0).([]models.QueueEntry)
	return items, args.Error(1)
}

// TransitionLocked mirrors the real contract: the configured entry is handed
// to the callback under the "lock", a callback error aborts the transition,
// and a successful transition stamps status, moderator and timestamp.
func (m *MockStorage) TransitionLocked(queueID uint, target models.Status, moderatorID uint, during func(entry *models.QueueEntry) error) (*models.QueueEntry, error) {
	args := m.Called(queueID, target, moderatorID)
	entry, _ := args.Get(0).(*models.QueueEntry)
	if args.Error(1) != nil {
		return nil, args.Error(1)
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
	return entry, nil
}

func (m *MockStorage) MarkReporterSpam(reporterID uint, moderatorID uint) (int64, error) {
	args := m.Called(reporterID, moderatorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) DeleteEntry(queueID uint) error {
	args := m.Called(queueID)
	return args.Error(0)
}

func (m *MockStorage) DeleteByProject(projectID uint) error {
	args := m.Called(projectID)
	return args.Error(0)
}

func (m *MockStorage) DeleteByUser(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) CleanupModerated(cutoff time.Time) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) PublishEvent(event models.QueueEvent) {
	m.Called(event)
}

// MockAccess is a mock implementation of moderate.AccessChecker.
type MockAccess struct {
	mock.Mock
}

func (m *MockAccess) HasProjectLevel(threshold int, projectID uint, userID uint) bool {
	args := m.Called(threshold, projectID, userID)
	return args.Bool(0)
}

func (m *MockAccess) HasGlobalLevel(threshold int, userID uint) bool {
	args := m.Called(threshold, userID)
	return args.Bool(0)
}

func (m *MockAccess) AccessibleProjects(threshold int, userID uint) ([]uint, error) {
	args := m.Called(threshold, userID)
	ids, _ := args.Get(0).([]uint)
	return ids, args.Error(1)
}

// MockDirectory is a mock implementation of moderate.Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) UserExists(userID uint) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockDirectory) UserEnabled(userID uint) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockDirectory) DisableUser(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockDirectory) ProjectExists(projectID uint) bool {
	args := m.Called(projectID)
	return args.Bool(0)
}

func (m *MockDirectory) ProjectEnabled(projectID uint) bool {
	args := m.Called(projectID)
	return args.Bool(0)
}

func (m *MockDirectory) IssueExists(issueID uint) bool {
	args := m.Called(issueID)
	return args.Bool(0)
}

func (m *MockDirectory) IssueReporter(issueID uint) (uint, error) {
	args := m.Called(issueID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockDirectory) IssueProject(issueID uint) (uint, error) {
	args := m.Called(issueID)
	return args.Get(0).(uint), args.Error(1)
}

// MockMaterializer is a mock implementation of moderate.Materializer.
type MockMaterializer struct {
	mock.Mock
}

func (m *MockMaterializer) CreateIssue(actingUserID uint, payload json.RawMessage) (uint, error) {
	args := m.Called(actingUserID, payload)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockMaterializer) CreateNote(actingUserID uint, issueID uint, payload json.RawMessage) (uint, error) {
	args := m.Called(actingUserID, issueID, payload)
	return args.Get(0).(uint), args.Error(1)
}

// MockNotifier is a mock implementation of moderate.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(userID uint, template string, msgContext map[string]interface{}) error {
	args := m.Called(userID, template, msgContext)
	return args.Error(0)
}
