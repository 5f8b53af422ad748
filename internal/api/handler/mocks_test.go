package handler_test

import (
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/storage"
)

// MockModerator is a mock implementation of handler.Moderator.
type MockModerator struct {
	mock.Mock
}

func (m *MockModerator) ShouldBypassIssue(projectID uint, userID uint) bool {
	args := m.Called(projectID, userID)
	return args.Bool(0)
}

func (m *MockModerator) ShouldBypassNote(issueID uint, userID uint) (bool, error) {
	args := m.Called(issueID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockModerator) Enqueue(kind models.Kind, projectID uint, reporterID uint, parentID uint, payload json.RawMessage) (uint, error) {
	args := m.Called(kind, projectID, reporterID, parentID, payload)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockModerator) Approve(queueID uint, actingUserID uint) (uint, error) {
	args := m.Called(queueID, actingUserID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockModerator) Reject(queueID uint, actingUserID uint, reason string) error {
	args := m.Called(queueID, actingUserID, reason)
	return args.Error(0)
}

func (m *MockModerator) MarkSpam(queueID uint, actingUserID uint) (int64, error) {
	args := m.Called(queueID, actingUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockModerator) Delete(queueID uint) error {
	args := m.Called(queueID)
	return args.Error(0)
}

func (m *MockModerator) Cleanup() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockModerator) ListPending(projectScope uint, includeModerated bool, actingUserID uint) (*storage.PendingPage, error) {
	args := m.Called(projectScope, includeModerated, actingUserID)
	page, _ := args.Get(0).(*storage.PendingPage)
	return page, args.Error(1)
}

func (m *MockModerator) ListHistory(projectScope uint, limit int, actingUserID uint) ([]models.QueueEntry, error) {
	args := m.Called(projectScope, limit, actingUserID)
	items, _ := args.Get(0).([]models.QueueEntry)
	return items, args.Error(1)
}

func (m *MockModerator) CountPending(projectScope uint, actingUserID uint) (int64, error) {
	args := m.Called(projectScope, actingUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockModerator) ModeratedProjects(userID uint) ([]uint, error) {
	args := m.Called(userID)
	ids, _ := args.Get(0).([]uint)
	return ids, args.Error(1)
}
