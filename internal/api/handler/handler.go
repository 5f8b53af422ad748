package handler

import (
	"encoding/json"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/queuehub"
	"github.com/mantishub/Moderate/internal/storage"
)

// Moderator is the slice of the moderation engine the REST surface needs.
type Moderator interface {
	ShouldBypassIssue(projectID uint, userID uint) bool
	ShouldBypassNote(issueID uint, userID uint) (bool, error)
	Enqueue(kind models.Kind, projectID uint, reporterID uint, parentID uint, payload json.RawMessage) (uint, error)

	Approve(queueID uint, actingUserID uint) (uint, error)
	Reject(queueID uint, actingUserID uint, reason string) error
	MarkSpam(queueID uint, actingUserID uint) (int64, error)
	Delete(queueID uint) error
	Cleanup() (int64, error)

	ListPending(projectScope uint, includeModerated bool, actingUserID uint) (*storage.PendingPage, error)
	ListHistory(projectScope uint, limit int, actingUserID uint) ([]models.QueueEntry, error)
	CountPending(projectScope uint, actingUserID uint) (int64, error)
	ModeratedProjects(userID uint) ([]uint, error)
}

// Handler wires the moderation engine and the live feed hub into gin.
type Handler struct {
	Moderator Moderator
	Hub       *queuehub.ManagerService
	JWTSecret []byte
}

func NewHandler(moderator Moderator, hub *queuehub.ManagerService, jwtSecret []byte) *Handler {
	return &Handler{
		Moderator: moderator,
		Hub:       hub,
		JWTSecret: jwtSecret,
	}
}
