// Package host adapts the tracker's own database tables to the collaborator
// contracts the moderation engine consumes. The service shares the host's
// database the way a tracker plugin does; these adapters stay deliberately
// thin and own no moderation logic.
package host

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// User is the host account row, reduced to what moderation needs.
type User struct {
	ID          uint   `gorm:"primaryKey"`
	Username    string `gorm:"uniqueIndex"`
	Email       string
	Enabled     bool `gorm:"not null;default:true"`
	AccessLevel int  `gorm:"not null;default:25"` // global access level
	// TelegramChatID links the account to a Telegram chat for notices;
	// 0 means not linked.
	TelegramChatID int64
}

// Project is the host project row.
type Project struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	Enabled bool   `gorm:"not null;default:true"`
}

// ProjectAccess is a per-project access override for one user.
type ProjectAccess struct {
	ProjectID   uint `gorm:"primaryKey;autoIncrement:false"`
	UserID      uint `gorm:"primaryKey;autoIncrement:false"`
	AccessLevel int  `gorm:"not null"`
}

// Issue is the host issue row the materializer writes into.
type Issue struct {
	ID          uint `gorm:"primaryKey"`
	ProjectID   uint `gorm:"not null;index"`
	ReporterID  uint `gorm:"not null;index"`
	Summary     string
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

// Note is the host issue-note row.
type Note struct {
	ID         uint `gorm:"primaryKey"`
	IssueID    uint `gorm:"not null;index"`
	ReporterID uint `gorm:"not null;index"`
	Text       string `gorm:"type:text"`
	CreatedAt  time.Time
}

// Service implements the engine's AccessChecker, Directory and Materializer
// contracts against the host tables.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// effectiveLevel is the user's access level within a project: the
// per-project override when one exists, else the global level.
func (s *Service) effectiveLevel(projectID uint, userID uint) int {
	var access ProjectAccess
	err := s.DB.Where("project_id = ? AND user_id = ?", projectID, userID).First(&access).Error
	if err == nil {
		return access.AccessLevel
	}

	var user User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return 0
	}
	return user.AccessLevel
}

func (s *Service) HasProjectLevel(threshold int, projectID uint, userID uint) bool {
	return s.effectiveLevel(projectID, userID) >= threshold
}

func (s *Service) HasGlobalLevel(threshold int, userID uint) bool {
	var user User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return false
	}
	return user.AccessLevel >= threshold
}

// AccessibleProjects returns the enabled projects where the user meets the
// threshold, either globally or through a per-project override.
func (s *Service) AccessibleProjects(threshold int, userID uint) ([]uint, error) {
	var projects []Project
	if err := s.DB.Where("enabled = ?", true).Find(&projects).Error; err != nil {
		return nil, err
	}

	var ids []uint
	for _, project := range projects {
		if s.effectiveLevel(project.ID, userID) >= threshold {
			ids = append(ids, project.ID)
		}
	}
	return ids, nil
}

func (s *Service) UserExists(userID uint) bool {
	var count int64
	s.DB.Model(&User{}).Where("id = ?", userID).Count(&count)
	return count > 0
}

func (s *Service) UserEnabled(userID uint) bool {
	var user User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return false
	}
	return user.Enabled
}

// DisableUser turns off the account. Idempotent: disabling a missing or
// already-disabled account succeeds.
func (s *Service) DisableUser(userID uint) error {
	return s.DB.Model(&User{}).Where("id = ?", userID).Update("enabled", false).Error
}

func (s *Service) ProjectExists(projectID uint) bool {
	var count int64
	s.DB.Model(&Project{}).Where("id = ?", projectID).Count(&count)
	return count > 0
}

func (s *Service) ProjectEnabled(projectID uint) bool {
	var project Project
	if err := s.DB.First(&project, projectID).Error; err != nil {
		return false
	}
	return project.Enabled
}

func (s *Service) IssueExists(issueID uint) bool {
	var count int64
	s.DB.Model(&Issue{}).Where("id = ?", issueID).Count(&count)
	return count > 0
}

func (s *Service) IssueReporter(issueID uint) (uint, error) {
	var issue Issue
	if err := s.DB.First(&issue, issueID).Error; err != nil {
		return 0, err
	}
	return issue.ReporterID, nil
}

func (s *Service) IssueProject(issueID uint) (uint, error) {
	var issue Issue
	if err := s.DB.First(&issue, issueID).Error; err != nil {
		return 0, err
	}
	return issue.ProjectID, nil
}

// TelegramChatID resolves the user's linked Telegram chat.
func (s *Service) TelegramChatID(userID uint) (int64, bool) {
	var user User
	if err := s.DB.First(&user, userID).Error; err != nil || user.TelegramChatID == 0 {
		return 0, false
	}
	return user.TelegramChatID, true
}

// issuePayload / notePayload are the shapes the queue stores and this
// materializer expects back, unchanged.
type issuePayload struct {
	ProjectID   uint   `json:"project_id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type notePayload struct {
	Text string `json:"text"`
}

// CreateIssue materializes a queued issue attributed to the acting user.
func (s *Service) CreateIssue(actingUserID uint, payload json.RawMessage) (uint, error) {
	var data issuePayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return 0, err
	}
	if data.Summary == "" {
		return 0, errors.New("issue summary is required")
	}

	issue := Issue{
		ProjectID:   data.ProjectID,
		ReporterID:  actingUserID,
		Summary:     data.Summary,
		Description: data.Description,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.Create(&issue).Error; err != nil {
		return 0, err
	}
	return issue.ID, nil
}

// CreateNote materializes a queued note attributed to the acting user.
func (s *Service) CreateNote(actingUserID uint, issueID uint, payload json.RawMessage) (uint, error) {
	var data notePayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return 0, err
	}
	if data.Text == "" {
		return 0, errors.New("note text is required")
	}

	note := Note{
		IssueID:    issueID,
		ReporterID: actingUserID,
		Text:       data.Text,
		CreatedAt:  time.Now(),
	}
	if err := s.DB.Create(&note).Error; err != nil {
		return 0, err
	}
	return note.ID, nil
}
