package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/moderate"
)

// RegisterRoutes mounts the moderation REST surface.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	group := r.Group("/moderate", h.AuthRequired())

	group.GET("/queue", h.GetQueue)
	group.GET("/history", h.GetHistory)
	group.GET("/stats", h.GetStats)
	group.GET("/ws", h.ServeWebSocket)

	group.POST("/enqueue", h.Enqueue)
	group.POST("/approve/:queue_id", h.Approve)
	group.POST("/reject/:queue_id", h.Reject)
	group.POST("/spam/:queue_id", h.Spam)
	group.DELETE("/:queue_id", h.Delete)
}

// GetQueue returns pending (optionally all) entries visible to the acting
// moderator. Retention cleanup is fired opportunistically here, the same
// trigger point the original queue page uses.
func (h *Handler) GetQueue(c *gin.Context) {
	// A cleanup hiccup is logged by the engine and must not break listing.
	_, _ = h.Moderator.Cleanup()

	scope := queryUint(c, "project_id")
	includeModerated := c.Query("moderated") == "1"

	page, err := h.Moderator.ListPending(scope, includeModerated, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, itemResponse(entry))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"has_more":    page.HasMore,
		"total_count": page.TotalCount,
	})
}

// GetHistory returns decided entries, newest-moderated first.
func (h *Handler) GetHistory(c *gin.Context) {
	scope := queryUint(c, "project_id")
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.Moderator.ListHistory(scope, limit, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		items = append(items, itemResponse(entry))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetStats returns the pending count within the acting user's scope.
func (h *Handler) GetStats(c *gin.Context) {
	scope := queryUint(c, "project_id")

	count, err := h.Moderator.CountPending(scope, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending_count": count})
}

type enqueueRequest struct {
	Kind      string          `json:"kind" binding:"required,oneof=issue note"`
	ProjectID uint            `json:"project_id"`
	ParentID  uint            `json:"parent_id"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

// Enqueue is the host-facing submission hook: it applies the bypass policy
// and, when moderation is needed, parks the payload in the queue. The
// reporter is the authenticated caller.
func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reporterID := actingUser(c)
	kind := models.Kind(req.Kind)

	var bypass bool
	if kind == models.KindIssue {
		bypass = h.Moderator.ShouldBypassIssue(req.ProjectID, reporterID)
	} else {
		var err error
		bypass, err = h.Moderator.ShouldBypassNote(req.ParentID, reporterID)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	if bypass {
		// The host proceeds with normal creation; nothing is queued.
		c.JSON(http.StatusOK, gin.H{"moderated": false})
		return
	}

	queueID, err := h.Moderator.Enqueue(kind, req.ProjectID, reporterID, req.ParentID, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"moderated": true, "queue_id": queueID})
}

// Approve materializes the entry under the reporter's identity.
func (h *Handler) Approve(c *gin.Context) {
	queueID, ok := paramQueueID(c)
	if !ok {
		return
	}

	resultID, err := h.Moderator.Approve(queueID, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_id":  queueID,
		"status":    models.StatusApproved.String(),
		"result_id": resultID,
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject declines the entry, with an optional reason carried into the
// reporter notification.
func (h *Handler) Reject(c *gin.Context) {
	queueID, ok := paramQueueID(c)
	if !ok {
		return
	}

	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.Moderator.Reject(queueID, actingUser(c), req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_id": queueID,
		"status":   models.StatusRejected.String(),
	})
}

// Spam flags the entry's reporter: every non-approved entry of theirs goes
// to Spam and the account is disabled.
func (h *Handler) Spam(c *gin.Context) {
	queueID, ok := paramQueueID(c)
	if !ok {
		return
	}

	count, err := h.Moderator.MarkSpam(queueID, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_id":   queueID,
		"status":     models.StatusSpam.String(),
		"spam_count": count,
	})
}

// Delete purges one entry without recording a decision.
func (h *Handler) Delete(c *gin.Context) {
	queueID, ok := paramQueueID(c)
	if !ok {
		return
	}

	if err := h.Moderator.Delete(queueID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue_id": queueID, "deleted": true})
}

func itemResponse(entry models.QueueEntry) gin.H {
	item := gin.H{
		"id":           entry.ID,
		"kind":         entry.Kind,
		"project_id":   entry.ProjectID,
		"reporter_id":  entry.ReporterID,
		"submitted_at": entry.SubmittedAt,
		"status":       int(entry.Status),
		"status_name":  entry.Status.String(),
	}
	if entry.Kind == models.KindNote {
		item["parent_id"] = entry.ParentID
	}
	if entry.Status.Terminal() {
		item["moderator_id"] = entry.ModeratorID
		item["moderated_at"] = entry.ModeratedAt
	}
	return item
}

func paramQueueID(c *gin.Context) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param("queue_id"), 10, 32)
	if err != nil || raw == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "queue_id not specified or invalid"})
		return 0, false
	}
	return uint(raw), true
}

func queryUint(c *gin.Context, key string) uint {
	raw, _ := strconv.ParseUint(c.Query(key), 10, 32)
	return uint(raw)
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Anything unrecognized is surfaced verbatim as a validation failure, which
// covers errors the content materializer propagates unchanged.
func respondError(c *gin.Context, err error) {
	var rateLimited *moderate.RateLimitedError
	var stale *moderate.StaleReferenceError

	switch {
	case errors.Is(err, moderate.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, moderate.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &rateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":          rateLimited.Error(),
			"limit":          rateLimited.Max,
			"window_seconds": int(rateLimited.Window.Seconds()),
		})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{
			"error":  stale.Error(),
			"entity": stale.Entity,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
