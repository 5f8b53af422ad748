package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/queuehub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and streams queue events for the
// projects the moderator can act on. The scope is fixed at connect time.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := actingUser(c)

	projectIDs, err := h.Moderator.ModeratedProjects(userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve moderation scope"})
		return
	}
	if len(projectIDs) == 0 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No moderation access to any project"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	projects := make(map[uint]bool, len(projectIDs))
	for _, id := range projectIDs {
		projects[id] = true
	}

	client := &queuehub.WebSocketClient{
		UserID:   userID,
		Projects: projects,
		Conn:     conn,
		Hub:      h.Hub,
		Send:     make(chan models.QueueEvent, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
