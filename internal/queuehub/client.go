package queuehub

import "github.com/mantishub/Moderate/internal/models"

// Client is one connected moderator session. It abstracts the transport so
// the hub can manage websocket and future client types uniformly.
type Client interface {
	// GetUserID returns the moderator's host user id.
	GetUserID() uint
	// CanSee reports whether the client's moderation scope covers the
	// project. Scope is fixed at connect time.
	CanSee(projectID uint) bool

	// GetSendChannel returns the channel the hub pushes queue events into.
	GetSendChannel() chan<- models.QueueEvent

	// Run starts the client's pumps.
	Run()
	// Close shuts down the client's send channel.
	Close()
}
