// Package queuehub fans queue events out to connected moderators. Events
// arrive over Redis Pub/Sub, so every service instance sees transitions made
// by any of them.
package queuehub

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/mantishub/Moderate/internal/models"
	"github.com/mantishub/Moderate/internal/storage"
)

// ManagerService owns the set of connected moderator clients.
type ManagerService struct {
	Clients map[uint]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	Redis *redis.Client

	eventCh chan models.QueueEvent
}

func NewManagerService(rdb *redis.Client) *ManagerService {
	return &ManagerService{
		Clients:      make(map[uint]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Redis:        rdb,
		eventCh:      make(chan models.QueueEvent, 64),
	}
}

// StartPubSubListener subscribes to the queue-event channel and forwards
// decoded events into the hub loop.
func (m *ManagerService) StartPubSubListener() {
	go func() {
		ctx := context.Background()

		pubsub := m.Redis.Subscribe(ctx, storage.EventChannel)
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var event models.QueueEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshalling queue event: %v", err)
				continue
			}
			m.eventCh <- event
		}
	}()
}

// Run is the hub dispatcher. One moderator has at most one live session;
// a new connection replaces the old one.
func (m *ManagerService) Run() {
	if m.Redis != nil {
		m.StartPubSubListener()
	}

	for {
		select {
		case client := <-m.RegisterCh:
			if old, ok := m.Clients[client.GetUserID()]; ok {
				old.Close()
			}
			m.Clients[client.GetUserID()] = client
			log.Printf("Moderator %d connected to queue feed", client.GetUserID())

		case client := <-m.UnregisterCh:
			if current, ok := m.Clients[client.GetUserID()]; ok && current == client {
				delete(m.Clients, client.GetUserID())
				client.Close()
				log.Printf("Moderator %d disconnected from queue feed", client.GetUserID())
			}

		case event := <-m.eventCh:
			m.broadcast(event)
		}
	}
}

// Broadcast hands an event to the dispatcher loop. Used directly by tests
// and by single-instance deployments without Redis.
func (m *ManagerService) Broadcast(event models.QueueEvent) {
	m.eventCh <- event
}

// broadcast delivers an event to every client whose scope covers its
// project. A client with a full send buffer is dropped rather than allowed
// to stall the dispatcher.
func (m *ManagerService) broadcast(event models.QueueEvent) {
	for userID, client := range m.Clients {
		if !client.CanSee(event.ProjectID) {
			continue
		}
		select {
		case client.GetSendChannel() <- event:
		default:
			delete(m.Clients, userID)
			client.Close()
			log.Printf("Dropped slow queue feed client for moderator %d", userID)
		}
	}
}
