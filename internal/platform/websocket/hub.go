// Package websocket pushes per-employee events (new notifications, unread
// counts) to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventNotification = "notification"
	EventUnreadCount  = "unread_count"
)

// Event is the envelope written to clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Client is one WebSocket connection. An employee may hold several
// (one per open tab).
type Client struct {
	ID         string
	EmployeeID uuid.UUID
	Send       chan []byte
}

func NewClient(employeeID uuid.UUID) *Client {
	return &Client{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Send:       make(chan []byte, 256),
	}
}

// EmployeeTopic is the topic every connection of an employee is subscribed to.
func EmployeeTopic(id uuid.UUID) string {
	return "employee/" + id.String()
}

// Hub tracks clients by topic. All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> clients
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "websocket").Logger(),
	}
}

// Register subscribes the client to its employee topic.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := EmployeeTopic(client.EmployeeID)
	h.all[client] = struct{}{}
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

// Unregister removes the client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	topic := EmployeeTopic(client.EmployeeID)
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Broadcast sends an event to every client on the topic. Clients whose
// buffer is full miss the event rather than block the sender.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Msg("client buffer full, event dropped")
		}
	}
}

// NotifyUser pushes payload to every open connection of the employee.
func (h *Hub) NotifyUser(_ context.Context, employeeID uuid.UUID, payload interface{}) error {
	return h.publish(employeeID, EventNotification, payload)
}

// UpdateUnreadCount pushes the employee's current unread notification count.
func (h *Hub) UpdateUnreadCount(_ context.Context, employeeID uuid.UUID, count int) error {
	return h.publish(employeeID, EventUnreadCount, map[string]int{"count": count})
}

func (h *Hub) publish(employeeID uuid.UUID, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	topic := EmployeeTopic(employeeID)
	h.Broadcast(topic, Event{
		Type:      eventType,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
