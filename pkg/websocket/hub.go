package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
)

// Hub fans messages out to the clients joined to a room. A booking form
// has one room; every browser tab showing it is a client of that room.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type Message struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"room_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]bool),
		logger:     log.WithField("component", "websocket_hub"),
	}
}

// Run processes registrations until ctx is done, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.joinRoom(client, client.RoomID)
	h.logger.WithField("room_id", client.RoomID).Debug("Client registered")
	close(client.joined)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.dropClient(client)
}

// dropClient must be called with the mutex held.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID := range client.rooms {
		if room, exists := h.rooms[roomID]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.logger.WithField("room_id", client.RoomID).Debug("Client unregistered")
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		h.dropClient(client)
	}
}

// Publish sends a message to every client of roomID. It never blocks: a
// client whose buffer is full is disconnected.
func (h *Hub) Publish(roomID, messageType string, data interface{}) {
	h.sendToRoom(roomID, Message{
		Type:      messageType,
		RoomID:    roomID,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	})
}

func (h *Hub) sendToRoom(roomID string, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket message")
		return
	}
	for client := range room {
		select {
		case client.send <- data:
		default:
			h.logger.WithField("room_id", roomID).Warn("Client too slow, disconnecting")
			h.dropClient(client)
		}
	}
}

func (h *Hub) sendTo(client *Client, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clients[client] {
		return
	}
	h.sendToClient(client, message)
}

// sendToClient must be called with the mutex held.
func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket message")
		return
	}
	select {
	case client.send <- data:
	default:
		h.dropClient(client)
	}
}

// CloseRoom disconnects every client of roomID.
func (h *Hub) CloseRoom(roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.rooms[roomID] {
		h.dropClient(client)
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(roomID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
