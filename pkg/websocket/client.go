package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	RoomID     string
	rooms      map[string]bool
	joined     chan struct{}
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID string, config Config) *Client {
	config = config.withDefaults()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, config.SendBufferSize),
		RoomID:     roomID,
		rooms:      make(map[string]bool),
		joined:     make(chan struct{}),
		pongWait:   config.PongTimeout,
		pingPeriod: config.PingInterval,
	}
}

// Send queues a message for this client only. It is dropped when the
// client has already left.
func (c *Client) Send(messageType string, data interface{}) {
	c.hub.sendTo(c, Message{
		Type:      messageType,
		RoomID:    c.RoomID,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	})
}

// readPump keeps the connection alive and notices when the peer leaves.
// Form changes come in over HTTP, so client frames other than ping are
// ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("WebSocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.WithError(err).Debug("Ignoring malformed client message")
		return
	}

	if msg.Type == "ping" {
		c.Send("pong", nil)
	}
}
