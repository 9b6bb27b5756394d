package websocket

import (
	"net/http"
	"net/url"
	"time"

	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Config tunes the connections a Handler accepts. Zero values take the
// defaults below.
type Config struct {
	ReadBufferSize    int
	WriteBufferSize   int
	SendBufferSize    int
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	MaxConnections    int
	EnableCompression bool
	// AllowedOrigins lists accepted browser origins; empty or "*" accepts any.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = 1024
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 32
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongTimeout {
		c.PingInterval = (c.PongTimeout * 9) / 10
	}
	return c
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	config   Config
	logger   *logger.Logger
}

func NewHandler(hub *Hub, config Config, log *logger.Logger) *Handler {
	config = config.withDefaults()

	allowed := make(map[string]bool, len(config.AllowedOrigins))
	for _, origin := range config.AllowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			HandshakeTimeout:  config.HandshakeTimeout,
			EnableCompression: config.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 || allowed["*"] {
					return true
				}
				if _, err := url.Parse(origin); err != nil {
					return false
				}
				return allowed[origin]
			},
		},
		config: config,
		logger: log,
	}
}

// Serve upgrades the request and joins the connection to roomID. It
// returns once the client is in the room, so every later Publish to the
// room reaches it. ok is false when no connection was established.
func (h *Handler) Serve(c *gin.Context, roomID string) (client *Client, ok bool) {
	if h.config.MaxConnections > 0 && h.hub.ClientCount() >= h.config.MaxConnections {
		h.logger.WithField("room_id", roomID).Warn("WebSocket connection limit reached")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  gin.H{"code": "STREAM_UNAVAILABLE", "message": "too many open streams"},
		})
		return nil, false
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return nil, false
	}

	client = NewClient(h.hub, conn, roomID, h.config)
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return nil, false
	}
	<-client.joined

	go client.writePump()
	go client.readPump()
	return client, true
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
