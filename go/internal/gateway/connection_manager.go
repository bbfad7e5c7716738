package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// View identifies which page a connection renders.
type View string

const (
	ViewDisplay View = "display"
	ViewTopic   View = "topic"
	ViewControl View = "control"
)

// Envelope types sent to browsers.
const (
	MessageFrame    = "frame"
	MessageCue      = "cue"
	MessageTopic    = "topic"
	MessageSnapshot = "snapshot"
)

// Envelope is the JSON wrapper of every websocket message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConnectionManager manages WebSocket connections for every view
type ConnectionManager struct {
	// Connection pools organized by view
	viewConnections map[View]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event broadcasting
	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a browser
type Connection struct {
	ID      string
	View    View
	Conn    *websocket.Conn
	Manager *ConnectionManager

	send   chan []byte
	done   chan struct{}
	mu     sync.Mutex
	closed bool

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	View     View
	Envelope Envelope
}

// ConnectionStats summarizes the open connections.
type ConnectionStats struct {
	TotalConnections int          `json:"total_connections"`
	ViewConnections  map[View]int `json:"view_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Views are opened from the same host; overlays may embed them anywhere.
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &ConnectionManager{
		viewConnections: make(map[View]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket for view
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, view View) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		View:        view,
		Conn:        conn,
		Manager:     cm,
		send:        make(chan []byte, cm.config.SendBufferSize),
		done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("view", string(view)).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.viewConnections[conn.View] == nil {
		cm.viewConnections[conn.View] = make(map[*Connection]bool)
	}
	cm.viewConnections[conn.View][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("view", string(conn.View)).
		Int("total_connections", len(cm.viewConnections[conn.View])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.viewConnections[conn.View]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			conn.close()

			// Clean up empty view pools
			if len(connections) == 0 {
				delete(cm.viewConnections, conn.View)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("view", string(conn.View)).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToView sends an envelope to every connection of view
func (cm *ConnectionManager) BroadcastToView(view View, env Envelope) {
	select {
	case cm.broadcastCh <- BroadcastMessage{View: view, Envelope: env}:
	default:
		log.Warn().Str("view", string(view)).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	for conn := range cm.viewConnections[message.View] {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Envelope)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal envelope for broadcast")
		return
	}

	for _, conn := range targets {
		conn.enqueue(data)
	}

	log.Debug().
		Str("type", message.Envelope.Type).
		Str("view", string(message.View)).
		Int("connections", len(targets)).
		Msg("envelope broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{ViewConnections: make(map[View]int)}
	for view, connections := range cm.viewConnections {
		stats.ViewConnections[view] = len(connections)
		stats.TotalConnections += len(connections)
	}
	return stats
}

// Done is closed once the connection is gone.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Send queues env for the browser. It reports false once the connection is
// closed or too slow to keep up.
func (c *Connection) Send(env Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal envelope")
		return false
	}
	return c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	select {
	case c.send <- data:
		c.mu.Unlock()
		return true
	default:
	}
	c.mu.Unlock()

	// Connection is slow/dead, close it
	log.Warn().
		Str("connection_id", c.ID).
		Str("view", string(c.View)).
		Msg("connection send buffer full, closing connection")
	c.Manager.unregisterConnection(c)
	c.Conn.Close()
	return false
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
		close(c.done)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		// Views are receive-only; commands go through the control API.
		log.Debug().
			Str("connection_id", c.ID).
			Str("view", string(c.View)).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
