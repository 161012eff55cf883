package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections and fans out per-server updates.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection         // connection_id -> connection
	servers     map[string]map[uuid.UUID]struct{} // server_id -> connection ids
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		servers:     make(map[string]map[uuid.UUID]struct{}),
		logger:      logger,
	}
}

// RegisterConnection adds a connection. An empty serverID receives every server's updates.
func (h *Hub) RegisterConnection(id uuid.UUID, conn *Connection, serverID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[id]; exists {
		old.Close()
		h.leaveAllLocked(id)
	}

	h.connections[id] = conn
	h.joinLocked(serverID, id)
	h.logger.Info().Str("connection_id", id.String()).Str("server_id", serverID).Msg("connection registered")
}

// Subscribe moves a connection to another server's feed.
func (h *Hub) Subscribe(id uuid.UUID, serverID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[id]; !exists {
		return
	}
	h.leaveAllLocked(id)
	h.joinLocked(serverID, id)
}

// UnregisterConnection removes a connection.
func (h *Hub) UnregisterConnection(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[id]; exists {
		conn.Close()
		delete(h.connections, id)
		h.logger.Info().Str("connection_id", id.String()).Msg("connection unregistered")
	}
	h.leaveAllLocked(id)
}

func (h *Hub) joinLocked(serverID string, id uuid.UUID) {
	set, ok := h.servers[serverID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		h.servers[serverID] = set
	}
	set[id] = struct{}{}
}

func (h *Hub) leaveAllLocked(id uuid.UUID) {
	for serverID, set := range h.servers {
		delete(set, id)
		if len(set) == 0 {
			delete(h.servers, serverID)
		}
	}
}

// BroadcastToServer sends a message to the server's subscribers and to wildcard subscribers.
func (h *Hub) BroadcastToServer(serverID string, msg Message) error {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.servers[serverID])+len(h.servers[""]))
	for _, key := range []string{serverID, ""} {
		for id := range h.servers[key] {
			if conn, ok := h.connections[id]; ok {
				targets = append(targets, conn)
			}
		}
		if serverID == "" {
			break
		}
	}
	h.mu.RUnlock()

	var firstErr error
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).Str("server_id", serverID).Msg("broadcast_send_failed")
		}
	}
	return firstErr
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection. conn may be nil in tests.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Outbox exposes queued messages; used by tests.
func (c *Connection) Outbox() <-chan Message {
	return c.sendCh
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// WritePump sends messages from the send queue and pings idle peers.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	// Set read deadline to 60 seconds, extend on pong
	readDeadline := time.Now().Add(60 * time.Second)
	c.conn.SetReadDeadline(readDeadline)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
