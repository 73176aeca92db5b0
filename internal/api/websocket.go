package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"inputoverlay/internal/protocol"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kataras/golog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Consumers connect from a local page, not a browser tab on another origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub keeps the connected consumers and fans messages out to them.
type Hub struct {
	clients    map[*wsClient]bool
	clientsMu  sync.RWMutex
	register   chan *wsClient
	unregister chan *wsClient
	shutdown   chan struct{}
	stopOnce   sync.Once
	dropped    atomic.Uint64
	logger     *golog.Logger
}

// wsClient represents a connected consumer
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	ip   string
}

// NewHub returns a hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		shutdown:   make(chan struct{}),
		logger:     golog.Child("[ws]"),
	}
}

// Run processes registrations until Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.clientsMu.Unlock()
			h.logger.Infof("consumer connected from %s (%d total)", client.ip, n)

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Infof("consumer %s disconnected (%d total)", client.ip, len(h.clients))
			}
			h.clientsMu.Unlock()

		case <-h.shutdown:
			h.clientsMu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			return
		}
	}
}

// Forward sends msg to every consumer. A consumer whose buffer is full
// misses the message; the others are unaffected.
func (h *Hub) Forward(msg protocol.Message) {
	data, err := protocol.Marshal(msg)
	if err != nil {
		h.logger.Errorf("failed to marshal %s message: %v", msg.Channel, err)
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected consumers.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many per-consumer sends were skipped.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Stop disconnects every consumer. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.shutdown) })
}

func (h *Hub) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("failed to upgrade connection: %v", err)
		return
	}

	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, DefaultQueueSize),
		ip:   c.ClientIP(),
	}

	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only services control frames; consumers never send events.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debugf("read error from %s: %v", c.ip, err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
