// Package network is the consumer side of the transport: it connects to a
// host, validates every message at the boundary and feeds the canonical
// events into a sink.
package network

import (
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"inputoverlay/internal/input"
	"inputoverlay/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/kataras/golog"
)

// Dispatcher validates raw messages and publishes the resulting events.
// Messages that fail their channel's schema are counted and skipped.
type Dispatcher struct {
	sink     input.Sink
	rejected atomic.Uint64
	unmapped atomic.Uint64
	logger   *golog.Logger
}

// NewDispatcher creates a dispatcher feeding sink.
func NewDispatcher(sink input.Sink) *Dispatcher {
	return &Dispatcher{sink: sink, logger: golog.Child("[dispatch]")}
}

// HandleRaw decodes one envelope.
func (d *Dispatcher) HandleRaw(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		d.rejected.Add(1)
		d.logger.Debugf("rejected message: %v", err)
		return
	}
	d.Handle(msg)
}

// Handle publishes an already decoded message.
func (d *Dispatcher) Handle(msg protocol.Message) {
	ev, err := msg.Event()
	if err != nil {
		if errors.Is(err, protocol.ErrUnmapped) {
			d.unmapped.Add(1)
		} else {
			d.rejected.Add(1)
		}
		d.logger.Debugf("skipped %s: %v", msg.Channel, err)
		return
	}
	d.sink.Publish(ev)
}

// Rejected counts messages that failed validation.
func (d *Dispatcher) Rejected() uint64 { return d.rejected.Load() }

// Unmapped counts well-formed messages without a canonical mapping.
func (d *Dispatcher) Unmapped() uint64 { return d.unmapped.Load() }

// WSClient handles the WebSocket connection to the host
type WSClient struct {
	hostAddr   string
	token      string
	dispatcher *Dispatcher
	done       chan struct{}
	closeOnce  sync.Once
	logger     *golog.Logger

	// RetryDelay is the pause between reconnection attempts.
	RetryDelay time.Duration

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
}

// NewWSClient creates a new WebSocket client
func NewWSClient(hostAddr, token string, dispatcher *Dispatcher) *WSClient {
	return &WSClient{
		hostAddr:   hostAddr,
		token:      token,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
		logger:     golog.Child("[ws-client]"),
		RetryDelay: 5 * time.Second,
	}
}

// Start begins the client loop (connect & process)
func (c *WSClient) Start() {
	go c.loop()
}

func (c *WSClient) loop() {
	for {
		c.connect()

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-c.done:
			return
		case <-time.After(c.RetryDelay):
			c.logger.Debug("attempting reconnection")
		}
	}
}

func (c *WSClient) url() string {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	if c.token != "" {
		u.RawQuery = url.Values{"token": {c.token}}.Encode()
	}
	return u.String()
}

func (c *WSClient) connect() {
	conn, _, err := websocket.DefaultDialer.Dial(c.url(), nil)
	if err != nil {
		c.logger.Warnf("connection to %s failed: %v", c.hostAddr, err)
		return
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		conn.Close()
		return
	default:
	}
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Infof("connected to host %s", c.hostAddr)
	c.readPump(conn)

	c.mu.Lock()
	c.isConnected = false
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warnf("read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.dispatcher.HandleRaw(data)
	}
}

// IsConnected returns true if client is connected to host
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Close stops the client. It is safe to call more than once.
func (c *WSClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}
