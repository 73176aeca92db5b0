// Package api is the host side of the cross-process transport: it answers
// capability queries and streams normalized input to consumers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"inputoverlay/internal/input"
	"inputoverlay/internal/protocol"

	"github.com/gin-gonic/gin"
	"github.com/kataras/golog"
)

// ErrCapabilitiesUnset is returned by Serve when SetCapabilities has not been
// called yet.
var ErrCapabilitiesUnset = errors.New("api: capabilities not set before serving")

// Options configures a Server.
type Options struct {
	Token     string
	QueueSize int
	// Backends reports which capture backends are running, for /api/status.
	Backends func() map[string]bool
	// Extra forwarders receive every message after the WebSocket hub.
	Forwarders []Forwarder
}

// Server provides the HTTP and WebSocket surface of the host.
type Server struct {
	opts    Options
	hub     *Hub
	outbox  *Outbox
	encoder *protocol.Encoder
	engine  *gin.Engine
	logger  *golog.Logger

	capsOnce    sync.Once
	capsSet     atomic.Bool
	readonly    atomic.Bool
	globalInput atomic.Bool
	devTools    atomic.Bool

	mu       sync.Mutex
	httpSrv  *http.Server
	stopOnce sync.Once
}

// NewServer creates a server. Capabilities default to false until
// SetCapabilities is called, and the server will not listen before that.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:    opts,
		hub:     NewHub(),
		encoder: protocol.NewEncoder(),
		logger:  golog.Child("[api]"),
	}
	s.outbox = NewOutbox(opts.QueueSize, append([]Forwarder{s.hub}, opts.Forwarders...)...)
	s.engine = s.routes()
	go s.hub.Run()
	return s
}

// SetCapabilities records the process-start configuration. Only the first
// call has any effect; the answers never change afterwards.
func (s *Server) SetCapabilities(readonly, globalInput, devTools bool) {
	s.capsOnce.Do(func() {
		s.readonly.Store(readonly)
		s.globalInput.Store(globalInput)
		s.devTools.Store(devTools)
		s.capsSet.Store(true)
	})
}

// IsReadonly answers the readonly capability query without blocking.
func (s *Server) IsReadonly() bool { return s.readonly.Load() }

// HasGlobalInput answers the global-input capability query without blocking.
func (s *Server) HasGlobalInput() bool { return s.globalInput.Load() }

// Publish implements input.Sink. Events that cannot be encoded are dropped.
func (s *Server) Publish(ev input.Event) {
	msgs, err := s.encoder.Encode(ev, time.Now().UnixMilli())
	if err != nil {
		s.logger.Debugf("dropping %T: %v", ev, err)
		return
	}
	for _, msg := range msgs {
		if err := s.outbox.Push(msg); err != nil {
			s.logger.Debugf("dropping %s: %v", msg.Channel, err)
			return
		}
	}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)

	authed := r.Group("/", s.authMiddleware())
	authed.GET("/api/readonly", s.handleReadonly)
	authed.GET("/api/global-input", s.handleGlobalInput)
	authed.GET("/api/status", s.handleStatus)
	authed.GET("/ws", s.hub.handleWebSocket)
	return r
}

// Start listens on addr and serves until Stop. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Stop. It blocks. The listener
// is closed with ErrCapabilitiesUnset if SetCapabilities has not run, so a
// consumer never sees an answer that changes later.
func (s *Server) Serve(ln net.Listener) error {
	if !s.capsSet.Load() {
		ln.Close()
		return ErrCapabilitiesUnset
	}
	srv := &http.Server{Handler: s.engine}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	s.logger.Infof("listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the transport: further events are rejected, queued ones are
// flushed, consumers are disconnected and the listener shuts down. It is
// safe to call more than once.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.outbox.Close()
		s.hub.Stop()

		s.mu.Lock()
		srv := s.httpSrv
		s.mu.Unlock()
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

// Consumers returns the number of connected WebSocket consumers.
func (s *Server) Consumers() int {
	return s.hub.Clients()
}

// Dropped returns per-channel queue drops.
func (s *Server) Dropped() map[string]uint64 {
	return s.outbox.Dropped()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debugf("%s %s from %s -> %d", c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status())
	}
}

// authMiddleware checks the bearer token if one is configured. Browsers
// cannot set headers on a WebSocket upgrade, so ?token= is accepted too.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Token == "" {
			c.Next()
			return
		}
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token != s.opts.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.HealthResponse{Status: "ok"})
}

func (s *Server) handleReadonly(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.ReadonlyResponse{Readonly: s.IsReadonly()})
}

func (s *Server) handleGlobalInput(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.GlobalInputResponse{Available: s.HasGlobalInput()})
}

func (s *Server) handleStatus(c *gin.Context) {
	backends := map[string]bool{}
	if s.opts.Backends != nil {
		backends = s.opts.Backends()
	}
	c.JSON(http.StatusOK, protocol.StatusResponse{
		Backends:  backends,
		Readonly:  s.IsReadonly(),
		DevTools:  s.devTools.Load(),
		Consumers: s.hub.Clients(),
		Dropped:   s.outbox.Dropped(),
	})
}
