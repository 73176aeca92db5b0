package network

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inputoverlay/internal/api"
	"inputoverlay/internal/input"
	"inputoverlay/internal/protocol"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type eventLog struct {
	mu     sync.Mutex
	events []input.Event
}

func (l *eventLog) Publish(ev input.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) wait(t *testing.T, n int) []input.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		if len(l.events) >= n {
			out := append([]input.Event(nil), l.events...)
			l.mu.Unlock()
			return out
		}
		l.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d events", n)
	return nil
}

func TestDispatcherValidatesAtBoundary(t *testing.T) {
	sink := &eventLog{}
	d := NewDispatcher(sink)

	d.HandleRaw([]byte(`{"channel":"global-mousemove","payload":{"x":1,"y":2,"timestamp":3}}`))
	d.HandleRaw([]byte(`{"channel":"global-mousemove","payload":{"x":"far"}}`))
	d.HandleRaw([]byte(`{"channel":"global-exec","payload":{}}`))
	d.HandleRaw([]byte(`{"channel":"global-keydown","payload":{"keycode":9999,"rawcode":0,"timestamp":3}}`))

	if len(sink.events) != 1 {
		t.Fatalf("Expected 1 published event, got %d", len(sink.events))
	}
	if mv, ok := sink.events[0].(input.MouseMove); !ok || mv.X != 1 || mv.Y != 2 {
		t.Errorf("Expected MouseMove{1,2}, got %#v", sink.events[0])
	}
	if d.Rejected() != 2 {
		t.Errorf("Expected 2 rejected, got %d", d.Rejected())
	}
	if d.Unmapped() != 1 {
		t.Errorf("Expected 1 unmapped, got %d", d.Unmapped())
	}
}

func TestSeqFilter(t *testing.T) {
	f := newSeqFilter()
	if !f.accept(protocol.UDPPacketKeyDown, 5) {
		t.Error("Expected first packet accepted")
	}
	if f.accept(protocol.UDPPacketKeyDown, 5) {
		t.Error("Expected redundant copy dropped")
	}
	if f.accept(protocol.UDPPacketKeyDown, 4) {
		t.Error("Expected late packet dropped")
	}
	if !f.accept(protocol.UDPPacketMouseMove, 3) {
		t.Error("Expected channels filtered independently")
	}
	if !f.accept(protocol.UDPPacketKeyDown, 6) {
		t.Error("Expected newer packet accepted")
	}
}

func TestSeqFilterWraps(t *testing.T) {
	f := newSeqFilter()
	f.accept(protocol.UDPPacketWheel, 0xFFFFFFFF)
	if !f.accept(protocol.UDPPacketWheel, 1) {
		t.Error("Expected sequence wrap-around accepted")
	}
}

func TestUDPLoopback(t *testing.T) {
	sender := NewUDPSender("127.0.0.1:0")
	if err := sender.Start(); err != nil {
		t.Skipf("UDP unavailable: %v", err)
	}
	defer sender.Stop()

	sink := &eventLog{}
	recv := NewUDPReceiver(sender.LocalAddr().String(), NewDispatcher(sink))
	if !recv.Probe() {
		t.Fatal("Expected probe to succeed against a local sender")
	}
	if err := recv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer recv.Stop()

	// The acknowledged socket is the receiving one, so it is registered
	// before anything is forwarded.
	if n := sender.AgentCount(); n != 1 {
		t.Fatalf("Expected 1 registered agent, got %d", n)
	}
	port := recv.LocalAddr().(*net.UDPAddr).Port
	sender.agentsMu.RLock()
	var registered bool
	for _, agent := range sender.agents {
		registered = registered || agent.addr.Port == port
	}
	sender.agentsMu.RUnlock()
	if !registered {
		t.Fatalf("Expected receiver port %d registered", port)
	}

	enc := protocol.NewEncoder()
	msgs, err := enc.Encode(input.KeyDown{Code: "KeyA", Keycode: 30}, 1)
	if err != nil {
		t.Fatal(err)
	}
	sender.Forward(msgs[0])

	events := sink.wait(t, 1)
	// Redundant copies must not be published twice.
	time.Sleep(50 * time.Millisecond)
	sink.mu.Lock()
	n := len(sink.events)
	sink.mu.Unlock()
	if n != 1 {
		t.Errorf("Expected exactly 1 event after dedup, got %d", n)
	}
	if kd, ok := events[0].(input.KeyDown); !ok || kd.Code != "KeyA" {
		t.Errorf("Expected KeyDown{KeyA}, got %#v", events[0])
	}
}

func hostAddr(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestCapabilityClient(t *testing.T) {
	srv := api.NewServer(api.Options{Token: "tok"})
	defer srv.Stop()
	srv.SetCapabilities(true, false, false)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	caps, err := NewCapabilityClient(hostAddr(ts), "tok").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !caps.Readonly || caps.GlobalInput {
		t.Errorf("Expected readonly only, got %#v", caps)
	}

	if _, err := NewCapabilityClient(hostAddr(ts), "bad").Fetch(context.Background()); err == nil {
		t.Error("Expected error with a wrong token")
	}
}

func TestWSClientReceivesEvents(t *testing.T) {
	srv := api.NewServer(api.Options{})
	defer srv.Stop()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sink := &eventLog{}
	client := NewWSClient(hostAddr(ts), "", NewDispatcher(sink))
	client.RetryDelay = 50 * time.Millisecond
	client.Start()
	defer client.Close()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Consumers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.Consumers() == 0 {
		t.Fatal("Client never connected")
	}

	srv.Publish(input.GamepadState{
		Connected: true,
		Axes:      []float64{0.25, 0, 0, 0},
		Buttons:   make([]input.Button, input.GamepadButtonCount),
	})

	events := sink.wait(t, 1)
	gs, ok := events[0].(input.GamepadState)
	if !ok {
		t.Fatalf("Expected GamepadState, got %#v", events[0])
	}
	if !gs.Connected || gs.Axes[0] != 0.25 || len(gs.Buttons) != input.GamepadButtonCount {
		t.Errorf("Unexpected snapshot %#v", gs)
	}
	if !client.IsConnected() {
		t.Error("Expected client connected")
	}
}
