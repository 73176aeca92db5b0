package api

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inputoverlay/internal/input"
	"inputoverlay/internal/protocol"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCapabilitiesSetOnce(t *testing.T) {
	s := NewServer(Options{})
	defer s.Stop()

	s.SetCapabilities(true, true, false)
	s.SetCapabilities(false, false, true)

	w := get(t, s.Handler(), "/api/readonly", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var ro protocol.ReadonlyResponse
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &ro); err != nil {
		t.Fatal(err)
	}
	if !ro.Readonly {
		t.Error("Expected readonly to keep its first value")
	}

	w = get(t, s.Handler(), "/api/global-input", "")
	var gi protocol.GlobalInputResponse
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &gi); err != nil {
		t.Fatal(err)
	}
	if !gi.Available {
		t.Error("Expected global input to keep its first value")
	}
}

func TestCapabilitiesDefaultFalse(t *testing.T) {
	s := NewServer(Options{})
	defer s.Stop()
	if s.IsReadonly() || s.HasGlobalInput() {
		t.Error("Expected capabilities false before SetCapabilities")
	}
}

func TestServeRequiresCapabilities(t *testing.T) {
	s := NewServer(Options{})
	defer s.Stop()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("TCP unavailable: %v", err)
	}
	if err := s.Serve(ln); !errors.Is(err, ErrCapabilitiesUnset) {
		t.Fatalf("Expected ErrCapabilitiesUnset, got %v", err)
	}

	// Backends come up, then the answers are fixed, then the listener opens.
	time.Sleep(20 * time.Millisecond)
	s.SetCapabilities(true, true, false)

	ln, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/readonly")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	var ro protocol.ReadonlyResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&ro); err != nil {
		t.Fatal(err)
	}
	if !ro.Readonly {
		t.Error("Expected the first answer served to be readonly=true")
	}

	s.SetCapabilities(false, false, false)
	if !s.IsReadonly() {
		t.Error("Expected readonly to stay true")
	}

	if err := s.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Expected Serve to return nil after Stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Serve did not return after Stop")
	}
}

func TestAuth(t *testing.T) {
	s := NewServer(Options{Token: "secret"})
	defer s.Stop()

	if w := get(t, s.Handler(), "/api/readonly", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	if w := get(t, s.Handler(), "/api/readonly", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong token, got %d", w.Code)
	}
	if w := get(t, s.Handler(), "/api/readonly", "secret"); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", w.Code)
	}
	if w := get(t, s.Handler(), "/api/readonly?token=secret", ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with query token, got %d", w.Code)
	}
	if w := get(t, s.Handler(), "/health", ""); w.Code != http.StatusOK {
		t.Errorf("Expected /health without auth, got %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	s := NewServer(Options{Backends: func() map[string]bool {
		return map[string]bool{"hook": false, "evdev": true}
	}})
	defer s.Stop()
	s.SetCapabilities(false, true, true)

	w := get(t, s.Handler(), "/api/status", "")
	var st protocol.StatusResponse
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.Backends["evdev"] || st.Backends["hook"] {
		t.Errorf("Unexpected backends %v", st.Backends)
	}
	if !st.DevTools {
		t.Error("Expected dev tools flag reported")
	}
	if len(st.Dropped) != len(protocol.Channels) {
		t.Errorf("Expected a drop counter per channel, got %v", st.Dropped)
	}
}

type recordingForwarder struct {
	mu   sync.Mutex
	msgs []protocol.Message
	gate chan struct{}
}

func (f *recordingForwarder) Forward(msg protocol.Message) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}

func (f *recordingForwarder) channel(c protocol.Channel) []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Message
	for _, m := range f.msgs {
		if m.Channel == c {
			out = append(out, m)
		}
	}
	return out
}

func TestOutboxPerChannelOrder(t *testing.T) {
	fwd := &recordingForwarder{}
	o := NewOutbox(64, fwd)

	for i := 0; i < 20; i++ {
		msg, _ := protocol.NewMessage(protocol.ChannelMouseMove, protocol.MouseMovePayload{X: float64(i)})
		if err := o.Push(msg); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}
	o.Close()

	moves := fwd.channel(protocol.ChannelMouseMove)
	if len(moves) != 20 {
		t.Fatalf("Expected 20 moves, got %d", len(moves))
	}
	for i, m := range moves {
		var p protocol.MouseMovePayload
		jsoniter.Unmarshal(m.Payload, &p)
		if p.X != float64(i) {
			t.Errorf("Position %d: expected x=%d, got %v", i, i, p.X)
		}
	}
}

func TestOutboxDropsWhenFull(t *testing.T) {
	fwd := &recordingForwarder{gate: make(chan struct{})}
	o := NewOutbox(2, fwd)

	msg, _ := protocol.NewMessage(protocol.ChannelWheel, protocol.WheelPayload{Rotation: 1, Direction: 3})
	// One message may be held by the blocked drain goroutine plus two queued.
	for i := 0; i < 10; i++ {
		o.Push(msg)
	}
	if n := o.Dropped()[string(protocol.ChannelWheel)]; n < 7 {
		t.Errorf("Expected at least 7 drops, got %d", n)
	}
	if n := o.Dropped()[string(protocol.ChannelKeyDown)]; n != 0 {
		t.Errorf("Expected other channels unaffected, got %d", n)
	}

	close(fwd.gate)
	o.Close()
}

func TestOutboxClosed(t *testing.T) {
	o := NewOutbox(4)
	o.Close()
	o.Close()

	msg, _ := protocol.NewMessage(protocol.ChannelKeyDown, protocol.KeyPayload{Keycode: 30})
	if err := o.Push(msg); !errors.Is(err, input.ErrTransportChannelClosed) {
		t.Errorf("Expected ErrTransportChannelClosed, got %v", err)
	}
}

func TestPublishAfterStop(t *testing.T) {
	s := NewServer(Options{})
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Must not panic or block.
	s.Publish(input.KeyDown{Code: "KeyA", Keycode: 30})
	if err := s.Stop(); err != nil {
		t.Errorf("Expected second Stop to be a no-op, got %v", err)
	}
}

func TestWebSocketDelivery(t *testing.T) {
	s := NewServer(Options{Token: "tok"})
	defer s.Stop()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=tok"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Consumers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Consumers() != 1 {
		t.Fatalf("Expected 1 consumer, got %d", s.Consumers())
	}

	s.Publish(input.KeyDown{Code: "KeyA", Keycode: 30, Rawcode: 65})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Channel != protocol.ChannelKeyDown {
		t.Errorf("Expected %s, got %s", protocol.ChannelKeyDown, msg.Channel)
	}
	ev, err := msg.Event()
	if err != nil {
		t.Fatal(err)
	}
	if kd, ok := ev.(input.KeyDown); !ok || kd.Code != "KeyA" {
		t.Errorf("Expected KeyDown{KeyA}, got %#v", ev)
	}
}
