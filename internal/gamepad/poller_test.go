package gamepad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"
)

type fakeDriver struct {
	mu       sync.Mutex
	openErr  error
	readings []normalize.PadReading
	closed   int
}

func (d *fakeDriver) Open() error { return d.openErr }

// Poll replays the scripted readings, then repeats the last one.
func (d *fakeDriver) Poll() normalize.PadReading {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.readings) == 0 {
		return normalize.PadReading{}
	}
	r := d.readings[0]
	if len(d.readings) > 1 {
		d.readings = d.readings[1:]
	}
	return r
}

func (d *fakeDriver) Name() string { return "fake pad" }

func (d *fakeDriver) Close() {
	d.mu.Lock()
	d.closed++
	d.mu.Unlock()
}

type stateLog struct {
	mu     sync.Mutex
	states []input.GamepadState
}

func (l *stateLog) Publish(ev input.Event) {
	if gs, ok := ev.(input.GamepadState); ok {
		l.mu.Lock()
		l.states = append(l.states, gs)
		l.mu.Unlock()
	}
}

func (l *stateLog) snapshot() []input.GamepadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]input.GamepadState(nil), l.states...)
}

func TestPollerUnavailable(t *testing.T) {
	p := NewPoller(&fakeDriver{openErr: input.ErrBackendUnavailable}, time.Millisecond, 0)
	err := p.Start(context.Background(), &stateLog{})
	if !errors.Is(err, input.ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Expected Stop to succeed, got %v", err)
	}
}

func TestStubDriverUnavailable(t *testing.T) {
	p := New(0, 0)
	if err := p.Start(context.Background(), &stateLog{}); err == nil {
		p.Stop()
		t.Skip("built with the sdl tag")
	} else if !errors.Is(err, input.ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
}

func TestPollerPublishesAndDisconnects(t *testing.T) {
	drv := &fakeDriver{readings: []normalize.PadReading{
		{},
		{Connected: true, LeftX: 0.5, A: true, RightTrigger: 0.05},
		{Connected: true, LeftX: 0.25, RightTrigger: 0.8},
		{},
	}}
	p := NewPoller(drv, time.Millisecond, 0)
	sink := &stateLog{}

	if err := p.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Polls() < 8 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	states := sink.snapshot()
	if len(states) != 3 {
		t.Fatalf("Expected 2 connected snapshots and 1 disconnect, got %d: %#v", len(states), states)
	}
	if !states[0].Connected || states[0].Axes[0] != 0.5 || !states[0].Buttons[0].Pressed {
		t.Errorf("Unexpected first snapshot %#v", states[0])
	}
	if states[0].Buttons[7].Pressed {
		t.Error("Expected trigger below threshold not pressed")
	}
	if !states[1].Buttons[7].Pressed || states[1].Buttons[7].Value != 0.8 {
		t.Errorf("Expected right trigger pressed at 0.8, got %#v", states[1].Buttons[7])
	}
	if states[2].Connected || len(states[2].Axes) != 0 {
		t.Errorf("Expected empty disconnected snapshot, got %#v", states[2])
	}
	if drv.closed != 1 {
		t.Errorf("Expected driver closed once, got %d", drv.closed)
	}
}

func TestPollerStopsOnContext(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPoller(drv, time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx, &stateLog{}); err != nil {
		t.Fatal(err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected poller to exit on context cancellation")
	}
	p.Stop()
}

func TestScale(t *testing.T) {
	if v := scaleStick(32767); v != 1 {
		t.Errorf("Expected 1, got %v", v)
	}
	if v := scaleStick(-32768); v > -1 || v < -1.001 {
		t.Errorf("Expected about -1, got %v", v)
	}
	if v := scaleTrigger(0); v != 0 {
		t.Errorf("Expected 0, got %v", v)
	}
}
