// Package state holds the canonical input state read by the render loop.
//
// All mutation goes through Apply, which is serialized by a single mutex.
// Readers take a Snapshot once per frame instead of reading fields one by
// one, so a gamepad update (axes and buttons together) is never observed
// half applied.
package state

import (
	"sync"

	"inputoverlay/internal/input"
)

// wheelDecay is applied by Tick as WheelDelta *= wheelDecay * delta.
const wheelDecay = 0.7

// Vec is a 2D delta.
type Vec struct {
	X, Y float64
}

// WheelEvents records which wheel directions fired since the last Tick.
type WheelEvents struct {
	Up, Down bool
}

// Mouse is the canonical pointer state.
type Mouse struct {
	X, Y        float64
	Buttons     [input.MouseButtonCount]bool
	Clicks      [input.MouseButtonCount]bool
	WheelDelta  Vec
	WheelEvents WheelEvents
}

// Gamepad is one gamepad slot.
type Gamepad struct {
	Index     int
	ID        string
	Connected bool
	Axes      []float64
	Buttons   []input.Button
	Timestamp int64
}

// Clone returns a deep copy. A nil receiver returns nil.
func (g *Gamepad) Clone() *Gamepad {
	if g == nil {
		return nil
	}
	c := *g
	c.Axes = append([]float64(nil), g.Axes...)
	c.Buttons = append([]input.Button(nil), g.Buttons...)
	return &c
}

// Snapshot is a consistent copy of the whole state.
type Snapshot struct {
	Keys    map[input.KeyCode]bool
	Mouse   Mouse
	Gamepad Gamepad
}

// BrowserGamepads enumerates the gamepads reported by the page itself.
// Entries may be nil for empty slots.
type BrowserGamepads func() []*Gamepad

// State is the canonical input state. The zero value is not usable; call New.
type State struct {
	mu      sync.Mutex
	keys    map[input.KeyCode]bool
	mouse   Mouse
	pad     Gamepad
	browser BrowserGamepads
}

// New returns a state with nothing pressed and the pointer at the origin.
func New() *State {
	return &State{
		keys: make(map[input.KeyCode]bool),
		pad:  Gamepad{ID: "native"},
	}
}

// Publish implements input.Sink.
func (s *State) Publish(ev input.Event) {
	s.Apply(ev)
}

// Apply is the only mutation path. Repeated downs and ups are ignored.
func (s *State) Apply(ev input.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case input.KeyDown:
		if e.Code != "" && !s.keys[e.Code] {
			s.keys[e.Code] = true
		}

	case input.KeyUp:
		if s.keys[e.Code] {
			delete(s.keys, e.Code)
		}

	case input.MouseMove:
		s.mouse.X = e.X
		s.mouse.Y = e.Y

	case input.MouseButton:
		if e.Index < 0 || e.Index >= input.MouseButtonCount {
			return
		}
		if e.Pressed && !s.mouse.Buttons[e.Index] {
			s.mouse.Buttons[e.Index] = true
			s.mouse.Clicks[e.Index] = true
		} else if !e.Pressed && s.mouse.Buttons[e.Index] {
			s.mouse.Buttons[e.Index] = false
		}

	case input.Wheel:
		s.mouse.WheelDelta = Vec{X: e.DX, Y: e.DY}
		if e.DY < 0 {
			s.mouse.WheelEvents.Up = true
		} else if e.DY > 0 {
			s.mouse.WheelEvents.Down = true
		}

	case input.GamepadAxis:
		if e.Index < 0 {
			return
		}
		for len(s.pad.Axes) <= e.Index {
			s.pad.Axes = append(s.pad.Axes, 0)
		}
		s.pad.Axes[e.Index] = e.Value
		s.pad.Connected = true

	case input.GamepadButton:
		if e.Index < 0 {
			return
		}
		for len(s.pad.Buttons) <= e.Index {
			s.pad.Buttons = append(s.pad.Buttons, input.Button{})
		}
		s.pad.Buttons[e.Index] = input.Button{Pressed: e.Pressed, Value: e.Value}
		s.pad.Connected = true

	case input.GamepadState:
		s.pad.Axes = append(s.pad.Axes[:0], e.Axes...)
		s.pad.Buttons = append(s.pad.Buttons[:0], e.Buttons...)
		s.pad.Connected = e.Connected
	}
}

// IsDown reports whether code is currently held.
func (s *State) IsDown(code input.KeyCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[code]
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[input.KeyCode]bool, len(s.keys))
	for k := range s.keys {
		keys[k] = true
	}
	return Snapshot{
		Keys:    keys,
		Mouse:   s.mouse,
		Gamepad: *s.pad.Clone(),
	}
}

// Tick is the consumer's per-frame housekeeping: single-frame clicks and
// wheel events are cleared and the wheel delta decays by 0.7*delta.
func (s *State) Tick(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mouse.WheelDelta.X *= wheelDecay * delta
	s.mouse.WheelDelta.Y *= wheelDecay * delta
	s.mouse.Clicks = [input.MouseButtonCount]bool{}
	s.mouse.WheelEvents = WheelEvents{}
}

// SetBrowserGamepads installs the page's own gamepad enumeration, used
// whenever the native slot is not connected.
func (s *State) SetBrowserGamepads(fn BrowserGamepads) {
	s.mu.Lock()
	s.browser = fn
	s.mu.Unlock()
}

// Gamepads returns copies of the visible gamepads. A connected native slot
// shadows the browser list entirely and is the only entry. Otherwise the
// browser enumeration is returned as reported. The choice is made on every
// call.
func (s *State) Gamepads() []*Gamepad {
	s.mu.Lock()
	if s.pad.Connected {
		pad := s.pad.Clone()
		s.mu.Unlock()
		pad.Index = 0
		return []*Gamepad{pad}
	}
	browser := s.browser
	s.mu.Unlock()

	if browser == nil {
		return nil
	}
	list := browser()
	out := make([]*Gamepad, len(list))
	for i, g := range list {
		out[i] = g.Clone()
	}
	return out
}

// Gamepad returns the gamepad at index, or nil when that slot is empty.
func (s *State) Gamepad(index int) *Gamepad {
	pads := s.Gamepads()
	if index < 0 || index >= len(pads) {
		return nil
	}
	return pads[index]
}
