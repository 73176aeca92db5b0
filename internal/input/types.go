// Package input defines the canonical input vocabulary shared by every capture
// backend, the canonical state and the transport.
package input

import "context"

// KeyCode is a DOM-style physical key identifier ("KeyA", "Digit1", "ArrowUp").
type KeyCode string

// Mouse button indices in canonical order.
const (
	MouseLeft = iota
	MouseMiddle
	MouseRight
	MouseBack
	MouseForward

	MouseButtonCount
)

// Standard gamepad layout sizes.
const (
	GamepadButtonCount = 17
	GamepadAxisCount   = 4
)

// Event is a normalized input event. The set of implementations is closed:
// KeyDown, KeyUp, MouseMove, MouseButton, Wheel, GamepadAxis, GamepadButton
// and GamepadState.
type Event interface {
	isEvent()
}

// KeyDown reports a key press. Keycode and Rawcode carry the backend's own
// identifiers when known and are zero otherwise.
type KeyDown struct {
	Code    KeyCode
	Keycode int
	Rawcode int
}

// KeyUp reports a key release.
type KeyUp struct {
	Code    KeyCode
	Keycode int
	Rawcode int
}

// MouseMove reports an absolute pointer position.
type MouseMove struct {
	X, Y float64
}

// MouseButton reports a press or release of a canonical mouse button.
type MouseButton struct {
	Index   int
	Pressed bool
}

// Wheel reports the latest scroll delta. Positive DY scrolls down, positive
// DX scrolls right.
type Wheel struct {
	DX, DY float64
}

// GamepadAxis reports a single axis in [-1, 1] (triggers in [0, 1]).
type GamepadAxis struct {
	Index int
	Value float64
}

// GamepadButton reports a single button with its analog value in [0, 1].
type GamepadButton struct {
	Index   int
	Pressed bool
	Value   float64
}

// GamepadState is a whole-controller snapshot from native polling. Axes and
// buttons are applied together.
type GamepadState struct {
	Axes      []float64
	Buttons   []Button
	Connected bool
}

// Button is one gamepad button slot.
type Button struct {
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"`
}

func (KeyDown) isEvent()       {}
func (KeyUp) isEvent()         {}
func (MouseMove) isEvent()     {}
func (MouseButton) isEvent()   {}
func (Wheel) isEvent()         {}
func (GamepadAxis) isEvent()   {}
func (GamepadButton) isEvent() {}
func (GamepadState) isEvent()  {}

// Sink receives normalized events. The canonical state and the host
// transport both implement it.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

// Publish calls f(ev).
func (f SinkFunc) Publish(ev Event) { f(ev) }

// Fanout publishes every event to each sink in order.
type Fanout []Sink

// Publish forwards ev to all sinks.
func (f Fanout) Publish(ev Event) {
	for _, s := range f {
		s.Publish(ev)
	}
}

// Backend is one capture mechanism managed by the supervisor.
type Backend interface {
	// Name identifies the backend in logs and status reports.
	Name() string
	// Start begins capture and delivers events to sink until Stop. A backend
	// that cannot run on this platform returns an error wrapping
	// ErrBackendUnavailable.
	Start(ctx context.Context, sink Sink) error
	// Stop releases every resource acquired by Start.
	Stop() error
}
