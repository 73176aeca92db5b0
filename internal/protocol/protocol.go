// Package protocol defines the host→consumer channels, their payload
// schemas and the wire codecs.
package protocol

import (
	"errors"
	"fmt"
	"math"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Channel names one event kind. Each channel is ordered on its own; there is
// no ordering across channels.
type Channel string

const (
	ChannelKeyDown      Channel = "global-keydown"
	ChannelKeyUp        Channel = "global-keyup"
	ChannelMouseMove    Channel = "global-mousemove"
	ChannelMouseDown    Channel = "global-mousedown"
	ChannelMouseUp      Channel = "global-mouseup"
	ChannelWheel        Channel = "global-wheel"
	ChannelGamepadState Channel = "global-gamepad-state"
)

// Channels lists every channel in a fixed order.
var Channels = []Channel{
	ChannelKeyDown,
	ChannelKeyUp,
	ChannelMouseMove,
	ChannelMouseDown,
	ChannelMouseUp,
	ChannelWheel,
	ChannelGamepadState,
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// ErrInvalidPayload is returned when a message does not match its channel's
// schema.
var ErrInvalidPayload = errors.New("protocol: invalid payload")

// Upper bounds on gamepad payload sizes accepted from the wire.
const (
	maxAxes    = 32
	maxButtons = 64
)

// Message is the envelope sent over the WebSocket.
type Message struct {
	Channel Channel             `json:"channel"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// KeyPayload is carried by global-keydown and global-keyup. Code is set when
// the host already knows the canonical key and overrides the scan-code table.
type KeyPayload struct {
	Keycode   int    `json:"keycode"`
	Rawcode   int    `json:"rawcode"`
	Code      string `json:"code,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// MouseMovePayload is carried by global-mousemove.
type MouseMovePayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// MouseButtonPayload is carried by global-mousedown and global-mouseup.
// Button uses hook numbering (1=left 2=right 3=middle 4=back 5=forward).
type MouseButtonPayload struct {
	Button    int     `json:"button"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// WheelPayload is carried by global-wheel. Direction is 3 (vertical) or 4
// (horizontal); positive rotation scrolls down or right.
type WheelPayload struct {
	Rotation  int     `json:"rotation"`
	Direction int     `json:"direction"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// GamepadPayload is carried by global-gamepad-state. It is always a full
// snapshot, never a delta.
type GamepadPayload struct {
	Axes      []float64      `json:"axes"`
	Buttons   []input.Button `json:"buttons"`
	Timestamp int64          `json:"timestamp"`
	Connected bool           `json:"connected"`
}

// Validate checks the key schema.
func (p KeyPayload) Validate() error {
	if p.Keycode < 0 || p.Rawcode < 0 {
		return fmt.Errorf("%w: negative key code", ErrInvalidPayload)
	}
	if p.Keycode == 0 && p.Code == "" {
		return fmt.Errorf("%w: key without keycode or code", ErrInvalidPayload)
	}
	return validTimestamp(p.Timestamp)
}

// Validate checks the mouse-move schema.
func (p MouseMovePayload) Validate() error {
	if !finite(p.X) || !finite(p.Y) {
		return fmt.Errorf("%w: non-finite position", ErrInvalidPayload)
	}
	return validTimestamp(p.Timestamp)
}

// Validate checks the mouse-button schema.
func (p MouseButtonPayload) Validate() error {
	if _, ok := normalize.HookButton(p.Button); !ok {
		return fmt.Errorf("%w: unknown button %d", ErrInvalidPayload, p.Button)
	}
	if !finite(p.X) || !finite(p.Y) {
		return fmt.Errorf("%w: non-finite position", ErrInvalidPayload)
	}
	return validTimestamp(p.Timestamp)
}

// Validate checks the wheel schema.
func (p WheelPayload) Validate() error {
	if p.Direction != normalize.WheelVertical && p.Direction != normalize.WheelHorizontal {
		return fmt.Errorf("%w: unknown wheel direction %d", ErrInvalidPayload, p.Direction)
	}
	if !finite(p.X) || !finite(p.Y) {
		return fmt.Errorf("%w: non-finite position", ErrInvalidPayload)
	}
	return validTimestamp(p.Timestamp)
}

// Validate checks the gamepad schema: bounded sizes, axes in [-1, 1] and
// button values in [0, 1].
func (p GamepadPayload) Validate() error {
	if len(p.Axes) > maxAxes || len(p.Buttons) > maxButtons {
		return fmt.Errorf("%w: %d axes / %d buttons", ErrInvalidPayload, len(p.Axes), len(p.Buttons))
	}
	for i, a := range p.Axes {
		if !finite(a) || a < -1 || a > 1 {
			return fmt.Errorf("%w: axis %d out of range (%v)", ErrInvalidPayload, i, a)
		}
	}
	for i, b := range p.Buttons {
		if !finite(b.Value) || b.Value < 0 || b.Value > 1 {
			return fmt.Errorf("%w: button %d value out of range (%v)", ErrInvalidPayload, i, b.Value)
		}
	}
	return validTimestamp(p.Timestamp)
}

func validTimestamp(ts int64) error {
	if ts < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidPayload)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ReadonlyResponse answers GET /api/readonly.
type ReadonlyResponse struct {
	Readonly bool `json:"readonly"`
}

// GlobalInputResponse answers GET /api/global-input.
type GlobalInputResponse struct {
	Available bool `json:"available"`
}

// HealthResponse answers GET /health, which needs no token.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	Backends  map[string]bool   `json:"backends"`
	Readonly  bool              `json:"readonly"`
	DevTools  bool              `json:"dev_tools"`
	Consumers int               `json:"consumers"`
	Dropped   map[string]uint64 `json:"dropped"`
}
