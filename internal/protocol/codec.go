package protocol

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"
)

// ErrUnmapped is returned by Message.Event when the payload is well formed
// but has no canonical equivalent (an unknown scan code).
var ErrUnmapped = errors.New("protocol: no canonical mapping")

// NewMessage wraps a payload in an envelope for channel.
func NewMessage(channel Channel, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Channel: channel, Payload: raw}, nil
}

// Marshal encodes msg for the WebSocket.
func Marshal(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses one envelope and checks its payload against the channel's
// schema. Unknown channels and malformed payloads fail with
// ErrInvalidPayload.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !msg.Channel.Valid() {
		return Message{}, fmt.Errorf("%w: unknown channel %q", ErrInvalidPayload, msg.Channel)
	}
	if _, err := msg.payload(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

type validator interface {
	Validate() error
}

func (m Message) payload() (validator, error) {
	var p validator
	switch m.Channel {
	case ChannelKeyDown, ChannelKeyUp:
		p = &KeyPayload{}
	case ChannelMouseMove:
		p = &MouseMovePayload{}
	case ChannelMouseDown, ChannelMouseUp:
		p = &MouseButtonPayload{}
	case ChannelWheel:
		p = &WheelPayload{}
	case ChannelGamepadState:
		p = &GamepadPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidPayload, m.Channel)
	}
	if len(m.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s: empty payload", ErrInvalidPayload, m.Channel)
	}
	if err := json.Unmarshal(m.Payload, p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, m.Channel, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Channel, err)
	}
	return p, nil
}

// Event converts a validated message back into a canonical event. Key and
// mouse payloads go through the same hook normalizer the host uses, so a
// consumer sees exactly what a local hook would have produced.
func (m Message) Event() (input.Event, error) {
	p, err := m.payload()
	if err != nil {
		return nil, err
	}

	var hev normalize.HookEvent
	switch v := p.(type) {
	case *KeyPayload:
		hev = normalize.HookEvent{
			Kind:    normalize.HookKeyPressed,
			Keycode: v.Keycode,
			Rawcode: v.Rawcode,
			Code:    input.KeyCode(v.Code),
		}
		if m.Channel == ChannelKeyUp {
			hev.Kind = normalize.HookKeyReleased
		}
	case *MouseMovePayload:
		hev = normalize.HookEvent{Kind: normalize.HookMouseMoved, X: v.X, Y: v.Y}
	case *MouseButtonPayload:
		hev = normalize.HookEvent{Kind: normalize.HookMousePressed, Button: v.Button, X: v.X, Y: v.Y}
		if m.Channel == ChannelMouseUp {
			hev.Kind = normalize.HookMouseReleased
		}
	case *WheelPayload:
		hev = normalize.HookEvent{Kind: normalize.HookMouseWheel, Rotation: v.Rotation, Direction: v.Direction, X: v.X, Y: v.Y}
	case *GamepadPayload:
		return input.GamepadState{
			Axes:      append([]float64(nil), v.Axes...),
			Buttons:   append([]input.Button(nil), v.Buttons...),
			Connected: v.Connected,
		}, nil
	}

	ev, ok := normalize.Hook(hev)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnmapped, m.Channel)
	}
	return ev, nil
}

// Encoder turns canonical events into channel messages. It remembers the
// last pointer position for button and wheel payloads, and folds evdev's
// per-axis and per-button gamepad updates into the full snapshot the
// gamepad channel requires.
type Encoder struct {
	mu        sync.Mutex
	x, y      float64
	axes      []float64
	buttons   []input.Button
	connected bool
}

// NewEncoder returns an encoder with a standard-layout gamepad snapshot.
func NewEncoder() *Encoder {
	return &Encoder{
		axes:    make([]float64, input.GamepadAxisCount),
		buttons: make([]input.Button, input.GamepadButtonCount),
	}
}

// Encode converts ev into zero or more messages stamped with ts (ms).
// A wheel event with both deltas set yields two messages.
func (e *Encoder) Encode(ev input.Event, ts int64) ([]Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch v := ev.(type) {
	case input.KeyDown:
		return one(ChannelKeyDown, KeyPayload{Keycode: v.Keycode, Rawcode: v.Rawcode, Code: string(v.Code), Timestamp: ts})
	case input.KeyUp:
		return one(ChannelKeyUp, KeyPayload{Keycode: v.Keycode, Rawcode: v.Rawcode, Code: string(v.Code), Timestamp: ts})

	case input.MouseMove:
		e.x, e.y = v.X, v.Y
		return one(ChannelMouseMove, MouseMovePayload{X: v.X, Y: v.Y, Timestamp: ts})

	case input.MouseButton:
		button := normalize.HookButtonFor(v.Index)
		if button == 0 {
			return nil, fmt.Errorf("%w: mouse index %d", ErrInvalidPayload, v.Index)
		}
		channel := ChannelMouseUp
		if v.Pressed {
			channel = ChannelMouseDown
		}
		return one(channel, MouseButtonPayload{Button: button, X: e.x, Y: e.y, Timestamp: ts})

	case input.Wheel:
		var out []Message
		if v.DY != 0 {
			msg, err := NewMessage(ChannelWheel, WheelPayload{Rotation: int(math.Round(v.DY)), Direction: normalize.WheelVertical, X: e.x, Y: e.y, Timestamp: ts})
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
		if v.DX != 0 {
			msg, err := NewMessage(ChannelWheel, WheelPayload{Rotation: int(math.Round(v.DX)), Direction: normalize.WheelHorizontal, X: e.x, Y: e.y, Timestamp: ts})
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
		return out, nil

	case input.GamepadAxis:
		if v.Index < 0 || v.Index >= maxAxes {
			return nil, fmt.Errorf("%w: axis index %d", ErrInvalidPayload, v.Index)
		}
		for len(e.axes) <= v.Index {
			e.axes = append(e.axes, 0)
		}
		e.axes[v.Index] = v.Value
		e.connected = true
		return e.gamepad(ts)

	case input.GamepadButton:
		if v.Index < 0 || v.Index >= maxButtons {
			return nil, fmt.Errorf("%w: button index %d", ErrInvalidPayload, v.Index)
		}
		for len(e.buttons) <= v.Index {
			e.buttons = append(e.buttons, input.Button{})
		}
		e.buttons[v.Index] = input.Button{Pressed: v.Pressed, Value: v.Value}
		e.connected = true
		return e.gamepad(ts)

	case input.GamepadState:
		e.axes = append(e.axes[:0], v.Axes...)
		e.buttons = append(e.buttons[:0], v.Buttons...)
		e.connected = v.Connected
		return e.gamepad(ts)
	}
	return nil, fmt.Errorf("%w: unsupported event %T", ErrInvalidPayload, ev)
}

func (e *Encoder) gamepad(ts int64) ([]Message, error) {
	return one(ChannelGamepadState, GamepadPayload{
		Axes:      append([]float64{}, e.axes...),
		Buttons:   append([]input.Button{}, e.buttons...),
		Timestamp: ts,
		Connected: e.connected,
	})
}

func one(channel Channel, payload interface{}) ([]Message, error) {
	msg, err := NewMessage(channel, payload)
	if err != nil {
		return nil, err
	}
	return []Message{msg}, nil
}
