// Package normalize maps backend-specific identifiers and ranges onto the
// canonical input vocabulary. Every function here is pure apart from the
// pointer accumulation kept by an Evdev value.
package normalize

import "inputoverlay/internal/input"

// Subset of linux/input-event-codes.h.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvRel uint16 = 0x02
	EvAbs uint16 = 0x03
	EvMsc uint16 = 0x04

	RelX      uint16 = 0x00
	RelY      uint16 = 0x01
	RelZ      uint16 = 0x02
	RelHWheel uint16 = 0x06
	RelWheel  uint16 = 0x08

	BtnLeft   uint16 = 0x110
	BtnRight  uint16 = 0x111
	BtnMiddle uint16 = 0x112
	BtnSide   uint16 = 0x113
	BtnExtra  uint16 = 0x114

	BtnSouth  uint16 = 0x130
	BtnEast   uint16 = 0x131
	BtnNorth  uint16 = 0x133
	BtnWest   uint16 = 0x134
	BtnTL     uint16 = 0x136
	BtnTR     uint16 = 0x137
	BtnTL2    uint16 = 0x138
	BtnTR2    uint16 = 0x139
	BtnSelect uint16 = 0x13a
	BtnStart  uint16 = 0x13b
	BtnMode   uint16 = 0x13c
	BtnThumbL uint16 = 0x13d
	BtnThumbR uint16 = 0x13e

	BtnDpadUp    uint16 = 0x220
	BtnDpadDown  uint16 = 0x221
	BtnDpadLeft  uint16 = 0x222
	BtnDpadRight uint16 = 0x223

	AbsX     uint16 = 0x00
	AbsY     uint16 = 0x01
	AbsZ     uint16 = 0x02
	AbsRX    uint16 = 0x03
	AbsRY    uint16 = 0x04
	AbsRZ    uint16 = 0x05
	AbsHat0X uint16 = 0x10
	AbsHat0Y uint16 = 0x11

	keyMax uint16 = 248
)

const (
	triggerRange = 255.0
	stickRange   = 32768.0
)

var evdevMouseButtons = map[uint16]int{
	BtnLeft:   input.MouseLeft,
	BtnMiddle: input.MouseMiddle,
	BtnRight:  input.MouseRight,
	BtnSide:   input.MouseBack,
	BtnExtra:  input.MouseForward,
}

// Standard gamepad layout positions. BTN_NORTH is the X face button and
// BTN_WEST the Y face button on xpad-style controllers.
var evdevGamepadButtons = map[uint16]int{
	BtnSouth:     0,
	BtnEast:      1,
	BtnNorth:     2,
	BtnWest:      3,
	BtnTL:        4,
	BtnTR:        5,
	BtnTL2:       6,
	BtnTR2:       7,
	BtnSelect:    8,
	BtnStart:     9,
	BtnThumbL:    10,
	BtnThumbR:    11,
	BtnDpadUp:    12,
	BtnDpadDown:  13,
	BtnDpadLeft:  14,
	BtnDpadRight: 15,
	BtnMode:      16,
}

var evdevAxes = map[uint16]int{
	AbsX:     0,
	AbsY:     1,
	AbsRX:    2,
	AbsRY:    3,
	AbsZ:     4,
	AbsRZ:    5,
	AbsHat0X: 6,
	AbsHat0Y: 7,
}

// EvdevOptions selects which device classes an Evdev normalizer forwards.
type EvdevOptions struct {
	Keyboard bool
	Mouse    bool
	Gamepad  bool
}

// AllClasses forwards keyboard, mouse and gamepad events.
func AllClasses() EvdevOptions {
	return EvdevOptions{Keyboard: true, Mouse: true, Gamepad: true}
}

// Evdev normalizes events from a single device. Relative pointer motion is
// accumulated into an absolute position, so use one value per device.
type Evdev struct {
	opts EvdevOptions
	x, y float64
}

// NewEvdev returns a normalizer starting at pointer position (0, 0).
func NewEvdev(opts EvdevOptions) *Evdev {
	return &Evdev{opts: opts}
}

// Normalize maps one raw record. SYN, MSC, autorepeat and unknown codes
// report false.
func (n *Evdev) Normalize(typ, code uint16, value int32) (input.Event, bool) {
	switch typ {
	case EvKey:
		return n.key(code, value)
	case EvRel:
		return n.rel(code, value)
	case EvAbs:
		return n.abs(code, value)
	}
	return nil, false
}

func (n *Evdev) key(code uint16, value int32) (input.Event, bool) {
	if value == 2 {
		return nil, false
	}
	pressed := value != 0

	if idx, ok := evdevMouseButtons[code]; ok {
		if !n.opts.Mouse {
			return nil, false
		}
		return input.MouseButton{Index: idx, Pressed: pressed}, true
	}

	if idx, ok := evdevGamepadButtons[code]; ok {
		if !n.opts.Gamepad {
			return nil, false
		}
		v := 0.0
		if pressed {
			v = 1
		}
		return input.GamepadButton{Index: idx, Pressed: pressed, Value: v}, true
	}

	if code == 0 || code > keyMax || !n.opts.Keyboard {
		return nil, false
	}
	kc, ok := EvdevKeyCode(code)
	if !ok {
		return nil, false
	}
	if pressed {
		return input.KeyDown{Code: kc, Keycode: int(code)}, true
	}
	return input.KeyUp{Code: kc, Keycode: int(code)}, true
}

func (n *Evdev) rel(code uint16, value int32) (input.Event, bool) {
	if !n.opts.Mouse {
		return nil, false
	}
	switch code {
	case RelX:
		n.x += float64(value)
		return input.MouseMove{X: n.x, Y: n.y}, true
	case RelY:
		n.y += float64(value)
		return input.MouseMove{X: n.x, Y: n.y}, true
	case RelWheel, RelZ:
		// evdev reports wheel-up as positive
		return input.Wheel{DY: -float64(value)}, true
	case RelHWheel:
		return input.Wheel{DX: float64(value)}, true
	}
	return nil, false
}

func (n *Evdev) abs(code uint16, value int32) (input.Event, bool) {
	if !n.opts.Gamepad {
		return nil, false
	}
	idx, ok := evdevAxes[code]
	if !ok {
		return nil, false
	}
	return input.GamepadAxis{Index: idx, Value: NormalizeAxis(code, value)}, true
}

// NormalizeAxis scales a raw absolute axis value. Triggers map 0..255 onto
// [0, 1], sticks map ±32768 onto [-1, 1], hats pass through.
func NormalizeAxis(code uint16, raw int32) float64 {
	switch code {
	case AbsZ, AbsRZ:
		return clamp(float64(raw)/triggerRange, 0, 1)
	case AbsHat0X, AbsHat0Y:
		return float64(raw)
	default:
		return clamp(float64(raw)/stickRange, -1, 1)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
