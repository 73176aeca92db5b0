package normalize

import "inputoverlay/internal/input"

// HookKind is the kind of a global-hook event.
type HookKind uint8

const (
	HookKeyPressed HookKind = iota + 1
	HookKeyReleased
	HookMousePressed
	HookMouseReleased
	HookMouseMoved
	HookMouseWheel
)

// Wheel directions reported by the hook library.
const (
	WheelVertical   = 3
	WheelHorizontal = 4
)

// HookEvent is one event as reported by the global hook, or as carried on
// the global-* transport channels.
type HookEvent struct {
	Kind      HookKind
	Keycode   int
	Rawcode   int
	Code      input.KeyCode // already canonical, bypasses the scan-code table
	Button    int
	X, Y      float64
	Rotation  int
	Direction int
}

// Scan codes are libuiohook VC_* values. The arrows appear twice: 103/108/
// 105/106 are what some hook builds report (the evdev KEY_* values) while
// 0xE048/0xE050/0xE04B/0xE04D are the extended set-1 codes. Neither is
// treated as authoritative.
var hookKeys = map[int]input.KeyCode{
	30: "KeyA",
	48: "KeyB",
	46: "KeyC",
	32: "KeyD",
	18: "KeyE",
	33: "KeyF",
	34: "KeyG",
	35: "KeyH",
	23: "KeyI",
	36: "KeyJ",
	37: "KeyK",
	38: "KeyL",
	50: "KeyM",
	49: "KeyN",
	24: "KeyO",
	25: "KeyP",
	16: "KeyQ",
	19: "KeyR",
	31: "KeyS",
	20: "KeyT",
	22: "KeyU",
	47: "KeyV",
	17: "KeyW",
	45: "KeyX",
	21: "KeyY",
	44: "KeyZ",

	2:  "Digit1",
	3:  "Digit2",
	4:  "Digit3",
	5:  "Digit4",
	6:  "Digit5",
	7:  "Digit6",
	8:  "Digit7",
	9:  "Digit8",
	10: "Digit9",
	11: "Digit0",

	57:  "Space",
	28:  "Enter",
	1:   "Escape",
	14:  "Backspace",
	15:  "Tab",
	42:  "ShiftLeft",
	54:  "ShiftRight",
	29:  "ControlLeft",
	97:  "ControlRight",
	56:  "AltLeft",
	100: "AltRight",

	103: "ArrowUp",
	108: "ArrowDown",
	105: "ArrowLeft",
	106: "ArrowRight",

	0xE048: "ArrowUp",
	0xE050: "ArrowDown",
	0xE04B: "ArrowLeft",
	0xE04D: "ArrowRight",
}

// hook buttons: 1=left 2=right 3=middle 4=back 5=forward
var hookButtons = map[int]int{
	1: input.MouseLeft,
	3: input.MouseMiddle,
	2: input.MouseRight,
	4: input.MouseBack,
	5: input.MouseForward,
}

// HookKeyCode looks up the canonical code for a hook scan code.
func HookKeyCode(keycode int) (input.KeyCode, bool) {
	kc, ok := hookKeys[keycode]
	return kc, ok
}

// HookButton maps a hook button number onto a canonical mouse index.
func HookButton(button int) (int, bool) {
	idx, ok := hookButtons[button]
	return idx, ok
}

// HookButtonFor is the inverse of HookButton. It returns 0 for an index
// outside the canonical range.
func HookButtonFor(index int) int {
	for b, idx := range hookButtons {
		if idx == index {
			return b
		}
	}
	return 0
}

// Hook maps a global-hook event. Unmapped scan codes and unknown buttons
// report false rather than being guessed.
func Hook(ev HookEvent) (input.Event, bool) {
	switch ev.Kind {
	case HookKeyPressed, HookKeyReleased:
		kc := ev.Code
		if kc == "" {
			var ok bool
			if kc, ok = HookKeyCode(ev.Keycode); !ok {
				return nil, false
			}
		}
		if ev.Kind == HookKeyPressed {
			return input.KeyDown{Code: kc, Keycode: ev.Keycode, Rawcode: ev.Rawcode}, true
		}
		return input.KeyUp{Code: kc, Keycode: ev.Keycode, Rawcode: ev.Rawcode}, true

	case HookMousePressed, HookMouseReleased:
		idx, ok := HookButton(ev.Button)
		if !ok {
			return nil, false
		}
		return input.MouseButton{Index: idx, Pressed: ev.Kind == HookMousePressed}, true

	case HookMouseMoved:
		return input.MouseMove{X: ev.X, Y: ev.Y}, true

	case HookMouseWheel:
		if ev.Direction == WheelHorizontal {
			return input.Wheel{DX: float64(ev.Rotation)}, true
		}
		return input.Wheel{DY: float64(ev.Rotation)}, true
	}
	return nil, false
}
