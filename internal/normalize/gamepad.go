package normalize

import "inputoverlay/internal/input"

// DefaultTriggerThreshold is the trigger value above which a trigger counts
// as pressed.
const DefaultTriggerThreshold = 0.1

// PadReading is one poll of a native game controller. Sticks are in
// [-1, 1], triggers in [0, 1].
type PadReading struct {
	Connected bool

	LeftX, LeftY   float64
	RightX, RightY float64

	LeftTrigger, RightTrigger float64

	A, B, X, Y                  bool
	LeftShoulder, RightShoulder bool
	Back, Start, Guide          bool
	LeftStick, RightStick       bool

	DPadUp, DPadDown, DPadLeft, DPadRight bool
}

// Gamepad maps a reading onto the 17-button / 4-axis standard layout. A
// disconnected reading yields an empty state with Connected false.
func Gamepad(r PadReading, threshold float64) (input.Event, bool) {
	if !r.Connected {
		return input.GamepadState{Axes: []float64{}, Buttons: []input.Button{}}, true
	}

	digital := func(pressed bool) input.Button {
		if pressed {
			return input.Button{Pressed: true, Value: 1}
		}
		return input.Button{}
	}
	trigger := func(v float64) input.Button {
		v = clamp(v, 0, 1)
		return input.Button{Pressed: v > threshold, Value: v}
	}

	return input.GamepadState{
		Connected: true,
		Axes: []float64{
			clamp(r.LeftX, -1, 1),
			clamp(r.LeftY, -1, 1),
			clamp(r.RightX, -1, 1),
			clamp(r.RightY, -1, 1),
		},
		Buttons: []input.Button{
			digital(r.A),
			digital(r.B),
			digital(r.X),
			digital(r.Y),
			digital(r.LeftShoulder),
			digital(r.RightShoulder),
			trigger(r.LeftTrigger),
			trigger(r.RightTrigger),
			digital(r.Back),
			digital(r.Start),
			digital(r.LeftStick),
			digital(r.RightStick),
			digital(r.DPadUp),
			digital(r.DPadDown),
			digital(r.DPadLeft),
			digital(r.DPadRight),
			digital(r.Guide),
		},
	}, true
}
