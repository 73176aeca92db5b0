package normalize

import (
	"testing"

	"inputoverlay/internal/input"
)

func TestGamepadLayout(t *testing.T) {
	ev, ok := Gamepad(PadReading{
		Connected:    true,
		LeftX:        0.5,
		LeftY:        -0.5,
		A:            true,
		Guide:        true,
		DPadLeft:     true,
		LeftTrigger:  0.05,
		RightTrigger: 0.8,
	}, DefaultTriggerThreshold)
	if !ok {
		t.Fatal("Expected reading to normalize")
	}

	st := ev.(input.GamepadState)
	if !st.Connected {
		t.Error("Expected connected state")
	}
	if len(st.Axes) != input.GamepadAxisCount {
		t.Fatalf("Expected %d axes, got %d", input.GamepadAxisCount, len(st.Axes))
	}
	if len(st.Buttons) != input.GamepadButtonCount {
		t.Fatalf("Expected %d buttons, got %d", input.GamepadButtonCount, len(st.Buttons))
	}
	if st.Axes[0] != 0.5 || st.Axes[1] != -0.5 {
		t.Errorf("Expected axes [0.5 -0.5 ...], got %v", st.Axes)
	}
	if !st.Buttons[0].Pressed || st.Buttons[0].Value != 1 {
		t.Errorf("Expected A pressed, got %#v", st.Buttons[0])
	}
	if !st.Buttons[16].Pressed {
		t.Error("Expected guide at index 16")
	}
	if !st.Buttons[14].Pressed {
		t.Error("Expected dpad left at index 14")
	}

	lt := st.Buttons[6]
	if lt.Pressed || lt.Value != 0.05 {
		t.Errorf("Expected left trigger below threshold unpressed with value 0.05, got %#v", lt)
	}
	rt := st.Buttons[7]
	if !rt.Pressed || rt.Value != 0.8 {
		t.Errorf("Expected right trigger pressed with value 0.8, got %#v", rt)
	}
}

func TestGamepadNegativeTriggerClamped(t *testing.T) {
	ev, _ := Gamepad(PadReading{Connected: true, LeftTrigger: -0.3}, DefaultTriggerThreshold)
	if v := ev.(input.GamepadState).Buttons[6].Value; v != 0 {
		t.Errorf("Expected negative trigger clamped to 0, got %v", v)
	}
}

func TestGamepadDisconnected(t *testing.T) {
	ev, ok := Gamepad(PadReading{A: true}, DefaultTriggerThreshold)
	if !ok {
		t.Fatal("Expected disconnected reading to still produce a state")
	}
	st := ev.(input.GamepadState)
	if st.Connected || len(st.Axes) != 0 || len(st.Buttons) != 0 {
		t.Errorf("Expected empty disconnected state, got %#v", st)
	}
}
