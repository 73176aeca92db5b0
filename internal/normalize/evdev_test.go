package normalize

import (
	"testing"

	"inputoverlay/internal/input"
)

func TestNormalizeAxis(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		raw  int32
		want float64
	}{
		{"trigger full", AbsZ, 255, 1.0},
		{"trigger rest", AbsRZ, 0, 0.0},
		{"trigger overshoot", AbsZ, 1023, 1.0},
		{"stick max clamps", AbsX, 32768, 1.0},
		{"stick min", AbsY, -32768, -1.0},
		{"stick center", AbsRX, 0, 0.0},
		{"stick half", AbsRY, 16384, 0.5},
		{"hat passes through", AbsHat0X, -1, -1.0},
		{"hat y", AbsHat0Y, 1, 1.0},
		{"unknown axis uses stick range", 0x08, -65536, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAxis(tt.code, tt.raw); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvdevKeys(t *testing.T) {
	n := NewEvdev(AllClasses())

	ev, ok := n.Normalize(EvKey, 30, 1)
	if !ok {
		t.Fatal("Expected KEY_A press to normalize")
	}
	down, isDown := ev.(input.KeyDown)
	if !isDown || down.Code != "KeyA" || down.Keycode != 30 {
		t.Errorf("Expected KeyDown{KeyA}, got %#v", ev)
	}

	ev, ok = n.Normalize(EvKey, 103, 0)
	if !ok {
		t.Fatal("Expected KEY_UP release to normalize")
	}
	if up, isUp := ev.(input.KeyUp); !isUp || up.Code != "ArrowUp" {
		t.Errorf("Expected KeyUp{ArrowUp}, got %#v", ev)
	}

	if _, ok := n.Normalize(EvKey, 30, 2); ok {
		t.Error("Expected autorepeat to be dropped")
	}
	if _, ok := n.Normalize(EvKey, 240, 1); ok {
		t.Error("Expected unmapped key code to be dropped")
	}
}

func TestEvdevMouseButtons(t *testing.T) {
	n := NewEvdev(AllClasses())

	tests := []struct {
		code uint16
		want int
	}{
		{BtnLeft, input.MouseLeft},
		{BtnRight, input.MouseRight},
		{BtnMiddle, input.MouseMiddle},
		{BtnSide, input.MouseBack},
		{BtnExtra, input.MouseForward},
	}

	for _, tt := range tests {
		ev, ok := n.Normalize(EvKey, tt.code, 1)
		if !ok {
			t.Fatalf("Expected code 0x%X to normalize", tt.code)
		}
		mb, isButton := ev.(input.MouseButton)
		if !isButton || mb.Index != tt.want || !mb.Pressed {
			t.Errorf("Code 0x%X: expected MouseButton{%d, true}, got %#v", tt.code, tt.want, ev)
		}
	}
}

func TestEvdevPointerAccumulates(t *testing.T) {
	n := NewEvdev(AllClasses())

	n.Normalize(EvRel, RelX, 10)
	n.Normalize(EvRel, RelY, -4)
	ev, _ := n.Normalize(EvRel, RelX, 5)

	mm, ok := ev.(input.MouseMove)
	if !ok {
		t.Fatalf("Expected MouseMove, got %#v", ev)
	}
	if mm.X != 15 || mm.Y != -4 {
		t.Errorf("Expected position (15, -4), got (%v, %v)", mm.X, mm.Y)
	}
}

func TestEvdevWheel(t *testing.T) {
	n := NewEvdev(AllClasses())

	ev, _ := n.Normalize(EvRel, RelWheel, 1)
	if w, ok := ev.(input.Wheel); !ok || w.DY != -1 {
		t.Errorf("Expected wheel up to give DY -1, got %#v", ev)
	}

	ev, _ = n.Normalize(EvRel, RelHWheel, 1)
	if w, ok := ev.(input.Wheel); !ok || w.DX != 1 {
		t.Errorf("Expected horizontal wheel DX 1, got %#v", ev)
	}
}

func TestEvdevGamepad(t *testing.T) {
	n := NewEvdev(AllClasses())

	ev, ok := n.Normalize(EvKey, BtnSouth, 1)
	if !ok {
		t.Fatal("Expected BTN_SOUTH to normalize")
	}
	if b, isButton := ev.(input.GamepadButton); !isButton || b.Index != 0 || !b.Pressed || b.Value != 1 {
		t.Errorf("Expected GamepadButton{0, true, 1}, got %#v", ev)
	}

	ev, _ = n.Normalize(EvKey, BtnMode, 1)
	if b, _ := ev.(input.GamepadButton); b.Index != 16 {
		t.Errorf("Expected guide button at index 16, got %d", b.Index)
	}

	ev, _ = n.Normalize(EvAbs, AbsRZ, 255)
	if a, isAxis := ev.(input.GamepadAxis); !isAxis || a.Index != 5 || a.Value != 1 {
		t.Errorf("Expected GamepadAxis{5, 1}, got %#v", ev)
	}
}

func TestEvdevOptionsFilter(t *testing.T) {
	n := NewEvdev(EvdevOptions{Gamepad: true})

	if _, ok := n.Normalize(EvKey, 30, 1); ok {
		t.Error("Expected keyboard event to be filtered")
	}
	if _, ok := n.Normalize(EvRel, RelX, 3); ok {
		t.Error("Expected pointer event to be filtered")
	}
	if _, ok := n.Normalize(EvAbs, AbsX, 100); !ok {
		t.Error("Expected gamepad axis to pass")
	}
}

func TestEvdevIgnoresSyncAndMisc(t *testing.T) {
	n := NewEvdev(AllClasses())

	if _, ok := n.Normalize(EvSyn, 0, 0); ok {
		t.Error("Expected SYN to be dropped")
	}
	if _, ok := n.Normalize(EvMsc, 4, 458756); ok {
		t.Error("Expected MSC_SCAN to be dropped")
	}
	if _, ok := n.Normalize(0x15, 1, 1); ok {
		t.Error("Expected unknown type to be dropped")
	}
}
