package hotkey

import (
	"testing"
	"time"

	"inputoverlay/internal/input"
)

func waitFired(t *testing.T, fired chan struct{}) bool {
	t.Helper()
	select {
	case <-fired:
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

func TestComboWithAliases(t *testing.T) {
	m := NewManager()
	fired := make(chan struct{}, 4)
	if _, err := m.Register("Ctrl+Shift+Q", func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	m.Publish(input.KeyDown{Code: "ControlRight"})
	m.Publish(input.KeyDown{Code: "ShiftLeft"})
	if waitFired(t, fired) {
		t.Fatal("Expected no trigger before the last key")
	}
	m.Publish(input.KeyDown{Code: "KeyQ"})
	if !waitFired(t, fired) {
		t.Fatal("Expected trigger once all parts are held")
	}
}

func TestComboFiresOncePerPress(t *testing.T) {
	m := NewManager()
	fired := make(chan struct{}, 4)
	m.Register("Alt+1", func() { fired <- struct{}{} })

	m.Publish(input.KeyDown{Code: "AltLeft"})
	m.Publish(input.KeyDown{Code: "Digit1"})
	if !waitFired(t, fired) {
		t.Fatal("Expected first trigger")
	}

	// Another key while the combo is held must not re-trigger.
	m.Publish(input.KeyDown{Code: "KeyZ"})
	if waitFired(t, fired) {
		t.Error("Expected no re-trigger while held")
	}

	m.Publish(input.KeyUp{Code: "Digit1"})
	m.Publish(input.KeyDown{Code: "Digit1"})
	if !waitFired(t, fired) {
		t.Error("Expected trigger after release and press")
	}
}

func TestMouseCombo(t *testing.T) {
	m := NewManager()
	fired := make(chan struct{}, 1)
	m.Register("Mouse4+Mouse5", func() { fired <- struct{}{} })

	m.Publish(input.MouseButton{Index: input.MouseBack, Pressed: true})
	m.Publish(input.MouseButton{Index: input.MouseForward, Pressed: true})
	if !waitFired(t, fired) {
		t.Error("Expected mouse combo to trigger")
	}
}

func TestRegisterRejectsEmpty(t *testing.T) {
	m := NewManager()
	if _, err := m.Register("", func() {}); err == nil {
		t.Error("Expected error for empty combo")
	}
	if _, err := m.Register("Ctrl++Q", func() {}); err == nil {
		t.Error("Expected error for empty part")
	}
}

func TestClear(t *testing.T) {
	m := NewManager()
	fired := make(chan struct{}, 1)
	m.Register("F9", func() { fired <- struct{}{} })
	m.Clear()

	m.Publish(input.KeyDown{Code: "F9"})
	if waitFired(t, fired) {
		t.Error("Expected no trigger after Clear")
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a", "KeyA"},
		{"7", "Digit7"},
		{"esc", "Escape"},
		{"F12", "F12"},
		{"mouse1", "Mouse0"},
	}
	for _, tt := range tests {
		got := expand(tt.in)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("expand(%q): expected %s, got %v", tt.in, tt.want, got)
		}
	}
}
