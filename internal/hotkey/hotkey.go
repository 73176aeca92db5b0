// Package hotkey matches key and mouse-button combinations against the
// canonical event stream.
package hotkey

import (
	"fmt"
	"strings"
	"sync"

	"inputoverlay/internal/input"

	"github.com/kataras/golog"
)

// Manager handles hotkey registration and matching. It implements
// input.Sink, so it sees the same normalized events as the overlay and works
// with whichever capture backend is running.
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // canonical names currently held
	logger       *golog.Logger
}

type registeredHotkey struct {
	parts    [][]string // each part lists its acceptable canonical names
	original string
	callback func()
	armed    bool
}

// aliases expands the friendly names accepted in a combo string.
var aliases = map[string][]string{
	"CTRL":    {"ControlLeft", "ControlRight"},
	"CONTROL": {"ControlLeft", "ControlRight"},
	"SHIFT":   {"ShiftLeft", "ShiftRight"},
	"ALT":     {"AltLeft", "AltRight"},
	"META":    {"MetaLeft", "MetaRight"},
	"WIN":     {"MetaLeft", "MetaRight"},
	"CMD":     {"MetaLeft", "MetaRight"},
	"ESC":     {"Escape"},
	"SPACE":   {"Space"},
	"ENTER":   {"Enter"},
	"TAB":     {"Tab"},
	"UP":      {"ArrowUp"},
	"DOWN":    {"ArrowDown"},
	"LEFT":    {"ArrowLeft"},
	"RIGHT":   {"ArrowRight"},
}

var mouseNames = map[string]int{
	"MOUSE1": input.MouseLeft,
	"MOUSE2": input.MouseRight,
	"MOUSE3": input.MouseMiddle,
	"MOUSE4": input.MouseBack,
	"MOUSE5": input.MouseForward,
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		logger:       golog.Child("[hotkey]"),
	}
}

// Register registers a combo string (e.g. "Ctrl+Shift+Q", "Mouse4+Mouse5",
// "ControlLeft+KeyQ") and a callback. Single letters and digits stand for
// KeyX and DigitN; any other part is taken as a canonical key code.
func (m *Manager) Register(combo string, callback func()) (int, error) {
	if strings.TrimSpace(combo) == "" {
		return 0, fmt.Errorf("hotkey: empty combo")
	}

	var parts [][]string
	for _, raw := range strings.Split(combo, "+") {
		p := strings.TrimSpace(raw)
		if p == "" {
			return 0, fmt.Errorf("hotkey: empty part in %q", combo)
		}
		parts = append(parts, expand(p))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: combo,
		callback: callback,
		armed:    true,
	})
	return len(m.hotkeys) - 1, nil
}

func expand(part string) []string {
	upper := strings.ToUpper(part)
	if names, ok := aliases[upper]; ok {
		return names
	}
	if idx, ok := mouseNames[upper]; ok {
		return []string{mouseKey(idx)}
	}
	if len(part) == 1 {
		c := upper[0]
		switch {
		case c >= 'A' && c <= 'Z':
			return []string{"Key" + upper}
		case c >= '0' && c <= '9':
			return []string{"Digit" + upper}
		}
	}
	return []string{part}
}

func mouseKey(idx int) string {
	return fmt.Sprintf("Mouse%d", idx)
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// Publish implements input.Sink.
func (m *Manager) Publish(ev input.Event) {
	switch e := ev.(type) {
	case input.KeyDown:
		m.UpdateState(string(e.Code), true)
	case input.KeyUp:
		m.UpdateState(string(e.Code), false)
	case input.MouseButton:
		m.UpdateState(mouseKey(e.Index), e.Pressed)
	}
}

// UpdateState updates the held state of a canonical name and checks for
// matches. A combo fires once per press and re-arms when any part is released.
func (m *Manager) UpdateState(key string, isDown bool) {
	if key == "" {
		return
	}

	m.mu.Lock()
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}

	var fire []*registeredHotkey
	for _, hk := range m.hotkeys {
		if !m.matches(hk) {
			hk.armed = true
			continue
		}
		if hk.armed {
			hk.armed = false
			fire = append(fire, hk)
		}
	}
	m.mu.Unlock()

	for _, hk := range fire {
		m.logger.Infof("hotkey triggered: %s", hk.original)
		go hk.callback()
	}
}

func (m *Manager) matches(hk *registeredHotkey) bool {
	for _, alternatives := range hk.parts {
		held := false
		for _, name := range alternatives {
			if m.currentState[name] {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}
