// Package tray shows the host's backend status in the system tray using
// getlantern/systray.
package tray

import (
	"fmt"
	"sort"
	"sync"

	"github.com/getlantern/systray"
	"github.com/kataras/golog"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Checked  bool
	Disabled bool
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu. Items are declared before Run
// and created once systray is ready.
type Tray struct {
	mu      sync.Mutex
	title   string
	tooltip string
	items   []*MenuItem
	quitCh  chan struct{}
	logger  *golog.Logger
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
		logger:  golog.Child("[tray]"),
	}
}

// AddMenuItem adds a clickable menu item and returns its id.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Callback: callback})
	return id
}

// AddStatusItem adds a disabled, checkable line used to show state.
func (t *Tray) AddStatusItem(title string, checked bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Checked: checked, Disabled: true})
	return id
}

// AddBackendStatus adds one status line per backend, sorted by name.
func (t *Tray) AddBackendStatus(backends map[string]bool) {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "off"
		if backends[name] {
			state = "running"
		}
		t.AddStatusItem(fmt.Sprintf("%s: %s", name, state), backends[name])
	}
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil)
}

// SetItemTitle changes the text of an item.
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Title = title
	if mi.item != nil {
		mi.item.SetTitle(title)
	}
}

// SetItemChecked sets the checked state of a menu item
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Checked = checked
	if mi.item != nil {
		if checked {
			mi.item.Check()
		} else {
			mi.item.Uncheck()
		}
	}
}

func (t *Tray) lookup(id int) *MenuItem {
	if id < 0 || id >= len(t.items) {
		return nil
	}
	return t.items[id]
}

// Items returns a snapshot of the declared items; nil entries are separators.
func (t *Tray) Items() []MenuItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MenuItem, len(t.items))
	for i, mi := range t.items {
		if mi != nil {
			out[i] = *mi
			out[i].item = nil
		} else {
			out[i] = MenuItem{ID: -1}
		}
	}
	return out
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		if mi.Disabled {
			mi.item = systray.AddMenuItemCheckbox(mi.Title, "", mi.Checked)
			mi.item.Disable()
			continue
		}
		mi.item = systray.AddMenuItem(mi.Title, "")
		if mi.Callback != nil {
			go func(mi *MenuItem, clicked chan struct{}) {
				for {
					select {
					case <-clicked:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(mi, mi.item.ClickedCh)
		}
	}
	t.logger.Debugf("tray ready with %d items", len(t.items))
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// getIcon returns a blank 16x16 32-bit ICO.
func getIcon() []byte {
	icon := make([]byte, 1118)
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
	})
	return icon
}
