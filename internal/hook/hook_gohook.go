//go:build hook

package hook

import (
	"inputoverlay/internal/normalize"

	gohook "github.com/robotn/gohook"
)

type gohookSource struct {
	done chan struct{}
}

func newSource() source {
	return &gohookSource{done: make(chan struct{})}
}

func (s *gohookSource) start() (<-chan normalize.HookEvent, error) {
	raw := gohook.Start()
	out := make(chan normalize.HookEvent, 256)

	go func() {
		defer close(out)
		for ev := range raw {
			hev, ok := translate(ev)
			if !ok {
				continue
			}
			select {
			case out <- hev:
			case <-s.done:
				return
			}
		}
	}()
	return out, nil
}

func (s *gohookSource) stop() {
	close(s.done)
	gohook.End()
}

// translate maps libuiohook event ids onto hook kinds. gohook's names follow
// the raw ids: KeyHold is a press, MouseHold a press and MouseDown a release.
func translate(ev gohook.Event) (normalize.HookEvent, bool) {
	hev := normalize.HookEvent{
		Keycode:   int(ev.Keycode),
		Rawcode:   int(ev.Rawcode),
		Button:    int(ev.Button),
		X:         float64(ev.X),
		Y:         float64(ev.Y),
		Rotation:  int(ev.Rotation),
		Direction: int(ev.Direction),
	}
	switch ev.Kind {
	case gohook.KeyHold:
		hev.Kind = normalize.HookKeyPressed
	case gohook.KeyUp:
		hev.Kind = normalize.HookKeyReleased
	case gohook.MouseHold:
		hev.Kind = normalize.HookMousePressed
	case gohook.MouseDown:
		hev.Kind = normalize.HookMouseReleased
	case gohook.MouseMove, gohook.MouseDrag:
		hev.Kind = normalize.HookMouseMoved
	case gohook.MouseWheel:
		hev.Kind = normalize.HookMouseWheel
	default:
		return hev, false
	}
	return hev, true
}
