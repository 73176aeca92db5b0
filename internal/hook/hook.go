// Package hook is the OS-level global-hook capture backend.
package hook

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"

	"github.com/kataras/golog"
)

// source is the platform hook library. start returns a stream that is
// closed when the hook stops.
type source interface {
	start() (<-chan normalize.HookEvent, error)
	stop()
}

// Backend normalizes global-hook events into canonical events.
type Backend struct {
	src    source
	logger *golog.Logger

	nonKeyboard atomic.Uint64
	unmapped    atomic.Uint64

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New returns the hook backend for this build. Without the hook build tag
// Start reports input.ErrBackendUnavailable.
func New() *Backend {
	return newBackend(newSource())
}

func newBackend(src source) *Backend {
	return &Backend{
		src:    src,
		logger: golog.Child("[hook]"),
		done:   make(chan struct{}),
	}
}

// Name implements input.Backend.
func (b *Backend) Name() string { return "hook" }

// Start installs the hook and forwards events to sink until Stop or ctx is
// done.
func (b *Backend) Start(ctx context.Context, sink input.Sink) error {
	events, err := b.src.start()
	if err != nil {
		return fmt.Errorf("hook: %w", err)
	}

	b.mu.Lock()
	b.started = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				b.handle(ev, sink)
			case <-ctx.Done():
				go b.Stop()
				return
			case <-b.done:
				return
			}
		}
	}()

	b.logger.Info("global hook installed")
	return nil
}

func (b *Backend) handle(ev normalize.HookEvent, sink input.Sink) {
	isKey := ev.Kind == normalize.HookKeyPressed || ev.Kind == normalize.HookKeyReleased
	// keycode 0 comes from synthetic or non-keyboard sources
	if isKey && ev.Keycode == 0 && ev.Code == "" {
		n := b.nonKeyboard.Add(1)
		b.logger.Debugf("dropped key event with keycode 0 (rawcode %d, %d so far)", ev.Rawcode, n)
		return
	}

	out, ok := normalize.Hook(ev)
	if !ok {
		b.unmapped.Add(1)
		b.logger.Debugf("dropped unmapped hook event kind=%d keycode=%d button=%d", ev.Kind, ev.Keycode, ev.Button)
		return
	}
	sink.Publish(out)
}

// NonKeyboard counts key events dropped for having keycode 0.
func (b *Backend) NonKeyboard() uint64 { return b.nonKeyboard.Load() }

// Unmapped counts events without a canonical mapping.
func (b *Backend) Unmapped() uint64 { return b.unmapped.Load() }

// Stop removes the hook. It is safe to call more than once and before Start.
func (b *Backend) Stop() error {
	b.stopOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()
		if started {
			b.src.stop()
		}
		b.wg.Wait()
	})
	return nil
}
