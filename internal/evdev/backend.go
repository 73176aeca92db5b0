package evdev

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"

	"github.com/kataras/golog"
)

// Backend reads every accessible evdev device and publishes normalized
// events. Each device gets its own normalizer so pointer accumulation and
// event order stay per device.
type Backend struct {
	reader *Reader
	opts   normalize.EvdevOptions
	logger *golog.Logger

	dropped   atomic.Uint64
	done      chan struct{}
	watchDone chan struct{}
	stopOnce  sync.Once
}

// NewBackend creates an evdev backend over devices matching pattern,
// forwarding only the device classes enabled in opts.
func NewBackend(pattern string, opts normalize.EvdevOptions) *Backend {
	return &Backend{
		reader: NewReader(pattern),
		opts:      opts,
		logger:    golog.Child("[evdev]"),
		done:      make(chan struct{}),
		watchDone: make(chan struct{}),
	}
}

// Reader exposes the underlying reader, mainly so tests can replace OpenFunc.
func (b *Backend) Reader() *Reader {
	return b.reader
}

// Name implements input.Backend.
func (b *Backend) Name() string {
	return "evdev"
}

// Start opens the devices and begins publishing to sink. It fails with
// input.ErrBackendUnavailable when no device could be opened.
func (b *Backend) Start(ctx context.Context, sink input.Sink) error {
	b.reader.NewHandler = func(path string) func(RawEvent) {
		n := normalize.NewEvdev(b.opts)
		return func(raw RawEvent) {
			ev, ok := n.Normalize(raw.Type, raw.Code, raw.Value)
			if !ok {
				if raw.Type != normalize.EvSyn {
					b.dropped.Add(1)
					b.logger.Debugf("%s: unmapped %s value=%d", path, CodeName(raw.Type, raw.Code), raw.Value)
				}
				return
			}
			sink.Publish(ev)
		}
	}
	b.reader.OnDisconnect = func(path string, err error) {
		b.logger.Warnf("%v (%d devices left)", err, b.reader.Count())
	}

	n, err := b.reader.Start()
	if err != nil {
		return fmt.Errorf("evdev: %w: %v", input.ErrBackendUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("evdev: no readable devices: %w", input.ErrBackendUnavailable)
	}

	go func() {
		defer close(b.watchDone)
		select {
		case <-ctx.Done():
			b.Stop()
		case <-b.done:
		}
	}()

	b.logger.Infof("reading %d devices (keyboard=%v mouse=%v gamepad=%v)",
		n, b.opts.Keyboard, b.opts.Mouse, b.opts.Gamepad)
	return nil
}

// Dropped returns how many non-sync records had no canonical meaning.
func (b *Backend) Dropped() uint64 {
	return b.dropped.Load()
}

// Stop closes every device. Calling it again is a no-op.
func (b *Backend) Stop() error {
	b.stopOnce.Do(func() {
		close(b.done)
		b.reader.Stop()
		b.logger.Debugf("stopped (%d unmapped records)", b.dropped.Load())
	})
	return nil
}
