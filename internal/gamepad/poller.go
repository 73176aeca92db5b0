// Package gamepad is the native gamepad-polling capture backend.
package gamepad

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"

	"github.com/kataras/golog"
)

// Default polling parameters.
const (
	DefaultInterval  = 16 * time.Millisecond
	heartbeatEvery   = 5 * time.Second
	stickFullScale   = 32767.0
	triggerFullScale = 32767.0
)

// Driver is a native controller library. All methods are called from the
// polling goroutine, which is locked to its OS thread.
type Driver interface {
	// Open initializes the library. A missing library or driver returns an
	// error wrapping input.ErrBackendUnavailable.
	Open() error
	// Poll returns the first attached controller, or a zero reading when
	// none is attached.
	Poll() normalize.PadReading
	// Name describes the controller currently polled.
	Name() string
	Close()
}

// Poller samples a Driver on a fixed ticker and publishes whole-controller
// snapshots.
type Poller struct {
	driver    Driver
	interval  time.Duration
	threshold float64
	logger    *golog.Logger

	polls atomic.Uint64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New returns a poller over this build's native driver. Without the sdl
// build tag Start reports input.ErrBackendUnavailable.
func New(interval time.Duration, threshold float64) *Poller {
	return NewPoller(newDriver(), interval, threshold)
}

// NewPoller returns a poller over driver. Zero values select the defaults.
func NewPoller(driver Driver, interval time.Duration, threshold float64) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold <= 0 {
		threshold = normalize.DefaultTriggerThreshold
	}
	return &Poller{
		driver:    driver,
		interval:  interval,
		threshold: threshold,
		logger:    golog.Child("[gamepad]"),
		done:      make(chan struct{}),
	}
}

// Name implements input.Backend.
func (p *Poller) Name() string { return "gamepad" }

// Start opens the driver on the polling goroutine and returns once it is
// known whether that succeeded.
func (p *Poller) Start(ctx context.Context, sink input.Sink) error {
	errc := make(chan error, 1)
	p.wg.Add(1)
	go p.run(ctx, sink, errc)
	return <-errc
}

func (p *Poller) run(ctx context.Context, sink input.Sink, errc chan<- error) {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := p.driver.Open(); err != nil {
		errc <- fmt.Errorf("gamepad: %w", err)
		return
	}
	defer p.driver.Close()
	errc <- nil

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	connected := false
	for {
		select {
		case <-ticker.C:
			r := p.driver.Poll()
			p.polls.Add(1)

			if r.Connected != connected {
				if r.Connected {
					p.logger.Infof("controller connected: %s", p.driver.Name())
				} else {
					p.logger.Info("controller disconnected")
				}
			}
			// publish every poll while connected, and once on disconnect
			if r.Connected || connected {
				if ev, ok := normalize.Gamepad(r, p.threshold); ok {
					sink.Publish(ev)
				}
			}
			connected = r.Connected

		case <-heartbeat.C:
			p.logger.Debugf("heartbeat: %d polls, connected=%v", p.polls.Load(), connected)

		case <-ctx.Done():
			return
		case <-p.done:
			return
		}
	}
}

// Polls returns how many times the driver has been sampled.
func (p *Poller) Polls() uint64 { return p.polls.Load() }

// Stop ends polling and closes the driver. It is safe to call more than once.
func (p *Poller) Stop() error {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	return nil
}

func scaleStick(v int16) float64 {
	return float64(v) / stickFullScale
}

func scaleTrigger(v int16) float64 {
	return float64(v) / triggerFullScale
}
