// Package supervisor starts the capture backends in priority order, records
// which ones are running and stops them symmetrically.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"inputoverlay/internal/evdev"
	"inputoverlay/internal/gamepad"
	"inputoverlay/internal/hook"
	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"

	"github.com/kataras/golog"
)

// Config selects which backends may be tried.
type Config struct {
	Hook    bool
	Gamepad bool
	Evdev   bool
	// ForceEvdev starts evdev for every device class even when the hook and
	// gamepad backends are running.
	ForceEvdev bool

	EvdevPattern     string
	PollInterval     time.Duration
	TriggerThreshold float64
}

// Capabilities reports one boolean per backend.
type Capabilities struct {
	Hook    bool
	Gamepad bool
	Evdev   bool
	// Browser is the in-page fallback and is always available.
	Browser bool
}

// GlobalInput reports whether keyboard and mouse input is captured outside
// the page.
func (c Capabilities) GlobalInput() bool {
	return c.Hook || c.Evdev
}

// Map is the status-report form.
func (c Capabilities) Map() map[string]bool {
	return map[string]bool{
		"hook":    c.Hook,
		"gamepad": c.Gamepad,
		"evdev":   c.Evdev,
		"browser": c.Browser,
	}
}

type running struct {
	backend input.Backend
	once    sync.Once
}

// Supervisor owns the capture backends.
type Supervisor struct {
	cfg      Config
	hook     input.Backend
	gamepad  input.Backend
	newEvdev func(normalize.EvdevOptions) input.Backend
	logger   *golog.Logger

	mu      sync.Mutex
	caps    Capabilities
	started []*running
}

// New creates a supervisor over the platform backends.
func New(cfg Config) *Supervisor {
	return NewWithBackends(cfg,
		hook.New(),
		gamepad.New(cfg.PollInterval, cfg.TriggerThreshold),
		func(opts normalize.EvdevOptions) input.Backend {
			pattern := cfg.EvdevPattern
			if pattern == "" {
				pattern = evdev.DefaultPattern
			}
			return evdev.NewBackend(pattern, opts)
		},
	)
}

// NewWithBackends creates a supervisor over the given backends. newEvdev is
// called at most once, with the device classes evdev should cover.
func NewWithBackends(cfg Config, hookBackend, gamepadBackend input.Backend, newEvdev func(normalize.EvdevOptions) input.Backend) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		hook:     hookBackend,
		gamepad:  gamepadBackend,
		newEvdev: newEvdev,
		logger:   golog.Child("[supervisor]"),
	}
}

// Start tries each backend in order: global hook, native gamepad, then evdev
// for whatever classes are still missing. Failures are logged once and
// never abort the remaining backends.
func (s *Supervisor) Start(ctx context.Context, sink input.Sink) Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.caps = Capabilities{Browser: true}

	if s.cfg.Hook {
		s.caps.Hook = s.try(ctx, s.hook, sink)
	} else {
		s.logger.Info("global hook disabled by configuration")
	}

	if s.cfg.Gamepad {
		s.caps.Gamepad = s.try(ctx, s.gamepad, sink)
	} else {
		s.logger.Info("native gamepad disabled by configuration")
	}

	opts := normalize.EvdevOptions{
		Keyboard: !s.caps.Hook,
		Mouse:    !s.caps.Hook,
		Gamepad:  !s.caps.Gamepad,
	}
	if s.cfg.ForceEvdev {
		opts = normalize.AllClasses()
	}
	switch {
	case !s.cfg.Evdev:
		s.logger.Info("evdev disabled by configuration")
	case !opts.Keyboard && !opts.Gamepad:
		s.logger.Debug("evdev fallback not needed")
	case s.newEvdev != nil:
		s.caps.Evdev = s.try(ctx, s.newEvdev(opts), sink)
	}

	if !s.caps.GlobalInput() {
		s.logger.Info("no global keyboard/mouse capture; the page's own listeners drive input")
	}
	return s.caps
}

func (s *Supervisor) try(ctx context.Context, b input.Backend, sink input.Sink) bool {
	if b == nil {
		return false
	}
	if err := b.Start(ctx, sink); err != nil {
		if errors.Is(err, input.ErrBackendUnavailable) {
			s.logger.Warnf("%s unavailable: %v", b.Name(), err)
		} else {
			s.logger.Errorf("%s failed to start: %v", b.Name(), err)
		}
		return false
	}
	s.logger.Infof("%s started", b.Name())
	s.started = append(s.started, &running{backend: b})
	return true
}

// Capabilities returns the result of the last Start.
func (s *Supervisor) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// Stop stops every started backend exactly once. Errors are joined. A
// second call is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	started := append([]*running(nil), s.started...)
	s.mu.Unlock()

	var errs []error
	for _, r := range started {
		r.once.Do(func() {
			if err := r.backend.Stop(); err != nil {
				errs = append(errs, err)
				s.logger.Warnf("%s stop: %v", r.backend.Name(), err)
				return
			}
			s.logger.Debugf("%s stopped", r.backend.Name())
		})
	}
	return errors.Join(errs...)
}
