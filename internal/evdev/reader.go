package evdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"inputoverlay/internal/input"

	"github.com/kataras/golog"
)

// DefaultPattern matches the Linux input-event character devices.
const DefaultPattern = "/dev/input/event*"

// Discover lists device files matching pattern in numeric order
// (event2 before event10).
func Discover(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("evdev: bad pattern %q: %w", pattern, err)
	}
	sort.Slice(paths, func(i, j int) bool {
		ni, oki := deviceNumber(paths[i])
		nj, okj := deviceNumber(paths[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}

func deviceNumber(path string) (int, bool) {
	base := filepath.Base(path)
	digits := strings.TrimLeftFunc(base, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// Open opens a device for reading. It fails with input.ErrPermissionDenied
// when the caller lacks read access and input.ErrNotFound when the path
// vanished since discovery.
func Open(path string) (io.ReadCloser, error) {
	if err := checkReadable(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}
	return f, nil
}

func classifyOpenError(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%s: %w", path, input.ErrPermissionDenied)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s: %w", path, input.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// Reader runs one read loop per device. Each device is owned by its own
// goroutine; a failing device never stops its siblings.
type Reader struct {
	// Pattern is the discovery glob, DefaultPattern when empty.
	Pattern string

	// OpenFunc opens a device stream. Defaults to Open.
	OpenFunc func(path string) (io.ReadCloser, error)

	// NewHandler is called once per opened device and returns the function
	// receiving that device's records. The returned function is only ever
	// called from the device's goroutine.
	NewHandler func(path string) func(RawEvent)

	// OnDisconnect is called after a device's stream ended and the device was
	// removed from the active set.
	OnDisconnect func(path string, err error)

	logger  *golog.Logger
	mu      sync.Mutex
	devices map[string]*Device
	wg      sync.WaitGroup
}

// NewReader creates a reader for the given discovery pattern.
func NewReader(pattern string) *Reader {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Reader{
		Pattern:  pattern,
		OpenFunc: Open,
		logger:   golog.Child("[evdev]"),
		devices:  make(map[string]*Device),
	}
}

// Start discovers and opens every accessible device. Devices that cannot be
// opened are logged and skipped. It returns the number of devices being read.
func (r *Reader) Start() (int, error) {
	paths, err := Discover(r.Pattern)
	if err != nil {
		return 0, err
	}

	var denied int
	for _, path := range paths {
		rc, err := r.OpenFunc(path)
		if err != nil {
			switch {
			case errors.Is(err, input.ErrPermissionDenied):
				denied++
				r.logger.Debugf("skipping %s: %v", path, err)
			case errors.Is(err, input.ErrNotFound):
				r.logger.Debugf("device %s vanished before open", path)
			default:
				r.logger.Warnf("failed to open %s: %v", path, err)
			}
			continue
		}

		d := NewDevice(path, rc)
		d.Name = deviceName(path)
		r.add(d)
	}

	if denied > 0 {
		r.logger.Warnf("%d of %d input devices are not readable (add the user to the 'input' group)", denied, len(paths))
	}
	return r.Count(), nil
}

func (r *Reader) add(d *Device) {
	r.mu.Lock()
	r.devices[d.Path] = d
	r.mu.Unlock()

	emit := func(RawEvent) {}
	if r.NewHandler != nil {
		emit = r.NewHandler(d.Path)
	}

	if d.Name != "" {
		r.logger.Infof("reading %s (%s)", d.Path, d.Name)
	} else {
		r.logger.Infof("reading %s", d.Path)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := d.ReadLoop(emit)

		r.mu.Lock()
		_, active := r.devices[d.Path]
		delete(r.devices, d.Path)
		r.mu.Unlock()

		// Stop already removed the device; that is not a disconnect.
		if !active {
			return
		}
		r.logger.Infof("device disconnected: %v", err)
		if r.OnDisconnect != nil {
			r.OnDisconnect(d.Path, err)
		}
	}()
}

// Count returns the number of devices currently being read.
func (r *Reader) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Paths returns the active device paths.
func (r *Reader) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.devices))
	for p := range r.devices {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stop closes every device and waits for the read loops to exit.
func (r *Reader) Stop() {
	r.mu.Lock()
	devices := r.devices
	r.devices = make(map[string]*Device)
	r.mu.Unlock()

	for _, d := range devices {
		d.Close()
	}
	r.wg.Wait()
}

// DeviceInfo describes one discovered device for listings.
type DeviceInfo struct {
	Path string
	Name string
	// Err is nil when the device can be read.
	Err error
}

// Describe probes every device matching pattern without reading from it.
func Describe(pattern string) ([]DeviceInfo, error) {
	paths, err := Discover(pattern)
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, 0, len(paths))
	for _, p := range paths {
		info := DeviceInfo{Path: p, Err: checkReadable(p)}
		if info.Err == nil {
			info.Name = deviceName(p)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
