package evdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"inputoverlay/internal/input"
)

// readChunk holds 64 records per read.
const readChunk = RecordSize * 64

// Device is one open input device. It owns the buffer of bytes that did not
// yet form a full record.
type Device struct {
	Path string
	Name string

	rc        io.ReadCloser
	buf       []byte
	closeOnce sync.Once
}

// NewDevice wraps an already opened stream.
func NewDevice(path string, rc io.ReadCloser) *Device {
	return &Device{Path: path, rc: rc}
}

// Feed appends chunk to the pending buffer and emits one RawEvent per
// complete record. Trailing bytes are kept for the next call.
func (d *Device) Feed(chunk []byte, emit func(RawEvent)) {
	d.buf = append(d.buf, chunk...)

	off := 0
	for len(d.buf)-off >= RecordSize {
		var rec [RecordSize]byte
		copy(rec[:], d.buf[off:off+RecordSize])
		emit(Decode(rec))
		off += RecordSize
	}
	if off > 0 {
		d.buf = append(d.buf[:0], d.buf[off:]...)
	}
}

// Pending reports how many bytes of an incomplete record are buffered.
func (d *Device) Pending() int {
	return len(d.buf)
}

// ReadLoop reads until the stream ends or fails, then closes the device.
// The returned error always wraps input.ErrDeviceDisconnected.
func (d *Device) ReadLoop(emit func(RawEvent)) error {
	defer d.Close()

	chunk := make([]byte, readChunk)
	for {
		n, err := d.rc.Read(chunk)
		if n > 0 {
			d.Feed(chunk[:n], emit)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("%s: %w", d.Path, input.ErrDeviceDisconnected)
			}
			return fmt.Errorf("%s: %w: %v", d.Path, input.ErrDeviceDisconnected, err)
		}
	}
}

// Close releases the underlying handle. Closing unblocks a pending read.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.rc.Close()
	})
	return err
}
