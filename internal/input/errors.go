package input

import "errors"

var (
	// ErrPermissionDenied is returned when a device exists but cannot be read.
	ErrPermissionDenied = errors.New("input: permission denied")

	// ErrNotFound is returned when a device disappeared between discovery and open.
	ErrNotFound = errors.New("input: device not found")

	// ErrDeviceDisconnected is reported when an open device stream ends.
	ErrDeviceDisconnected = errors.New("input: device disconnected")

	// ErrBackendUnavailable is returned when a backend's library or driver is
	// missing on this platform.
	ErrBackendUnavailable = errors.New("input: backend unavailable")

	// ErrTransportChannelClosed is returned when publishing after the
	// transport shut down.
	ErrTransportChannelClosed = errors.New("input: transport channel closed")
)
