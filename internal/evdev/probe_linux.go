//go:build linux

package evdev

import (
	"errors"
	"fmt"

	"inputoverlay/internal/input"

	goevdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

func checkReadable(path string) error {
	err := unix.Access(path, unix.R_OK)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%s: %w", path, input.ErrPermissionDenied)
	case errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%s: %w", path, input.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// deviceName asks the kernel for the device's name. Failure is not an error;
// the name is only used in logs and listings.
func deviceName(path string) string {
	dev, err := goevdev.Open(path)
	if err != nil {
		return ""
	}
	defer dev.Close()

	name, err := dev.Name()
	if err != nil {
		return ""
	}
	return name
}

// CodeName returns the kernel's symbolic name for a type/code pair.
func CodeName(typ, code uint16) string {
	if name := goevdev.CodeName(goevdev.EvType(typ), goevdev.EvCode(code)); name != "" {
		return name
	}
	return fmt.Sprintf("0x%02x/0x%03x", typ, code)
}
