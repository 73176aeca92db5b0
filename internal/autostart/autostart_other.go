//go:build !linux && !darwin && !windows

package autostart

import (
	"fmt"
	"runtime"
)

func enable(string, []string) error {
	return fmt.Errorf("autostart: unsupported platform: %s", runtime.GOOS)
}

func disable() error {
	return fmt.Errorf("autostart: unsupported platform: %s", runtime.GOOS)
}

func isEnabled() bool {
	return false
}
