// Package autostart registers the host to start at login.
package autostart

import (
	"fmt"
	"os"
	"strings"
)

// Label names the login item on every platform.
const Label = "inputoverlay"

// Enable starts the current executable with args at login.
func Enable(args ...string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("autostart: executable path: %w", err)
	}
	return enable(exe, args)
}

// Disable removes the login item. Removing a missing item is not an error.
func Disable() error {
	return disable()
}

// IsEnabled reports whether the login item exists.
func IsEnabled() bool {
	return isEnabled()
}

// commandLine quotes each argument that contains a space.
func commandLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exe}, args...) {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
