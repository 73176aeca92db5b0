//go:build linux

package osutils

import (
	"os"

	"github.com/kataras/golog"
	"golang.org/x/sys/unix"
)

// IsPrivileged reports whether the process runs as root, which is what
// reading /dev/input/event* needs without an input group grant.
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}

// InGroup reports whether the process holds the given group id, either as
// its effective group or a supplementary one.
func InGroup(gid int) bool {
	if unix.Getegid() == gid {
		return true
	}
	groups, err := os.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if g == gid {
			return true
		}
	}
	return false
}

// EnsureFirewallRule is a no-op on Linux; firewall setup is left to the
// distribution's tooling.
func EnsureFirewallRule(port, udpPort int) error {
	golog.Child("[osutils]").Debugf("firewall: rule management not supported on linux (port %d)", port)
	return nil
}
