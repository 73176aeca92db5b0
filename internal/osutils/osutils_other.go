//go:build !linux && !windows

package osutils

import (
	"os"

	"github.com/kataras/golog"
)

// IsPrivileged reports whether the process runs as root.
func IsPrivileged() bool {
	return os.Geteuid() == 0
}

// InGroup reports whether the process holds the given group id.
func InGroup(gid int) bool {
	groups, err := os.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if g == gid {
			return true
		}
	}
	return os.Getegid() == gid
}

// EnsureFirewallRule is a stub outside Windows.
func EnsureFirewallRule(port, udpPort int) error {
	golog.Child("[osutils]").Debugf("firewall: automatic rule management is only supported on windows (port %d)", port)
	return nil
}
