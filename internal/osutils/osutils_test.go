//go:build !windows

package osutils

import (
	"os"
	"testing"
)

func TestIsPrivilegedMatchesEuid(t *testing.T) {
	if IsPrivileged() != (os.Geteuid() == 0) {
		t.Errorf("Expected IsPrivileged=%v", os.Geteuid() == 0)
	}
}

func TestInGroupEffective(t *testing.T) {
	if !InGroup(os.Getegid()) {
		t.Error("Expected the effective group to count")
	}
	if InGroup(-12345) {
		t.Error("Expected an impossible gid to be rejected")
	}
}
