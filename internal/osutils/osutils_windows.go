//go:build windows

package osutils

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/kataras/golog"
	"golang.org/x/sys/windows"
)

const firewallRule = "Input Overlay"

// IsPrivileged checks if the current process has administrative privileges.
// The global hook needs it to see input aimed at elevated windows.
func IsPrivileged() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// InGroup has no meaning for Windows device access.
func InGroup(gid int) bool {
	return false
}

// EnsureFirewallRule opens the API port (TCP) and the UDP fast path for
// consumers on other machines. Without elevation it asks for
// it through UAC.
func EnsureFirewallRule(port, udpPort int) error {
	logger := golog.Child("[osutils]")

	out, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+firewallRule).CombinedOutput()
	if err == nil && strings.Contains(string(out), firewallRule) &&
		strings.Contains(string(out), fmt.Sprintf("%d", port)) && strings.Contains(string(out), "Allow") {
		logger.Debugf("firewall: rule %q already allows port %d", firewallRule, port)
		return nil
	}
	logger.Infof("firewall: creating rule %q for port %d", firewallRule, port)

	ps := fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%[1]s' -ErrorAction SilentlyContinue; "+
			"New-NetFirewallRule -DisplayName '%[1]s' -Direction Inbound -LocalPort %[2]d -Protocol TCP -Action Allow -Profile Any; "+
			"New-NetFirewallRule -DisplayName '%[1]s' -Direction Inbound -LocalPort %[3]d -Protocol UDP -Action Allow -Profile Any",
		firewallRule, port, udpPort,
	)

	if !IsPrivileged() {
		verb, _ := syscall.UTF16PtrFromString("runas")
		exe, _ := syscall.UTF16PtrFromString("powershell.exe")
		args, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", ps))
		if err := windows.ShellExecute(0, verb, exe, args, nil, 0); err != nil {
			return fmt.Errorf("firewall: elevated powershell: %w", err)
		}
		logger.Info("firewall: UAC prompt requested")
		return nil
	}

	if out, err := exec.Command("powershell", "-NoProfile", "-Command", ps).CombinedOutput(); err != nil {
		return fmt.Errorf("firewall: create rule: %w (output: %s)", err, out)
	}
	return nil
}
