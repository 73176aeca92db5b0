//go:build linux

package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnableDisable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if IsEnabled() {
		t.Fatal("Expected autostart disabled in a fresh config dir")
	}
	if err := enable("/opt/input overlay/inputoverlay", []string{"-config", "/etc/io.json"}); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if !IsEnabled() {
		t.Error("Expected autostart enabled")
	}

	data, err := os.ReadFile(filepath.Join(dir, "autostart", Label+".desktop"))
	if err != nil {
		t.Fatal(err)
	}
	want := `Exec="/opt/input overlay/inputoverlay" -config /etc/io.json`
	if !strings.Contains(string(data), want) {
		t.Errorf("Expected %q in entry, got:\n%s", want, data)
	}

	if err := Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if IsEnabled() {
		t.Error("Expected autostart disabled")
	}
	if err := Disable(); err != nil {
		t.Errorf("Expected second Disable to succeed, got %v", err)
	}
}
