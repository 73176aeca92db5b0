package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.General.Role != RoleHost {
		t.Errorf("Expected role host, got %s", cfg.General.Role)
	}
	if !cfg.Backends.GlobalHook || !cfg.Backends.NativeGamepad || !cfg.Backends.Evdev {
		t.Error("Expected every backend enabled by default")
	}
	if cfg.Backends.ForceEvdev {
		t.Error("Expected force_evdev off by default")
	}
	if cfg.Transport.Mode != TransportWS {
		t.Errorf("Expected ws transport, got %s", cfg.Transport.Mode)
	}
}

func TestLoadMissingKeepsDefaults(t *testing.T) {
	m := NewManagerWithPath(filepath.Join(t.TempDir(), "config.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Get().General.APIPort != DefaultConfig().General.APIPort {
		t.Error("Expected default port")
	}
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "general": {"role": "observer", "api_port": 0, "log_level": "loud"},
  "backends": {"global_hook": false, "gamepad_poll_ms": -5, "trigger_threshold": 3},
  "transport": {"mode": "carrier-pigeon"}
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManagerWithPath(path)
	changed := 0
	m.RegisterChangeCallback(func() { changed++ })
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	def := DefaultConfig()
	if cfg.General.Role != RoleHost {
		t.Errorf("Expected unknown role replaced, got %s", cfg.General.Role)
	}
	if cfg.General.APIPort != def.General.APIPort {
		t.Errorf("Expected default port, got %d", cfg.General.APIPort)
	}
	if cfg.General.LogLevel != "info" {
		t.Errorf("Expected info log level, got %s", cfg.General.LogLevel)
	}
	if cfg.Backends.GlobalHook {
		t.Error("Expected explicit global_hook=false kept")
	}
	if cfg.Backends.GamepadPollMS != 16 || cfg.Backends.TriggerThreshold != 0.1 {
		t.Errorf("Expected poll/threshold defaults, got %d / %v", cfg.Backends.GamepadPollMS, cfg.Backends.TriggerThreshold)
	}
	if cfg.Transport.Mode != TransportWS {
		t.Errorf("Expected ws transport, got %s", cfg.Transport.Mode)
	}
	if changed != 1 {
		t.Errorf("Expected change callback once, got %d", changed)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)

	m := NewManagerWithPath(path)
	if err := m.Load(); err == nil {
		t.Error("Expected parse error")
	}
	if m.Get().General.Role != RoleHost {
		t.Error("Expected defaults kept after a parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	m := NewManagerWithPath(path)

	cfg := m.Get()
	cfg.General.Role = RoleConsumer
	cfg.General.APIToken = "secret"
	cfg.Transport.Mode = TransportUDP
	m.Set(cfg)
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := NewManagerWithPath(path)
	if err := other.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := other.Get()
	if got.General.Role != RoleConsumer || got.General.APIToken != "secret" || got.Transport.Mode != TransportUDP {
		t.Errorf("Expected saved values, got %#v", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewManagerWithPath(filepath.Join(t.TempDir(), "config.json"))
	cfg := m.Get()
	cfg.General.APIPort = 1
	if m.Get().General.APIPort == 1 {
		t.Error("Expected Get to return a copy")
	}
}
