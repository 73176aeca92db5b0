// Package config provides configuration management for the input overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/kataras/golog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Roles
const (
	RoleHost     = "host"
	RoleConsumer = "consumer"
)

// HostAuto as host_addr makes a consumer scan the local network for a host.
const HostAuto = "auto"

// Transport modes
const (
	TransportWS  = "ws"
	TransportUDP = "udp"
)

// Config represents the application configuration
type Config struct {
	General   GeneralConfig   `json:"general"`
	Backends  BackendsConfig  `json:"backends"`
	Transport TransportConfig `json:"transport"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// Role determines if this process captures input ("host") or renders it ("consumer")
	Role string `json:"role"`

	// HostAddr is the Address:Port of the host (consumers only), or "auto"
	HostAddr string `json:"host_addr,omitempty"`

	// APIPort is the port for the host's HTTP/WebSocket server (default: 18181)
	APIPort int `json:"api_port"`

	// APIToken is an optional bearer token for API requests
	APIToken string `json:"api_token,omitempty"`

	// ShowTray shows the host's tray icon
	ShowTray bool `json:"show_tray"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level"`

	// QuitHotkey stops the host (e.g. "Ctrl+Alt+Shift+Q"); empty disables it
	QuitHotkey string `json:"quit_hotkey,omitempty"`
}

// BackendsConfig selects the capture backends the host may try.
type BackendsConfig struct {
	GlobalHook    bool `json:"global_hook"`
	NativeGamepad bool `json:"native_gamepad"`
	Evdev         bool `json:"evdev"`

	// ForceEvdev reads evdev for every device class even when the native
	// backends are running
	ForceEvdev bool `json:"force_evdev"`

	EvdevPattern     string  `json:"evdev_pattern"`
	GamepadPollMS    int     `json:"gamepad_poll_ms"`
	TriggerThreshold float64 `json:"trigger_threshold"`
}

// TransportConfig configures delivery to consumers.
type TransportConfig struct {
	// Mode is "ws" or "udp"; udp still uses the WebSocket as fallback
	Mode      string `json:"mode"`
	QueueSize int    `json:"queue_size"`
	UDPPort   int    `json:"udp_port"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Role:       RoleHost,
			HostAddr:   "127.0.0.1:18181",
			APIPort:    18181,
			ShowTray:   true,
			LogLevel:   "info",
			QuitHotkey: "Ctrl+Alt+Shift+Q",
		},
		Backends: BackendsConfig{
			GlobalHook:       true,
			NativeGamepad:    true,
			Evdev:            true,
			EvdevPattern:     "/dev/input/event*",
			GamepadPollMS:    16,
			TriggerThreshold: 0.1,
		},
		Transport: TransportConfig{
			Mode:      TransportWS,
			QueueSize: 256,
			UDPPort:   18182,
		},
	}
}

// Normalize replaces missing or out-of-range values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	switch c.General.Role {
	case RoleHost, RoleConsumer:
	default:
		c.General.Role = def.General.Role
	}
	if c.General.APIPort <= 0 || c.General.APIPort > 65535 {
		c.General.APIPort = def.General.APIPort
	}
	if c.General.HostAddr == "" {
		c.General.HostAddr = def.General.HostAddr
	}
	switch c.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.General.LogLevel = def.General.LogLevel
	}

	if c.Backends.EvdevPattern == "" {
		c.Backends.EvdevPattern = def.Backends.EvdevPattern
	}
	if c.Backends.GamepadPollMS <= 0 {
		c.Backends.GamepadPollMS = def.Backends.GamepadPollMS
	}
	if c.Backends.TriggerThreshold <= 0 || c.Backends.TriggerThreshold >= 1 {
		c.Backends.TriggerThreshold = def.Backends.TriggerThreshold
	}

	switch c.Transport.Mode {
	case TransportWS, TransportUDP:
	default:
		c.Transport.Mode = def.Transport.Mode
	}
	if c.Transport.QueueSize <= 0 {
		c.Transport.QueueSize = def.Transport.QueueSize
	}
	if c.Transport.UDPPort <= 0 || c.Transport.UDPPort > 65535 {
		c.Transport.UDPPort = def.Transport.UDPPort
	}
}

// Session holds the flags read once at process start. They never change
// afterwards.
type Session struct {
	Readonly    bool
	DevConsole  bool
	WindowFrame bool
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
	logger     *golog.Logger
}

// NewManager creates a configuration manager at the per-OS default path.
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerWithPath(configPath), nil
}

// NewManagerWithPath creates a configuration manager for an explicit file.
func NewManagerWithPath(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
		logger:     golog.Child("[config]"),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "inputoverlay")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "inputoverlay")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(dir, "inputoverlay")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the configuration file path.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		m.mu.Unlock()
		m.logger.Debugf("no configuration at %s, using defaults", m.configPath)
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("config: parse %s: %w", m.configPath, err)
	}
	cfg.Normalize()
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	m.logger.Infof("saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set updates the configuration
func (m *Manager) Set(config Config) {
	config.Normalize()
	m.mu.Lock()
	m.config = &config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
