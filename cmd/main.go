// Input Overlay
// Captures keyboard, mouse and gamepad input on the host and streams it to
// overlay consumers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"inputoverlay/internal/api"
	"inputoverlay/internal/autostart"
	"inputoverlay/internal/config"
	"inputoverlay/internal/devtools"
	"inputoverlay/internal/evdev"
	"inputoverlay/internal/hotkey"
	"inputoverlay/internal/input"
	"inputoverlay/internal/network"
	"inputoverlay/internal/osutils"
	"inputoverlay/internal/state"
	"inputoverlay/internal/supervisor"
	"inputoverlay/internal/tray"

	"github.com/kataras/golog"
)

var (
	version     = "0.1.0"
	showVer     = flag.Bool("version", false, "Show version")
	listDevs    = flag.Bool("list", false, "List input devices and whether they can be read")
	discover    = flag.Bool("discover", false, "Scan the local network for overlay hosts")
	autoStart   = flag.String("autostart", "", "Start the host at login: enable, disable or status")
	asConsumer  = flag.Bool("consumer", false, "Run as a consumer regardless of the configured role")
	configPath  = flag.String("config", "", "Path to the configuration file")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	readonly    = flag.Bool("in-clickthrough-readonly-mode", false, "Start the overlay click-through and read-only")
	devConsole  = flag.Bool("with-dev-console", false, "Open the runtime stats console")
	windowFrame = flag.Bool("with-window-frame", false, "Draw the overlay with a window frame")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("inputoverlay version %s\n", version)
		return
	}

	cfgMgr, err := newConfigManager()
	if err != nil {
		golog.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		golog.Warnf("failed to load config: %v", err)
	}
	cfg := cfgMgr.Get()

	level := cfg.General.LogLevel
	if *debug {
		level = "debug"
	}
	golog.SetLevel(level)

	session := config.Session{
		Readonly:    *readonly,
		DevConsole:  *devConsole,
		WindowFrame: *windowFrame,
	}

	if *listDevs {
		listDevices(cfg)
		return
	}

	if *discover {
		listHosts(cfg)
		return
	}

	if *autoStart != "" {
		handleAutostart(*autoStart)
		return
	}

	if *asConsumer || cfg.General.Role == config.RoleConsumer {
		runConsumer(cfg, session)
		return
	}
	runHost(cfg, session)
}

func newConfigManager() (*config.Manager, error) {
	if *configPath != "" {
		return config.NewManagerWithPath(*configPath), nil
	}
	return config.NewManager()
}

func listDevices(cfg config.Config) {
	infos, err := evdev.Describe(cfg.Backends.EvdevPattern)
	if err != nil {
		golog.Fatalf("Failed to list devices: %v", err)
	}

	fmt.Println("Input Devices:")
	fmt.Println("--------------")
	if len(infos) == 0 {
		fmt.Printf("none matching %s\n", cfg.Backends.EvdevPattern)
	}
	for _, info := range infos {
		fmt.Printf("%s\n", info.Path)
		if info.Name != "" {
			fmt.Printf("  Name: %s\n", info.Name)
		}
		switch {
		case info.Err == nil:
			fmt.Printf("  Readable: ✓\n")
		case errors.Is(info.Err, input.ErrPermissionDenied):
			fmt.Printf("  Readable: ✗ permission denied (run as root or join the input group)\n")
		default:
			fmt.Printf("  Readable: ✗ %v\n", info.Err)
		}
	}
}

func listHosts(cfg config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hosts, err := network.ScanLAN(ctx, cfg.General.APIPort, cfg.General.APIToken)
	if err != nil {
		golog.Fatalf("Failed to scan: %v", err)
	}

	fmt.Println("Overlay Hosts:")
	fmt.Println("--------------")
	if len(hosts) == 0 {
		fmt.Println("none found")
	}
	for _, h := range hosts {
		fmt.Printf("%s\n", h.Addr)
		if h.Backends == nil {
			fmt.Printf("  Status: token required\n")
			continue
		}
		fmt.Printf("  Backends: hook=%v gamepad=%v evdev=%v\n", h.Backends["hook"], h.Backends["gamepad"], h.Backends["evdev"])
		fmt.Printf("  Readonly: %v, consumers: %d\n", h.Readonly, h.Consumers)
	}
}

func handleAutostart(action string) {
	switch action {
	case "enable":
		args := []string{}
		if *configPath != "" {
			args = append(args, "-config", *configPath)
		}
		if err := autostart.Enable(args...); err != nil {
			golog.Fatalf("Failed to enable autostart: %v", err)
		}
		fmt.Println("Autostart enabled")
	case "disable":
		if err := autostart.Disable(); err != nil {
			golog.Fatalf("Failed to disable autostart: %v", err)
		}
		fmt.Println("Autostart disabled")
	case "status":
		fmt.Printf("Autostart enabled: %v\n", autostart.IsEnabled())
	default:
		golog.Fatalf("Unknown -autostart action %q (want enable, disable or status)", action)
	}
}

func runHost(cfg config.Config, session config.Session) {
	golog.Infof("Input Overlay host starting (version %s)", version)

	switch runtime.GOOS {
	case "linux":
		if !osutils.IsPrivileged() {
			golog.Infof("not running as root; evdev needs read access to %s", cfg.Backends.EvdevPattern)
		}
	case "windows":
		if !osutils.IsPrivileged() {
			golog.Info("not elevated; input aimed at elevated windows will not be captured")
		}
		go func() {
			if err := osutils.EnsureFirewallRule(cfg.General.APIPort, cfg.Transport.UDPPort); err != nil {
				golog.Warnf("firewall: %v", err)
			}
		}()
	}

	var forwarders []api.Forwarder
	var udpSender *network.UDPSender
	if cfg.Transport.Mode == config.TransportUDP {
		udpSender = network.NewUDPSender(fmt.Sprintf(":%d", cfg.Transport.UDPPort))
		if err := udpSender.Start(); err != nil {
			golog.Warnf("udp transport unavailable, WebSocket only: %v", err)
			udpSender = nil
		} else {
			forwarders = append(forwarders, udpSender)
		}
	}

	sup := supervisor.New(supervisor.Config{
		Hook:             cfg.Backends.GlobalHook,
		Gamepad:          cfg.Backends.NativeGamepad,
		Evdev:            cfg.Backends.Evdev,
		ForceEvdev:       cfg.Backends.ForceEvdev,
		EvdevPattern:     cfg.Backends.EvdevPattern,
		PollInterval:     time.Duration(cfg.Backends.GamepadPollMS) * time.Millisecond,
		TriggerThreshold: cfg.Backends.TriggerThreshold,
	})

	apiServer := api.NewServer(api.Options{
		Token:      cfg.General.APIToken,
		QueueSize:  cfg.Transport.QueueSize,
		Backends:   func() map[string]bool { return sup.Capabilities().Map() },
		Forwarders: forwarders,
	})

	st := state.New()
	hkMgr := hotkey.NewManager()

	// Capabilities are fixed before the listener opens; events published
	// before then reach an empty hub.
	ctx, cancel := context.WithCancel(context.Background())
	caps := sup.Start(ctx, input.Fanout{st, apiServer, hkMgr})
	apiServer.SetCapabilities(session.Readonly, caps.GlobalInput(), session.DevConsole)
	go func() {
		if err := apiServer.Start(fmt.Sprintf(":%d", cfg.General.APIPort)); err != nil {
			golog.Errorf("API server error: %v", err)
		}
	}()
	golog.Infof("backends: hook=%v gamepad=%v evdev=%v (global input: %v)", caps.Hook, caps.Gamepad, caps.Evdev, caps.GlobalInput())
	golog.Infof("session: readonly=%v dev console=%v window frame=%v", session.Readonly, session.DevConsole, session.WindowFrame)

	var console *devtools.Console
	if session.DevConsole {
		console = devtools.New("")
		console.Launch()
	}

	done := make(chan struct{})
	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			golog.Info("Shutting down...")
			cancel()
			if err := sup.Stop(); err != nil {
				golog.Warnf("backend stop: %v", err)
			}
			if err := apiServer.Stop(); err != nil {
				golog.Warnf("API server stop: %v", err)
			}
			if udpSender != nil {
				udpSender.Stop()
			}
			if console != nil {
				console.Stop()
			}
			close(done)
		})
	}

	var t *tray.Tray
	if cfg.General.ShowTray {
		t = tray.New("Overlay", "Input Overlay host")
	}
	quit := func() {
		if t != nil {
			t.Stop()
			return
		}
		shutdown()
	}

	if cfg.General.QuitHotkey != "" {
		if _, err := hkMgr.Register(cfg.General.QuitHotkey, quit); err != nil {
			golog.Warnf("failed to register quit hotkey: %v", err)
		} else if !caps.GlobalInput() {
			golog.Warnf("quit hotkey %s registered but no global keyboard backend is running", cfg.General.QuitHotkey)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			quit()
		case <-done:
		}
	}()

	if t == nil {
		golog.Info("Input Overlay host running. Press Ctrl+C to stop.")
		<-done
		return
	}

	t.AddBackendStatus(caps.Map())
	consumersID := t.AddStatusItem("consumers: 0", false)
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n := apiServer.Consumers()
				t.SetItemTitle(consumersID, fmt.Sprintf("consumers: %d", n))
				t.SetItemChecked(consumersID, n > 0)
			case <-done:
				return
			}
		}
	}()

	golog.Info("Input Overlay host running. Press Ctrl+C to stop.")
	t.Run()
	shutdown()
}

func runConsumer(cfg config.Config, session config.Session) {
	hostAddr := cfg.General.HostAddr
	if hostAddr == config.HostAuto {
		hostAddr = findHost(cfg)
	}
	golog.Infof("Input Overlay consumer starting, host %s", hostAddr)

	client := network.NewCapabilityClient(hostAddr, cfg.General.APIToken)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	caps, err := client.Fetch(ctx)
	cancel()
	if err != nil {
		golog.Warnf("capability query failed, assuming in-page input only: %v", err)
	}
	golog.Infof("host capabilities: readonly=%v global input=%v", caps.Readonly, caps.GlobalInput)

	st := state.New()
	dispatcher := network.NewDispatcher(st)

	var stopTransport func()
	if cfg.Transport.Mode == config.TransportUDP {
		stopTransport = startUDP(hostAddr, cfg.Transport.UDPPort, dispatcher)
	}
	if stopTransport == nil {
		ws := network.NewWSClient(hostAddr, cfg.General.APIToken, dispatcher)
		ws.Start()
		stopTransport = ws.Close
	}

	var console *devtools.Console
	if session.DevConsole {
		console = devtools.New("")
		console.Launch()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	frame := time.NewTicker(time.Second / 60)
	defer frame.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	golog.Info("Input Overlay consumer running. Press Ctrl+C to stop.")
	last := time.Now()
	visiblePads := 0
	for {
		select {
		case now := <-frame.C:
			// delta is in frames at 60 Hz
			st.Tick(now.Sub(last).Seconds() * 60)
			last = now
			if pads := st.Gamepads(); len(pads) != visiblePads {
				visiblePads = len(pads)
				golog.Infof("visible gamepads: %d", visiblePads)
			}
		case <-report.C:
			snap := st.Snapshot()
			pad := st.Gamepad(0)
			golog.Debugf("keys held: %d, mouse: (%.0f, %.0f), gamepad: %v, rejected: %d, unmapped: %d",
				len(snap.Keys), snap.Mouse.X, snap.Mouse.Y, pad != nil,
				dispatcher.Rejected(), dispatcher.Unmapped())
		case <-sigCh:
			golog.Info("Shutting down...")
			stopTransport()
			if console != nil {
				console.Stop()
			}
			return
		}
	}
}

// findHost picks the first host a LAN scan finds, falling back to the
// loopback address.
func findHost(cfg config.Config) string {
	fallback := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.General.APIPort))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hosts, err := network.ScanLAN(ctx, cfg.General.APIPort, cfg.General.APIToken)
	if err != nil || len(hosts) == 0 {
		golog.Warnf("no host found on the local network, using %s", fallback)
		return fallback
	}
	if len(hosts) > 1 {
		golog.Infof("found %d hosts, using %s", len(hosts), hosts[0].Addr)
	}
	return hosts[0].Addr
}

// startUDP switches to the UDP fast path when the host answers a probe. It
// returns nil when the consumer should stay on the WebSocket.
func startUDP(hostAddr string, udpPort int, dispatcher *network.Dispatcher) func() {
	host, _, err := net.SplitHostPort(hostAddr)
	if err != nil {
		host = hostAddr
	}
	receiver := network.NewUDPReceiver(net.JoinHostPort(host, strconv.Itoa(udpPort)), dispatcher)
	if !receiver.Probe() {
		return nil
	}
	if err := receiver.Start(); err != nil {
		golog.Warnf("udp receiver: %v", err)
		return nil
	}
	return receiver.Stop
}
