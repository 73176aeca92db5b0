package network

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// probeTimeout bounds each host probe during a scan.
const probeTimeout = 500 * time.Millisecond

// scanWorkers bounds concurrent probes.
const scanWorkers = 64

// DiscoveredHost is an overlay host found on the network.
type DiscoveredHost struct {
	Addr string
	// Backends is empty when the host requires a token the scan did not
	// have.
	Backends  map[string]bool
	Readonly  bool
	Consumers int
}

// GetLocalIPs returns all available non-loopback IPv4 addresses.
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip = ip.To4(); ip != nil {
				ips = append(ips, ip.String())
			}
		}
	}
	return ips, nil
}

// subnetCandidates lists the other addresses of each local /24.
func subnetCandidates(localIPs []string) []string {
	seen := make(map[string]bool)
	for _, ip := range localIPs {
		seen[ip] = true
	}
	var out []string
	for _, local := range localIPs {
		ip := net.ParseIP(local).To4()
		if ip == nil {
			continue
		}
		for i := 1; i <= 254; i++ {
			cand := net.IPv4(ip[0], ip[1], ip[2], byte(i)).String()
			if seen[cand] {
				continue
			}
			seen[cand] = true
			out = append(out, cand)
		}
	}
	return out
}

// ScanLAN looks for overlay hosts on every local /24 subnet.
func ScanLAN(ctx context.Context, port int, token string) ([]DiscoveredHost, error) {
	ips, err := GetLocalIPs()
	if err != nil {
		return nil, fmt.Errorf("discovery: local addresses: %w", err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("discovery: no IPv4 interface is up")
	}
	return Scan(ctx, subnetCandidates(ips), port, token), nil
}

// Scan probes each ip on port and returns the hosts that answered, sorted
// by address.
func Scan(ctx context.Context, ips []string, port int, token string) []DiscoveredHost {
	var (
		mu    sync.Mutex
		hosts []DiscoveredHost
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, scanWorkers)

	for _, ip := range ips {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return sortHosts(hosts)
		}
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			if host, ok := probeHost(ctx, addr, token); ok {
				mu.Lock()
				hosts = append(hosts, host)
				mu.Unlock()
			}
		}(net.JoinHostPort(ip, strconv.Itoa(port)))
	}

	wg.Wait()
	return sortHosts(hosts)
}

func sortHosts(hosts []DiscoveredHost) []DiscoveredHost {
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Addr < hosts[j].Addr })
	return hosts
}

// probeHost checks /health, then reads /api/status when the token allows.
func probeHost(ctx context.Context, addr, token string) (DiscoveredHost, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := newCapabilityClient(addr, token, probeTimeout)
	if err := client.Health(ctx); err != nil {
		return DiscoveredHost{}, false
	}

	host := DiscoveredHost{Addr: addr}
	if st, err := client.Status(ctx); err == nil {
		host.Backends = st.Backends
		host.Readonly = st.Readonly
		host.Consumers = st.Consumers
	}
	return host, true
}
