package network

import (
	"context"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"

	"inputoverlay/internal/api"
)

func TestScanFindsHost(t *testing.T) {
	srv := api.NewServer(api.Options{
		Token:    "tok",
		Backends: func() map[string]bool { return map[string]bool{"evdev": true} },
	})
	defer srv.Stop()
	srv.SetCapabilities(true, true, false)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, portStr, _ := net.SplitHostPort(hostAddr(ts))
	port, _ := strconv.Atoi(portStr)

	// 127.0.0.2 has nothing listening on the test port on Linux.
	hosts := Scan(context.Background(), []string{"127.0.0.1", "127.0.0.2"}, port, "tok")
	if len(hosts) != 1 {
		t.Fatalf("Expected 1 host, got %#v", hosts)
	}
	if !hosts[0].Backends["evdev"] || !hosts[0].Readonly {
		t.Errorf("Expected status details, got %#v", hosts[0])
	}

	anon := Scan(context.Background(), []string{"127.0.0.1"}, port, "")
	if len(anon) != 1 || len(anon[0].Backends) != 0 {
		t.Errorf("Expected host found without status details, got %#v", anon)
	}
}

func TestSubnetCandidates(t *testing.T) {
	got := subnetCandidates([]string{"192.168.1.10"})
	if len(got) != 253 {
		t.Fatalf("Expected 253 candidates, got %d", len(got))
	}
	for _, ip := range got {
		if ip == "192.168.1.10" {
			t.Error("Expected the local address skipped")
		}
	}
	if got[0] != "192.168.1.1" || got[len(got)-1] != "192.168.1.254" {
		t.Errorf("Unexpected range %s..%s", got[0], got[len(got)-1])
	}
}
