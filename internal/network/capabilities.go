package network

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"inputoverlay/internal/protocol"

	"github.com/imroc/req/v3"
)

// Capabilities are the host's process-start answers.
type Capabilities struct {
	Readonly    bool
	GlobalInput bool
}

// CapabilityClient queries the host's capability endpoints.
type CapabilityClient struct {
	base  string
	token string
	http  *req.Client
}

// NewCapabilityClient creates a client for the host at hostAddr ("ip:port").
func NewCapabilityClient(hostAddr, token string) *CapabilityClient {
	return newCapabilityClient(hostAddr, token, 2*time.Second)
}

func newCapabilityClient(hostAddr, token string, timeout time.Duration) *CapabilityClient {
	return &CapabilityClient{
		base:  "http://" + hostAddr,
		token: token,
		http:  req.C().SetTimeout(timeout),
	}
}

// Fetch asks for both capabilities. A host that cannot be reached yields an
// error and the caller should treat both as false.
func (c *CapabilityClient) Fetch(ctx context.Context) (Capabilities, error) {
	var ro protocol.ReadonlyResponse
	if err := c.get(ctx, "/api/readonly", &ro); err != nil {
		return Capabilities{}, err
	}
	var gi protocol.GlobalInputResponse
	if err := c.get(ctx, "/api/global-input", &gi); err != nil {
		return Capabilities{}, err
	}
	return Capabilities{Readonly: ro.Readonly, GlobalInput: gi.Available}, nil
}

// Health checks that an overlay host answers at the address. It needs no
// token.
func (c *CapabilityClient) Health(ctx context.Context) error {
	var h protocol.HealthResponse
	if err := c.get(ctx, "/health", &h); err != nil {
		return err
	}
	if h.Status != "ok" {
		return fmt.Errorf("GET /health: status %q", h.Status)
	}
	return nil
}

// Status fetches /api/status.
func (c *CapabilityClient) Status(ctx context.Context) (protocol.StatusResponse, error) {
	var st protocol.StatusResponse
	err := c.get(ctx, "/api/status", &st)
	return st, err
}

func (c *CapabilityClient) get(ctx context.Context, path string, out interface{}) error {
	r := c.http.R().SetContext(ctx)
	if c.token != "" {
		r.SetBearerAuthToken(c.token)
	}
	resp, err := r.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := resp.Unmarshal(out); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}
