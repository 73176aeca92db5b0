// Package devtools runs the runtime stats viewer opened by -with-dev-console.
package devtools

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/kataras/golog"
)

// DefaultAddress is where the stats viewer listens.
const DefaultAddress = "localhost:18190"

const path = "/debug/statsview"

// Console serves goroutine, heap and GC charts for the running process.
type Console struct {
	addr   string
	mu     sync.Mutex
	mgr    *statsview.ViewManager
	logger *golog.Logger
}

// New creates a console bound to addr; an empty addr uses DefaultAddress.
func New(addr string) *Console {
	if addr == "" {
		addr = DefaultAddress
	}
	return &Console{addr: addr, logger: golog.Child("[devtools]")}
}

// URL returns the page to open in a browser.
func (c *Console) URL() string {
	return "http://" + c.addr + path
}

// Launch starts the viewer in its own goroutine. Calling it twice is a no-op.
func (c *Console) Launch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mgr != nil {
		return
	}

	viewer.SetConfiguration(viewer.WithAddr(c.addr))
	mgr := statsview.New()
	c.mgr = mgr

	go func() {
		if err := mgr.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Warnf("stats viewer stopped: %v", err)
		}
	}()
	c.logger.Infof("stats server available at %s", c.URL())
}

// Stop shuts the viewer down if it was launched.
func (c *Console) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mgr == nil {
		return
	}
	c.mgr.Stop()
	c.mgr = nil
}
