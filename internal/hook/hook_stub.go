//go:build !hook

package hook

import (
	"fmt"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"
)

type stubSource struct{}

func newSource() source { return stubSource{} }

func (stubSource) start() (<-chan normalize.HookEvent, error) {
	return nil, fmt.Errorf("global hook not compiled in (build with -tags hook): %w", input.ErrBackendUnavailable)
}

func (stubSource) stop() {}
