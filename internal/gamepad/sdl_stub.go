//go:build !sdl

package gamepad

import (
	"fmt"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"
)

type stubDriver struct{}

func newDriver() Driver { return stubDriver{} }

func (stubDriver) Open() error {
	return fmt.Errorf("native gamepad support not compiled in (build with -tags sdl): %w", input.ErrBackendUnavailable)
}

func (stubDriver) Poll() normalize.PadReading { return normalize.PadReading{} }
func (stubDriver) Name() string               { return "" }
func (stubDriver) Close()                     {}
