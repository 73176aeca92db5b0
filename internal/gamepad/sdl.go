//go:build sdl

package gamepad

import (
	"fmt"

	"inputoverlay/internal/input"
	"inputoverlay/internal/normalize"

	"github.com/veandco/go-sdl2/sdl"
)

type sdlDriver struct {
	pad *sdl.GameController
}

func newDriver() Driver {
	return &sdlDriver{}
}

func (d *sdlDriver) Open() error {
	if err := sdl.Init(sdl.INIT_GAMECONTROLLER); err != nil {
		return fmt.Errorf("sdl: %v: %w", err, input.ErrBackendUnavailable)
	}
	return nil
}

func (d *sdlDriver) Poll() normalize.PadReading {
	sdl.GameControllerUpdate()

	if d.pad != nil && !d.pad.Attached() {
		d.pad.Close()
		d.pad = nil
	}
	if d.pad == nil {
		for i := 0; i < sdl.NumJoysticks(); i++ {
			if sdl.IsGameController(i) {
				d.pad = sdl.GameControllerOpen(i)
				break
			}
		}
	}
	if d.pad == nil {
		return normalize.PadReading{}
	}

	pad := d.pad
	button := func(b sdl.GameControllerButton) bool { return pad.Button(b) == 1 }

	return normalize.PadReading{
		Connected:     true,
		LeftX:         scaleStick(pad.Axis(sdl.CONTROLLER_AXIS_LEFTX)),
		LeftY:         scaleStick(pad.Axis(sdl.CONTROLLER_AXIS_LEFTY)),
		RightX:        scaleStick(pad.Axis(sdl.CONTROLLER_AXIS_RIGHTX)),
		RightY:        scaleStick(pad.Axis(sdl.CONTROLLER_AXIS_RIGHTY)),
		LeftTrigger:   scaleTrigger(pad.Axis(sdl.CONTROLLER_AXIS_TRIGGERLEFT)),
		RightTrigger:  scaleTrigger(pad.Axis(sdl.CONTROLLER_AXIS_TRIGGERRIGHT)),
		A:             button(sdl.CONTROLLER_BUTTON_A),
		B:             button(sdl.CONTROLLER_BUTTON_B),
		X:             button(sdl.CONTROLLER_BUTTON_X),
		Y:             button(sdl.CONTROLLER_BUTTON_Y),
		LeftShoulder:  button(sdl.CONTROLLER_BUTTON_LEFTSHOULDER),
		RightShoulder: button(sdl.CONTROLLER_BUTTON_RIGHTSHOULDER),
		Back:          button(sdl.CONTROLLER_BUTTON_BACK),
		Start:         button(sdl.CONTROLLER_BUTTON_START),
		Guide:         button(sdl.CONTROLLER_BUTTON_GUIDE),
		LeftStick:     button(sdl.CONTROLLER_BUTTON_LEFTSTICK),
		RightStick:    button(sdl.CONTROLLER_BUTTON_RIGHTSTICK),
		DPadUp:        button(sdl.CONTROLLER_BUTTON_DPAD_UP),
		DPadDown:      button(sdl.CONTROLLER_BUTTON_DPAD_DOWN),
		DPadLeft:      button(sdl.CONTROLLER_BUTTON_DPAD_LEFT),
		DPadRight:     button(sdl.CONTROLLER_BUTTON_DPAD_RIGHT),
	}
}

func (d *sdlDriver) Name() string {
	if d.pad == nil {
		return ""
	}
	return d.pad.Name()
}

func (d *sdlDriver) Close() {
	if d.pad != nil {
		d.pad.Close()
		d.pad = nil
	}
	sdl.QuitSubSystem(sdl.INIT_GAMECONTROLLER)
}
