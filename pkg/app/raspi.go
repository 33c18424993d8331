package app

import (
	"cecri/pkg/led"
	"cecri/pkg/raspberry"
	"cecri/pkg/ri"

	"github.com/womat/debug"
)

// initHardware opens the cec line on the gpio memory and the ri and led lines on the gpio chip.
func (app *App) initHardware() (err error) {
	if app.gpio, err = raspberry.OpenGPIO(); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	pin, err := app.gpio.NewOpenDrainPin(app.config.CEC.Gpio)
	if err != nil {
		debug.ErrorLog.Printf("can't open cec pin %v: %v", app.config.CEC.Gpio, err)
		return err
	}

	if app.chip, err = raspberry.Open(app.config.GpioChip); err != nil {
		debug.ErrorLog.Printf("can't open gpio chip %q: %v", app.config.GpioChip, err)
		return err
	}

	if err = app.initLED(); err != nil {
		return err
	}

	riLine, err := app.output(app.config.RI.Gpio, false)
	if err != nil {
		return err
	}

	remote, err := ri.NewSender(riLine, func() { app.led.Flash(led.RITx) })
	if err != nil {
		debug.ErrorLog.Printf("can't init ri line: %v", err)
		return err
	}

	return app.wire(pin, remote)
}

// initLED requests the (active low) led lines, the indicator is disabled if one of the pins is 0.
func (app *App) initLED() error {
	c := app.config.LED
	if c.RX == 0 || c.TX == 0 || c.RI == 0 {
		debug.InfoLog.Print("status leds are disabled")
		return nil
	}

	var lines [3]led.Line
	for i, p := range []int{c.RX, c.TX, c.RI} {
		o, err := app.output(p, true)
		if err != nil {
			return err
		}
		lines[i] = o
	}

	app.led = led.New(lines[0], lines[1], lines[2])
	return nil
}

// output requests an output line on the gpio chip, it's released by Close.
func (app *App) output(offset int, high bool) (*raspberry.Output, error) {
	o, err := app.chip.NewOutput(offset, high)
	if err != nil {
		debug.ErrorLog.Printf("can't open output line %v: %v", offset, err)
		return nil, err
	}

	app.outputs = append(app.outputs, o)
	return o, nil
}
