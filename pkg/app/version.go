package app

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// VERSION is MAJOR.YEAR-2022.MONTH+DATE of the first day of the release month,
// e.g. 1.0.10+20221001 is the October 2022 release of version 1.
// MODULE names the binary, the config file and the mqtt client id.
const (
	VERSION = "1.0.10+20221001"
	MODULE  = "cecri"
)

// HandleVersion returns the version and the own identity on the cec bus.
func (app *App) HandleVersion() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request version")

		return ctx.JSON(fiber.Map{
			"version":     VERSION,
			"description": MODULE,
			"about":       Version(),
			"osdName":     app.config.CEC.OSDName,
			"physical":    app.config.CEC.PhysicalAddress,
		})
	}
}

// Version returns module and release without the build date, e.g. "cecri V1.0.10".
func Version() string {
	return strings.TrimSpace(MODULE + " V" + strings.Split(VERSION, "+")[0])
}
