package app

import (
	"net/http"

	"cecri/pkg/bridge"
	"cecri/pkg/cec"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

type resp struct {
	LogicalAddress cec.LogicalAddress // own logical address, 15 if unregistered
	AckEnabled     bool               // frames to the own address are acknowledged
	State          bridge.State       // device state of the audio system
	Stats          cec.Stats          // rx and tx counters of the cec engine
	Frames         []FrameRecord      // last received and sent frames, oldest first
}

// runWebServer starts the applications web server and listens for web requests.
//
//	It's designed to run in a separate go function to not block the main go function.
//	e.g.: go runWebServer()
//	See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData returns the device state, the engine counters and the last frames.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		return ctx.JSON(resp{
			LogicalAddress: app.engine.LogicalAddress(),
			AckEnabled:     app.engine.AckEnabled(),
			State:          app.bridge.State(),
			Stats:          app.engine.Stats(),
			Frames:         app.frames.last(),
		})
	}
}

// HandleSend transmits the frame of the request body, e.g. "50:8F" or "508F".
//
//	400 ... the body isn't a valid frame
//	502 ... the frame wasn't acknowledged or the bus was busy
func (app *App) HandleSend() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request send")

		f, err := cec.ParseFrame(string(ctx.Body()))
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return ctx.JSON(fiber.Map{"error": err.Error()})
		}

		if err = app.send(f); err != nil {
			debug.ErrorLog.Printf("web send %v: %v", f, err)
			ctx.Status(http.StatusBadGateway)
			return ctx.JSON(fiber.Map{"frame": f.String(), "error": err.Error()})
		}

		return ctx.JSON(fiber.Map{"frame": f.String()})
	}
}
