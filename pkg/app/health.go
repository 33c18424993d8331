package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself and the age of the consumer loop heartbeat.
// output example:
//
//	{"NumGoroutines":11,"HeapAllocatedBytes":332256360,"HeapAllocatedMB":316,"SysMemoryBytes":360290312,
//	 "SysMemoryMB":343,"Version":"1.0.10+20221001","ProgLang":"go1.16.15","HeartbeatAge":"1.2ms","Stalled":false}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		hab := m.Alloc
		smb := m.Sys
		age, stalled := app.heartbeatAge()

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocatedMB    uint64
			SysMemoryBytes     uint64
			SysMemoryMB        uint64
			Version            string
			ProgLang           string
			HostName           string
			Time               string
			HeartbeatAge       string
			Stalled            bool
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: hab,
			HeapAllocatedMB:    bToMb(hab),
			SysMemoryBytes:     smb,
			SysMemoryMB:        bToMb(smb),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Time:               time.Now().Format(time.RFC3339),
			HeartbeatAge:       age.String(),
			Stalled:            stalled,
		}

		if stalled {
			debug.ErrorLog.Printf("consumer loop stalled, last heartbeat %v ago", age)
			ctx.Status(http.StatusServiceUnavailable)
			return ctx.JSON(healthData)
		}

		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
