package app

import (
	"net/url"
	"sync"

	"cecri/pkg/app/config"
	"cecri/pkg/bridge"
	"cecri/pkg/cec"
	"cecri/pkg/led"
	"cecri/pkg/mqtt"
	"cecri/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// gpio is the handler to the rpi gpio memory, it drives the cec line
	gpio *raspberry.GPIO
	// chip is the gpio character device of the ri and led lines
	chip *raspberry.Chip
	// outputs are the requested lines of chip
	outputs []*raspberry.Output

	// engine is the cec bus engine
	engine *cec.Engine
	// bridge answers the received cec frames and controls the receiver
	bridge *bridge.Bridge
	// led is the status indicator, nil if disabled
	led *led.Indicator

	// heartbeat is the unix time in nanoseconds of the last consumer loop iteration (atomic)
	heartbeat int64
	// frames are the last received and sent frames
	frames *frameLog

	// quit stops the consumer loop
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:    fiber.New(),
		mqtt:   mqtt.New(),
		frames: newFrameLog(frameLogSize),
		quit:   make(chan struct{}),
	}, err
}

// Run starts the application.
// The boot delay, the address negotiation and the announcement run in the consumer loop,
// so Run returns at once.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()

	app.wg.Add(1)
	go app.service()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.initHardware(); err != nil {
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, MODULE); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.engine
	// which must be initialized before in initHardware()
	app.initDefaultRoutes()

	return nil
}

// wire builds the cec engine and the bridge on the cec line and starts decoding.
func (app *App) wire(line cec.Line, remote bridge.Remote) error {
	pa, err := cec.ParsePhysicalAddress(app.config.CEC.PhysicalAddress)
	if err != nil {
		debug.ErrorLog.Printf("invalid physical address %q: %v", app.config.CEC.PhysicalAddress, err)
		return err
	}

	app.engine = cec.New(cec.Config{
		Line:       line,
		Lenient:    app.config.CEC.LenientDecode,
		OnReceive:  func() { app.led.Flash(led.CECRx) },
		OnTransmit: func() { app.led.Flash(led.CECTx) },
	})

	app.bridge = bridge.New(transmitter{app}, remote, bridge.Config{
		PhysicalAddress: pa,
		OSDName:         app.config.CEC.OSDName,
		VendorID:        app.config.CEC.VendorID,
	})

	la := cec.LogicalAddress(app.config.CEC.LogicalAddress)
	app.engine.ConfigureOwnAddress(la)
	app.bridge.SetLogicalAddress(la)

	return app.engine.Start()
}

// Close stops the consumer loop and releases the bus and all gpio lines.
func (app *App) Close() error {
	app.closeOnce.Do(app.close)
	return nil
}

func (app *App) close() {
	if app.quit != nil {
		close(app.quit)
		app.wg.Wait()
	}

	if app.web != nil {
		_ = app.web.Shutdown()
	}

	if app.engine != nil {
		_ = app.engine.Close()
	}

	if app.mqtt != nil {
		_ = app.mqtt.Close()
	}

	_ = app.led.Close()

	for _, o := range app.outputs {
		_ = o.Close()
	}

	if app.chip != nil {
		_ = app.chip.Close()
	}

	if app.gpio != nil {
		_ = app.gpio.Close()
	}
}
