package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"cecri/pkg/app"
	"cecri/pkg/app/config"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "HDMI-CEC audio system that switches an Onkyo receiver over the RI jack",
		Version: app.VERSION,
		Description: "Joins the HDMI-CEC bus as audio system (logical address 5) and answers the TV." +
			"\n Power, volume and mute requests of the TV are forwarded as RI commands to the receiver." +
			"\n Received frames and the device state are published to mqtt and the web services.",
		UsageText: "cecri [--config <file>] [--log standard|debug|trace]" +
			"\n\nEXAMPLE:" +
			"\n\tjoin the bus with cec gpio, ri gpio and logical address of cecri.yaml and log every frame" +
			"\n\t\tcecri --config /opt/womat/config/cecri.yaml --log debug",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "read gpio lines, bus identity and services from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` replaces debug.flag of the config file: standard, debug (frames) or trace (bus symbols)"},
		},
		Action: func(*cli.Context) error {
			return run(cfg)
		},
	}

	sort.Sort(cli.FlagsByName(cliApp.Flags))

	if err := cliApp.Run(os.Args); err != nil {
		debug.FatalLog.Print(err)
		return
	}

	exitCode = 0
}

// run starts the bridge and blocks until SIGINT or SIGTERM.
// The cec line is released and all gpio lines are closed before run returns.
func run(cfg *config.Config) error {
	if err := cfg.LoadConfig(); err != nil {
		return err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	defer func() { _ = cfg.Debug.File.Close() }()

	a, err := app.New(cfg)
	defer func() {
		debug.InfoLog.Printf("releasing cec bus, stopping %s", app.Version())
		_ = a.Close()
	}()
	if err != nil {
		return err
	}

	debug.InfoLog.Printf("starting %s on cec gpio %d, ri gpio %d", app.Version(), cfg.CEC.Gpio, cfg.RI.Gpio)
	if err = a.Run(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	debug.InfoLog.Printf("got %s signal", <-sig)
	return nil
}
