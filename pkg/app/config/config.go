package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config holds the application configuration. Attention!
// Each of the struct fields must be in the format first letter uppercase ->
// followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	GpioChip  string          `yaml:"gpiochip"`
	CEC       CECConfig       `yaml:"cec"`
	RI        RIConfig        `yaml:"ri"`
	LED       LEDConfig       `yaml:"led"`
	Flag      FlagConfig      `yaml:"-"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// CECConfig defines the CEC bus line and the identity of the bridge on the bus.
type CECConfig struct {
	Gpio            int           `yaml:"gpio"`
	LogicalAddress  int           `yaml:"logicaladdress"`
	PhysicalAddress string        `yaml:"physicaladdress"`
	OSDName         string        `yaml:"osdname"`
	VendorID        uint32        `yaml:"vendorid"`
	BootDelayInt    int           `yaml:"bootdelay"`
	BootDelay       time.Duration `yaml:"-"`
	LenientDecode   bool          `yaml:"lenientdecode"`
}

// RIConfig defines the line offset of the RI jack.
type RIConfig struct {
	Gpio int `yaml:"gpio"`
}

// LEDConfig defines the line offsets of the indicator LEDs, 0 disables the indicator.
type LEDConfig struct {
	RX int `yaml:"rx"`
	TX int `yaml:"tx"`
	RI int `yaml:"ri"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		GpioChip: "gpiochip0",
		CEC: CECConfig{
			Gpio:            6,
			LogicalAddress:  5,
			PhysicalAddress: "0.0.0.0",
			OSDName:         "OnkyoRI-Bridge",
			BootDelayInt:    5,
		},
		RI: RIConfig{Gpio: 8},
		LED: LEDConfig{
			RX: 17,
			TX: 16,
			RI: 25,
		},
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"send":    false,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "cecri",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	if c.CEC.LogicalAddress < 0 || c.CEC.LogicalAddress > 0xF {
		return fmt.Errorf("invalid logical address %d", c.CEC.LogicalAddress)
	}

	c.CEC.BootDelay = time.Duration(c.CEC.BootDelayInt) * time.Second
	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	default:
		return fmt.Errorf("invalid log level %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
