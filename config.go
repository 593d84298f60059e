package strobbie

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Driver selects how frames reach the strip.
type Driver string

const (
	// SerialDriver drives the strip through a microcontroller speaking the
	// ledserial protocol.
	SerialDriver Driver = "serial"
	// SPIDriver drives the strip directly from the host's SPI bus.
	SPIDriver Driver = "spi"
	// NoDriver only feeds the web preview.
	NoDriver Driver = "none"
)

// Config is the configuration for the Strobbie daemon.
type Config struct {
	// Driver is the strip driver to use.
	Driver Driver `toml:"driver"`

	// Device is the path to the device file for the serial driver.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// AckTimeout is how long the controller has to acknowledge a packet.
	AckTimeout TOMLDuration `toml:"ack_timeout"`

	// SPIPort is the SPI port name for the spi driver. Empty selects the
	// first port.
	SPIPort string `toml:"spi_port"`
	// SPIFreqKHz is the NRZ data rate in kHz for the spi driver.
	SPIFreqKHz int `toml:"spi_freq_khz"`

	// NumLEDs is the number of LEDs in the strip.
	NumLEDs int `toml:"num_leds"`
	// DataPin is the controller pin the strip data line is wired to.
	DataPin uint8 `toml:"data_pin"`

	// Tick is the period of the control loop.
	Tick TOMLDuration `toml:"tick"`
	// ServiceEvery is the number of ticks between two servicings of the web
	// requests.
	ServiceEvery int `toml:"service_every"`
	// ResetOnActivate rewinds a pattern whenever it is selected again
	// instead of resuming it.
	ResetOnActivate bool `toml:"reset_on_activate"`

	// Listen is the address of the web interface.
	Listen string `toml:"listen"`
	// Metrics is the address of the Prometheus endpoint. Empty disables it.
	Metrics string `toml:"metrics"`
	// Settings is the path of the persisted pattern settings.
	Settings string `toml:"settings"`
}

// Defaults for fields left unset.
const (
	DefaultDriver       = SerialDriver
	DefaultBaud         = 115200
	DefaultAckTimeout   = time.Second
	DefaultTick         = time.Millisecond
	DefaultServiceEvery = 70
	DefaultListen       = ":8080"
	DefaultSettings     = "strobbie-settings.toml"
)

// SetDefaults fills in every unset field that has a default.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DefaultDriver
	}
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = TOMLDuration(DefaultAckTimeout)
	}
	if c.Tick == 0 {
		c.Tick = TOMLDuration(DefaultTick)
	}
	if c.ServiceEvery == 0 {
		c.ServiceEvery = DefaultServiceEvery
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Settings == "" {
		c.Settings = DefaultSettings
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case SerialDriver:
		if c.Device == "" {
			return errors.New("no serial device configured")
		}
		if c.Baud <= 0 {
			return fmt.Errorf("invalid baud rate %d", c.Baud)
		}
		if c.AckTimeout <= 0 {
			return fmt.Errorf("invalid ack timeout %s", time.Duration(c.AckTimeout))
		}
		if c.NumLEDs > 0xFFFF {
			return fmt.Errorf("serial driver supports at most %d LEDs", 0xFFFF)
		}
	case SPIDriver:
		if c.SPIFreqKHz < 0 {
			return fmt.Errorf("invalid SPI frequency %dkHz", c.SPIFreqKHz)
		}
	case NoDriver:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}

	if c.NumLEDs < 1 {
		return errors.New("no LEDs configured")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("invalid tick %s", time.Duration(c.Tick))
	}
	if c.ServiceEvery < 1 {
		return fmt.Errorf("invalid service_every %d", c.ServiceEvery)
	}
	if c.Listen == "" {
		return errors.New("no listen address configured")
	}
	if c.Settings == "" {
		return errors.New("no settings path configured")
	}

	return nil
}

// SPIFreq returns the configured SPI data rate, or zero for the default.
func (c *Config) SPIFreq() physic.Frequency {
	return physic.Frequency(c.SPIFreqKHz) * physic.KiloHertz
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Fields missing from the
// file are set to their defaults.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	config.SetDefaults()
	return &config, nil
}
