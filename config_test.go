package strobbie

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
driver = "serial"
device = "/dev/ttyACM0"
ack_timeout = "250ms"
num_leds = 60
data_pin = 4
reset_on_activate = true
metrics = ":9100"
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SerialDriver, cfg.Driver)
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.AckTimeout))
	assert.Equal(t, 60, cfg.NumLEDs)
	assert.Equal(t, uint8(4), cfg.DataPin)
	assert.True(t, cfg.ResetOnActivate)
	assert.Equal(t, ":9100", cfg.Metrics)

	// Defaults.
	assert.Equal(t, DefaultBaud, cfg.Baud)
	assert.Equal(t, DefaultTick, time.Duration(cfg.Tick))
	assert.Equal(t, DefaultServiceEvery, cfg.ServiceEvery)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultSettings, cfg.Settings)
}

func TestParseConfig_SPI(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
driver = "spi"
spi_port = "/dev/spidev0.0"
spi_freq_khz = 800
num_leds = 150
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 800*physic.KiloHertz, cfg.SPIFreq())
}

func TestParseConfig_BadDuration(t *testing.T) {
	_, err := ParseConfig(strings.NewReader(`tick = "soon"`))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{Driver: SerialDriver, Device: "/dev/ttyUSB0", NumLEDs: 11}
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Driver = "dmx" }},
		{"no device", func(c *Config) { c.Device = "" }},
		{"no LEDs", func(c *Config) { c.NumLEDs = 0 }},
		{"too many LEDs for serial", func(c *Config) { c.NumLEDs = 0x10000 }},
		{"zero service interval", func(c *Config) { c.ServiceEvery = -1 }},
		{"negative tick", func(c *Config) { c.Tick = -1 }},
		{"no listen address", func(c *Config) { c.Listen = "" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
