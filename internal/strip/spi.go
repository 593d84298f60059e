package strip

import (
	"io"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
	"libdb.so/strobbie/internal/led"
)

// DefaultSPIFreq is the NRZ data rate used when SPIConfig.Freq is zero. It
// suits WS2812B strips.
const DefaultSPIFreq = 800 * physic.KiloHertz

// SPIConfig configures an SPI strip.
type SPIConfig struct {
	// Port is the SPI port name as understood by spireg. Empty selects the
	// first port.
	Port string
	// NumLEDs is the length of the strip.
	NumLEDs int
	// Freq is the NRZ data rate. Zero uses DefaultSPIFreq.
	Freq physic.Frequency
}

// SPI is a WS2812-style strip driven directly from a host SPI bus using NRZ
// encoding.
type SPI struct {
	dev  *nrzled.Dev
	port io.Closer
}

var _ Strip = (*SPI)(nil)

// OpenSPI initializes the host drivers and opens the SPI port.
func OpenSPI(cfg SPIConfig) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize host drivers")
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SPI port")
	}

	s, err := NewSPI(port, cfg)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// NewSPI drives a strip through an already opened SPI port. The strip is
// cleared once initialized.
func NewSPI(port spi.PortCloser, cfg SPIConfig) (*SPI, error) {
	if cfg.NumLEDs < 1 {
		return nil, errors.Errorf("invalid number of LEDs: %d", cfg.NumLEDs)
	}

	opts := nrzled.Opts{
		NumPixels: cfg.NumLEDs,
		Channels:  3,
		Freq:      DefaultSPIFreq,
	}
	if cfg.Freq != 0 {
		opts.Freq = cfg.Freq
	}

	dev, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create nrzled device")
	}

	s := &SPI{dev: dev, port: port}
	if err := s.Clear(); err != nil {
		return nil, err
	}
	return s, nil
}

// Show implements Strip.
func (s *SPI) Show(leds led.LEDs) error {
	if _, err := s.dev.Write(leds.AsPixels()); err != nil {
		return errors.Wrap(err, "failed to write pixels")
	}
	return nil
}

// Clear implements Strip.
func (s *SPI) Clear() error {
	if err := s.dev.Halt(); err != nil {
		return errors.Wrap(err, "failed to halt strip")
	}
	return nil
}

// Close implements Strip.
func (s *SPI) Close() error {
	return s.port.Close()
}
