package strip

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/strobbie/internal/led"
	"libdb.so/strobbie/ledserial"
)

// SerialConfig configures a Serial strip.
type SerialConfig struct {
	// Device is the path to the serial device, usually /dev/ttyUSB0 or
	// /dev/ttyACM0.
	Device string
	// Baud is the baud rate of the serial connection.
	Baud int
	// NumLEDs is the length of the strip.
	NumLEDs int
	// DataPin is the controller pin the strip is wired to.
	DataPin uint8
	// AckTimeout is how long to wait for the controller to acknowledge a
	// packet.
	AckTimeout time.Duration
}

// Serial is a strip driven by a microcontroller over a serial port using
// the ledserial protocol. Every packet is acknowledged by the controller
// before the next one is sent. A Serial is not safe for concurrent use.
type Serial struct {
	port    io.ReadWriteCloser
	reader  io.Reader
	cfg     SerialConfig
	logger  *slog.Logger
	context ledserial.ReadContext
}

var _ Strip = (*Serial)(nil)

// OpenSerial opens the serial device and initializes the controller.
func OpenSerial(cfg SerialConfig, logger *slog.Logger) (*Serial, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.Baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if err := port.SetReadTimeout(cfg.AckTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to set read timeout")
	}

	s, err := NewSerial(port, cfg, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// NewSerial initializes the controller on the other end of port. Reads from
// port are expected to time out by returning no bytes, which is how serial
// ports configured with a read timeout behave.
func NewSerial(port io.ReadWriteCloser, cfg SerialConfig, logger *slog.Logger) (*Serial, error) {
	if cfg.NumLEDs < 1 || cfg.NumLEDs > 0xFFFF {
		return nil, errors.Errorf("invalid number of LEDs: %d", cfg.NumLEDs)
	}

	s := &Serial{
		port:    port,
		reader:  timeoutReader{port},
		cfg:     cfg,
		logger:  logger,
		context: ledserial.ReadContext{NumLEDs: uint16(cfg.NumLEDs)},
	}

	logger.Debug(
		"initializing controller",
		"num_leds", cfg.NumLEDs,
		"data_pin", cfg.DataPin)

	if err := s.send(ledserial.InitializePacket{
		NumLEDs: uint16(cfg.NumLEDs),
		DataPin: cfg.DataPin,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize controller")
	}

	return s, nil
}

// Show implements Strip.
func (s *Serial) Show(leds led.LEDs) error {
	if len(leds) != s.cfg.NumLEDs {
		return errors.Errorf("frame has %d LEDs, strip has %d", len(leds), s.cfg.NumLEDs)
	}
	return s.send(ledserial.SetPacket{Pix: leds.AsPixels()})
}

// Clear implements Strip.
func (s *Serial) Clear() error {
	return s.send(ledserial.ClearPacket{})
}

// Close implements Strip.
func (s *Serial) Close() error {
	return s.port.Close()
}

// send writes the packet and waits for the controller to acknowledge it.
func (s *Serial) send(p ledserial.IncomingPacket) error {
	if err := ledserial.WriteIncomingPacket(s.port, p); err != nil {
		return err
	}
	return s.waitAck(p.Type())
}

func (s *Serial) waitAck(ptype ledserial.IncomingPacketType) error {
	deadline := time.Now().Add(s.cfg.AckTimeout)

	for {
		p, err := ledserial.ReadOutgoingPacket(s.reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.resetInput()
				return errors.Wrapf(ErrNoAck, "%s packet", ptype)
			}
			s.resetInput()
			return errors.Wrap(err, "failed to read packet")
		}

		switch p := p.(type) {
		case ledserial.AckPacket:
			if p.IncomingPacketType == ptype {
				return nil
			}
			s.logger.Debug(
				"ignoring stale ack from controller",
				"acked_for", p.IncomingPacketType,
				"want", ptype)

		case ledserial.LogPacket:
			s.logger.Info(
				"received log packet from controller",
				"message", p.Message)

		case ledserial.ErrorPacket:
			return errors.Errorf("controller reported error: %s", p.Message)

		case ledserial.PanicPacket:
			return errors.New("controller panicked")

		default:
			return errors.Errorf("received unknown packet from controller: %s", p.Type())
		}

		if s.cfg.AckTimeout > 0 && time.Now().After(deadline) {
			return errors.Wrapf(ErrNoAck, "%s packet", ptype)
		}
	}
}

// resetInput drops whatever is left of a partially read packet so the next
// read starts on a packet boundary.
func (s *Serial) resetInput() {
	if r, ok := s.port.(interface{ ResetInputBuffer() error }); ok {
		if err := r.ResetInputBuffer(); err != nil {
			s.logger.Debug("failed to reset input buffer", "err", err)
		}
	}
}

// timeoutReader turns the empty read of a timed out serial port into
// io.EOF, so io.ReadFull does not spin on it.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(b []byte) (int, error) {
	n, err := t.r.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, io.EOF
	}
	return n, err
}
