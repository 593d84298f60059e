// Package strip contains the drivers that push a frame buffer to physical
// LED strips.
package strip

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"libdb.so/strobbie/internal/led"
)

// ErrNoAck is returned when the controller does not acknowledge a packet in
// time.
var ErrNoAck = errors.New("no acknowledgement from controller")

// Strip is an LED strip that can display a frame buffer.
type Strip interface {
	// Show displays the given frame. The strip must not retain leds after
	// Show returns.
	Show(leds led.LEDs) error
	// Clear turns every LED off.
	Clear() error
	// Close releases the strip. Closing does not clear it.
	Close() error
}

// Multi is a Strip that mirrors every call onto several strips. Every strip
// is always called; the first error is returned and the others are logged.
type Multi struct {
	strips []Strip
	logger *slog.Logger
}

var _ Strip = (*Multi)(nil)

// NewMulti creates a strip that fans out to the given strips.
func NewMulti(logger *slog.Logger, strips ...Strip) *Multi {
	return &Multi{strips: strips, logger: logger}
}

// Show implements Strip.
func (m *Multi) Show(leds led.LEDs) error {
	return m.each("show", func(s Strip) error { return s.Show(leds) })
}

// Clear implements Strip.
func (m *Multi) Clear() error {
	return m.each("clear", Strip.Clear)
}

// Close implements Strip.
func (m *Multi) Close() error {
	return m.each("close", Strip.Close)
}

func (m *Multi) each(op string, f func(Strip) error) error {
	var first error
	for i, s := range m.strips {
		err := f(s)
		if err == nil {
			continue
		}
		if first == nil {
			first = errors.Wrapf(err, "strip %d", i)
			continue
		}
		m.logger.Warn(
			fmt.Sprintf("failed to %s strip", op),
			"strip", i,
			"err", err)
	}
	return first
}
