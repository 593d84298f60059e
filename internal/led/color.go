package led

import (
	"encoding"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Color is a single RGB pixel value. Colors compare equal only when every
// channel matches.
type Color [3]uint8

// Off is the idle color of a pixel.
var Off = Color{}

var (
	_ encoding.TextMarshaler   = Color{}
	_ encoding.TextUnmarshaler = (*Color)(nil)
)

// RGB creates a color from its channels.
func RGB(r, g, b uint8) Color { return Color{r, g, b} }

// IsOff returns true if the color is black.
func (c Color) IsOff() bool { return c == Off }

// Hex returns the color as six lower-case hex digits without a leading '#'.
func (c Color) Hex() string {
	return colorful.Color{
		R: float64(c[0]) / 255,
		G: float64(c[1]) / 255,
		B: float64(c[2]) / 255,
	}.Hex()[1:]
}

func (c Color) String() string { return "#" + c.Hex() }

// ParseHex parses a color written as six hex digits. A leading '#' is
// optional and the digits are case-insensitive.
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 || strings.IndexFunc(s, notHexDigit) >= 0 {
		return Off, errors.Errorf("invalid color %q: want 6 hex digits", s)
	}

	c, err := colorful.Hex("#" + strings.ToLower(s))
	if err != nil {
		return Off, errors.Wrapf(err, "invalid color %q", s)
	}

	r, g, b := c.RGB255()
	return Color{r, g, b}, nil
}

func notHexDigit(r rune) bool {
	switch {
	case '0' <= r && r <= '9', 'a' <= r && r <= 'f', 'A' <= r && r <= 'F':
		return false
	default:
		return true
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
