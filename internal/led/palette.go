package led

import "github.com/pkg/errors"

// MaxColors is the capacity of a Palette.
const MaxColors = 3

// ErrPaletteSize is returned when a palette would hold fewer than one or more
// than MaxColors colors.
var ErrPaletteSize = errors.New("palette must hold between 1 and 3 colors")

// Palette is a bounded, ordered list of the colors that drive a pattern. A
// valid palette always holds at least one color.
type Palette struct {
	colors [MaxColors]Color
	size   int
}

// NewPalette creates a palette from the given colors.
func NewPalette(colors ...Color) (Palette, error) {
	var p Palette
	if err := p.Set(colors); err != nil {
		return Palette{}, err
	}
	return p, nil
}

// MustPalette is like NewPalette but panics on an invalid color count.
func MustPalette(colors ...Color) Palette {
	p, err := NewPalette(colors...)
	if err != nil {
		panic(err)
	}
	return p
}

// Set replaces the palette contents. The palette is left untouched if the
// number of colors is out of range.
func (p *Palette) Set(colors []Color) error {
	if len(colors) < 1 || len(colors) > MaxColors {
		return errors.Wrapf(ErrPaletteSize, "got %d colors", len(colors))
	}
	p.colors = [MaxColors]Color{}
	p.size = copy(p.colors[:], colors)
	return nil
}

// Len returns the number of active colors. The zero Palette reports 1 so that
// it behaves like a palette holding a single black color.
func (p Palette) Len() int {
	if p.size < 1 {
		return 1
	}
	return p.size
}

// At returns the color at index i modulo the palette size, so callers holding
// an index from before the palette shrank never read past the active colors.
func (p Palette) At(i int) Color {
	if i < 0 {
		i = -i
	}
	return p.colors[i%p.Len()]
}

// Valid returns true if the palette holds between 1 and MaxColors colors.
func (p Palette) Valid() bool {
	return p.size >= 1 && p.size <= MaxColors
}

// Colors returns a copy of the active colors.
func (p Palette) Colors() []Color {
	return append([]Color(nil), p.colors[:p.Len()]...)
}

// Index returns the position of the first active color equal to c, or -1.
func (p Palette) Index(c Color) int {
	for i := 0; i < p.Len(); i++ {
		if p.colors[i] == c {
			return i
		}
	}
	return -1
}

// Next returns the index that follows i, wrapping to 0 after the last color.
func (p Palette) Next(i int) int {
	return (i + 1) % p.Len()
}
