package pattern

import "libdb.so/strobbie/internal/led"

// Flashing sets all pixels to the same color and changes it every delay
// milliseconds. A single configured color alternates with off; several
// colors are cycled through in palette order.
type Flashing struct {
	gate Gate
	last led.Color
}

func (p *Flashing) Name() Name { return FlashingName }

func (p *Flashing) Render(f *Frame) bool {
	if !p.gate.Allow(f.Now, f.Delay) {
		return false
	}

	next := p.next(f.Palette)
	f.LEDs.Fill(next)
	p.last = next
	return true
}

func (p *Flashing) next(palette led.Palette) led.Color {
	if palette.Len() == 1 {
		if p.last == palette.At(0) {
			return led.Off
		}
		return palette.At(0)
	}

	// The palette may have been edited since the last update, in which case
	// the last color is gone and we start over.
	i := palette.Index(p.last)
	if i < 0 {
		return palette.At(0)
	}
	return palette.At(palette.Next(i))
}

func (p *Flashing) Reset() {
	*p = Flashing{}
}
