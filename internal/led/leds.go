package led

import "unsafe"

// LEDs describes a strip of LEDs. It is a preallocated slice of Color whose
// length never changes after NewLEDs.
type LEDs []Color

// NewLEDs creates a new strip of LEDs. Colors are initialized to black
// (off).
func NewLEDs(numLEDs int) LEDs {
	return make(LEDs, numLEDs)
}

// AsPixels returns the LED strip as a slice of uint8 values. Each LED is
// represented by three values, one for each color channel. The returned slice
// aliases the strip.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// Set sets the color of the LED at the given index. Indices outside the strip
// are ignored.
func (l LEDs) Set(i int, c Color) {
	if i >= 0 && i < len(l) {
		l[i] = c
	}
}

// SetRange sets the color of the LEDs in the half-open range [start, end),
// clamped to the strip. It returns true if any LED changed.
func (l LEDs) SetRange(start, end int, c Color) bool {
	var changed bool
	for i := max(start, 0); i < min(end, len(l)); i++ {
		if l[i] != c {
			l[i] = c
			changed = true
		}
	}
	return changed
}

// Fill sets every LED to the given color. It returns true if any LED changed.
func (l LEDs) Fill(c Color) bool {
	return l.SetRange(0, len(l), c)
}

// Clear turns every LED off.
func (l LEDs) Clear() { l.Fill(Off) }

// Clone returns a copy of the strip that does not alias l.
func (l LEDs) Clone() LEDs {
	return append(LEDs(nil), l...)
}

// Hex returns the strip as concatenated six-digit hex colors.
func (l LEDs) Hex() string {
	buf := make([]byte, 0, 6*len(l))
	for _, c := range l {
		buf = append(buf, c.Hex()...)
	}
	return string(buf)
}
