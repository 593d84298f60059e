package pattern

import "libdb.so/strobbie/internal/led"

// AllOff turns every pixel off. It is not time-gated.
type AllOff struct{}

func (AllOff) Name() Name { return AllOffName }

func (AllOff) Render(f *Frame) bool {
	return f.LEDs.Fill(led.Off)
}

// Solid splits the strip into one contiguous group per palette color, in
// palette order. Group sizes differ by at most one pixel: the first N%k groups
// hold one extra pixel. Solid keeps no state and is recomputed every tick.
type Solid struct{}

func (Solid) Name() Name { return SolidName }

func (Solid) Render(f *Frame) bool {
	var changed bool
	n, k := len(f.LEDs), f.Palette.Len()

	for i := 0; i < k; i++ {
		start, end := groupBounds(n, k, i)
		if f.LEDs.SetRange(start, end, f.Palette.At(i)) {
			changed = true
		}
	}

	return changed
}

// groupBounds returns the half-open pixel range of group i when n pixels are
// split into k groups.
func groupBounds(n, k, i int) (start, end int) {
	size, extra := n/k, n%k
	start = i*size + min(i, extra)
	end = start + size
	if i < extra {
		end++
	}
	return start, end
}

// Placeholder is a reserved pattern name without behavior. Selecting it
// leaves the strip as it is.
type Placeholder Name

func (p Placeholder) Name() Name { return Name(p) }

func (Placeholder) Render(*Frame) bool { return false }
