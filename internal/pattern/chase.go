package pattern

// OneDirectionChase moves a single lit pixel from the start of the strip to
// the end, one position per update. After the last pixel it starts over with
// the next palette color.
type OneDirectionChase struct {
	gate  Gate
	head  int
	color int
}

func (p *OneDirectionChase) Name() Name { return OneDirectionChaseName }

func (p *OneDirectionChase) Render(f *Frame) bool {
	n := len(f.LEDs)
	if n == 0 || !p.gate.Allow(f.Now, f.Delay) {
		return false
	}
	if p.head >= n {
		p.head = 0
	}

	f.LEDs.Clear()
	f.LEDs.Set(p.head, f.Palette.At(p.color))

	p.head++
	if p.head >= n {
		p.head = 0
		p.color = f.Palette.Next(p.color)
	}
	return true
}

func (p *OneDirectionChase) Reset() {
	*p = OneDirectionChase{}
}

// BackAndForthChase moves a single lit pixel along the strip and bounces it
// off both ends. The color advances on every bounce.
type BackAndForthChase struct {
	gate    Gate
	head    int
	color   int
	reverse bool
}

func (p *BackAndForthChase) Name() Name { return BackAndForthChaseName }

func (p *BackAndForthChase) Render(f *Frame) bool {
	n := len(f.LEDs)
	if n == 0 || !p.gate.Allow(f.Now, f.Delay) {
		return false
	}
	if p.head < 0 || p.head >= n {
		p.head = 0
		p.reverse = false
	}

	f.LEDs.Clear()
	f.LEDs.Set(p.head, f.Palette.At(p.color))

	switch {
	case n == 1:
		p.color = f.Palette.Next(p.color)
	case !p.reverse:
		p.head++
		if p.head == n {
			p.head = n - 2
			p.reverse = true
			p.color = f.Palette.Next(p.color)
		}
	default:
		p.head--
		if p.head < 0 {
			p.head = 1
			p.reverse = false
			p.color = f.Palette.Next(p.color)
		}
	}
	return true
}

func (p *BackAndForthChase) Reset() {
	*p = BackAndForthChase{}
}

// InwardChevronChase moves two lit pixels from both ends of the strip toward
// the middle. Once they meet (odd length) or reach the two middle pixels (even
// length) both start over at the ends with the next palette color. On an even
// strip the step where the heads would cross is skipped, since it lights the
// same two middle pixels again.
type InwardChevronChase struct {
	gate  Gate
	step  int
	color int
}

func (p *InwardChevronChase) Name() Name { return InwardChevronChaseName }

func (p *InwardChevronChase) Render(f *Frame) bool {
	n := len(f.LEDs)
	if n == 0 || !p.gate.Allow(f.Now, f.Delay) {
		return false
	}

	last := (n - 1) / 2
	if p.step > last {
		p.step = 0
	}

	c := f.Palette.At(p.color)
	f.LEDs.Clear()
	f.LEDs.Set(p.step, c)
	f.LEDs.Set(n-1-p.step, c)

	p.step++
	if p.step > last {
		p.step = 0
		p.color = f.Palette.Next(p.color)
	}
	return true
}

func (p *InwardChevronChase) Reset() {
	*p = InwardChevronChase{}
}
