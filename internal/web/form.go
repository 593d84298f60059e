package web

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"libdb.so/strobbie/internal/led"
	"libdb.so/strobbie/internal/pattern"
)

// Form field names.
const (
	fieldDo          = "do"
	fieldAction      = "action"
	fieldDelay       = "changeDelay"
	fieldColorPrefix = "selectColor"
)

// Form verbs.
const (
	doAdd    = "add"
	doRemove = "remove"
	doUpdate = "update"
)

// draft is the configuration being edited on the page. It only reaches the
// engine when the form is submitted with the update verb.
type draft struct {
	Action pattern.Name
	Delay  uint32
	Colors []led.Color
}

func draftFromState(s pattern.State) draft {
	return draft{
		Action: s.Action,
		Delay:  s.Delay,
		Colors: s.Palette.Colors(),
	}
}

// State converts the draft to an engine configuration.
func (d draft) State() (pattern.State, error) {
	palette, err := led.NewPalette(d.Colors...)
	if err != nil {
		return pattern.State{}, err
	}
	return pattern.State{
		Action:  d.Action,
		Delay:   d.Delay,
		Palette: palette,
	}, nil
}

// add appends a black color unless the palette is full.
func (d *draft) add() {
	if len(d.Colors) < led.MaxColors {
		d.Colors = append(d.Colors, led.Off)
	}
}

// remove drops color i. The first color can never be removed and indices
// outside the draft are ignored.
func (d *draft) remove(i int) {
	if i >= 1 && i < len(d.Colors) {
		d.Colors = append(d.Colors[:i], d.Colors[i+1:]...)
	}
}

func colorField(i int) string {
	return fieldColorPrefix + strconv.Itoa(i)
}

// readDraftLenient reads the draft the way the add and remove verbs need it:
// values that do not parse fall back to zero or black, and at most
// led.MaxColors colors are read.
func readDraftLenient(form url.Values) draft {
	d := draft{Action: pattern.Name(form.Get(fieldAction))}

	if delay, err := parseDelay(form.Get(fieldDelay)); err == nil {
		d.Delay = delay
	}

	for i := 0; i < led.MaxColors; i++ {
		values, ok := form[colorField(i)]
		if !ok || len(values) == 0 {
			break
		}
		c, err := led.ParseHex(values[0])
		if err != nil {
			c = led.Off
		}
		d.Colors = append(d.Colors, c)
	}

	return d
}

// readDraftStrict reads the draft for the update verb. Every value must
// parse and the number of colors must fit the palette.
func readDraftStrict(form url.Values) (draft, error) {
	d := draft{Action: pattern.Name(form.Get(fieldAction))}
	if d.Action == "" {
		return d, errors.New("no action selected")
	}

	delay, err := parseDelay(form.Get(fieldDelay))
	if err != nil {
		return d, err
	}
	d.Delay = delay

	// Read one field past capacity so oversized submissions are caught.
	for i := 0; i <= led.MaxColors; i++ {
		values, ok := form[colorField(i)]
		if !ok || len(values) == 0 {
			break
		}
		c, err := led.ParseHex(values[0])
		if err != nil {
			return d, errors.Wrapf(err, "invalid color #%d", i)
		}
		d.Colors = append(d.Colors, c)
	}

	if len(d.Colors) < 1 || len(d.Colors) > led.MaxColors {
		return d, errors.Wrapf(led.ErrPaletteSize, "got %d colors", len(d.Colors))
	}

	return d, nil
}

func parseDelay(s string) (uint32, error) {
	delay, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errors.Errorf("invalid delay %q", s)
	}
	return uint32(delay), nil
}

// parseRemove parses the color index out of a "remove:N" verb.
func parseRemove(do string) (int, bool) {
	index, ok := strings.CutPrefix(do, doRemove+":")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return 0, false
	}
	return i, true
}
