// Package pattern implements the LED pattern engine: a closed set of stateful,
// non-blocking patterns rendering into a shared frame buffer, and the Engine
// that dispatches to the active one on every control loop tick.
package pattern

import (
	"libdb.so/strobbie/internal/led"
)

// Name identifies a pattern. The values are persisted in the settings file
// and submitted by the web form, so they must never change.
type Name string

const (
	AllOffName              Name = "allOff"
	FlashingName            Name = "flashingColors"
	RotatingColorFadeName   Name = "rotatingColorFade"
	SolidName               Name = "solidColors"
	OneDirectionChaseName   Name = "oneDirectionChase"
	BackAndForthChaseName   Name = "backAndForthChase"
	TrainChaseName          Name = "trainChase"
	InwardChevronChaseName  Name = "inwardChevronChase"
	OutwardChevronChaseName Name = "outwardChevronChase"
)

// Frame is what a pattern renders into. It is owned by the Engine and only
// valid for the duration of a Render call.
type Frame struct {
	// LEDs is the frame buffer. Its length never changes.
	LEDs led.LEDs
	// Palette holds the configured colors.
	Palette led.Palette
	// Delay is the minimum number of milliseconds between two visible
	// updates of a time-gated pattern.
	Delay uint32
	// Now is the current clock reading in milliseconds.
	Now uint32
}

// Pattern is a named rendering behavior. Render is called once per control
// loop tick while the pattern is active; it must return promptly and report
// whether the frame buffer changed and needs flushing.
type Pattern interface {
	Name() Name
	Render(f *Frame) bool
}

// Resetter is implemented by patterns whose animation state can be rewound
// to its starting point.
type Resetter interface {
	Reset()
}

// Repertoire returns a fresh instance of every pattern, in the order they are
// offered to users.
func Repertoire() []Pattern {
	return []Pattern{
		&AllOff{},
		&Solid{},
		&Flashing{},
		&OneDirectionChase{},
		&BackAndForthChase{},
		&InwardChevronChase{},
		Placeholder(RotatingColorFadeName),
		Placeholder(TrainChaseName),
		Placeholder(OutwardChevronChaseName),
	}
}
