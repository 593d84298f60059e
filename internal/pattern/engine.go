package pattern

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"libdb.so/strobbie/internal/led"
)

// ErrUnknownPattern is returned for a pattern name that is not part of the
// repertoire.
var ErrUnknownPattern = errors.New("unknown pattern")

// Flusher pushes a frame buffer to the physical strip.
type Flusher interface {
	Show(led.LEDs) error
}

// State is the engine configuration shared with the web surface and the
// settings store.
type State struct {
	// Action is the name of the active pattern.
	Action Name
	// Delay is the minimum time between two visible updates in milliseconds.
	Delay uint32
	// Palette holds the configured colors.
	Palette led.Palette
}

// Hooks are optional callbacks for observing the engine. Nil hooks are
// skipped.
type Hooks struct {
	// Activated is called when a different pattern becomes active.
	Activated func(Name)
	// Flushed is called after every flush with its result.
	Flushed func(Name, error)
	// Faulted is called when a pattern panics.
	Faulted func(Name)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// NumLEDs is the length of the strip.
	NumLEDs int
	// Flusher receives the frame buffer whenever it changes.
	Flusher Flusher
	// ResetOnActivate rewinds a pattern's animation whenever it becomes
	// active. When false, a pattern resumes where it left off.
	ResetOnActivate bool
	// Patterns overrides the repertoire. It must include All-Off.
	Patterns []Pattern
	Hooks    Hooks
}

// Engine owns the frame buffer and the per-pattern state and renders the
// active pattern once per Tick. An Engine is not safe for concurrent use; it
// belongs to the control loop.
type Engine struct {
	cfg      EngineConfig
	logger   *slog.Logger
	patterns map[Name]Pattern

	frame  Frame
	action Name
	active Pattern
	// forceFlush makes the next Tick flush even if the pattern reports no
	// change, so the strip is resynchronized after a switch or a failed
	// flush.
	forceFlush bool
}

// NewEngine creates an engine with every pattern of the repertoire. The
// engine starts with All-Off active and a single black color.
func NewEngine(cfg EngineConfig, logger *slog.Logger) (*Engine, error) {
	if cfg.NumLEDs < 1 {
		return nil, fmt.Errorf("invalid number of LEDs: %d", cfg.NumLEDs)
	}
	if cfg.Flusher == nil {
		return nil, errors.New("no flusher")
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		patterns: make(map[Name]Pattern),
		frame: Frame{
			LEDs:    led.NewLEDs(cfg.NumLEDs),
			Palette: led.MustPalette(led.Off),
		},
	}

	patterns := cfg.Patterns
	if patterns == nil {
		patterns = Repertoire()
	}
	for _, p := range patterns {
		e.patterns[p.Name()] = p
	}
	if !e.Known(AllOffName) {
		return nil, errors.New("repertoire has no all-off pattern")
	}

	e.activate(AllOffName)
	return e, nil
}

// Known returns true if name is part of the repertoire.
func (e *Engine) Known(name Name) bool {
	_, ok := e.patterns[name]
	return ok
}

// State returns the current engine configuration.
func (e *Engine) State() State {
	return State{
		Action:  e.action,
		Delay:   e.frame.Delay,
		Palette: e.frame.Palette,
	}
}

// Apply replaces the engine configuration. It takes effect on the next Tick.
// An invalid palette is rejected without changing anything. An unknown
// action is accepted but renders as All-Off.
func (e *Engine) Apply(s State) error {
	if !s.Palette.Valid() {
		return errors.Wrap(led.ErrPaletteSize, "cannot apply state")
	}

	e.frame.Delay = s.Delay
	e.frame.Palette = s.Palette
	e.activate(s.Action)
	return nil
}

func (e *Engine) activate(name Name) {
	p, ok := e.patterns[name]
	if !ok {
		e.logger.Warn(
			"unknown pattern, turning LEDs off",
			"pattern", name)
		p = e.patterns[AllOffName]
	}

	e.action = name
	if e.active != nil && e.active.Name() == p.Name() {
		return
	}

	if r, ok := p.(Resetter); ok && e.cfg.ResetOnActivate {
		r.Reset()
	}

	e.active = p
	e.forceFlush = true
	e.logger.Debug("activated pattern", "pattern", p.Name())

	if e.cfg.Hooks.Activated != nil {
		e.cfg.Hooks.Activated(p.Name())
	}
}

// Tick renders the active pattern at time now and flushes the frame buffer if
// it changed. A panicking pattern is replaced by All-Off. A failed flush is
// retried on the next Tick.
func (e *Engine) Tick(now uint32) {
	e.frame.Now = now

	p := e.active
	changed, err := e.render(p)
	if err != nil {
		e.logger.Error(
			"pattern failed, turning LEDs off",
			"pattern", p.Name(),
			"err", err)
		if e.cfg.Hooks.Faulted != nil {
			e.cfg.Hooks.Faulted(p.Name())
		}

		e.activate(AllOffName)
		p = e.active
		changed, _ = e.render(p)
	}

	if changed || e.forceFlush {
		err := e.flush(p.Name())
		e.forceFlush = err != nil
	}
}

func (e *Engine) render(p Pattern) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("pattern %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Render(&e.frame), nil
}

func (e *Engine) flush(name Name) error {
	err := e.cfg.Flusher.Show(e.frame.LEDs)
	if err != nil {
		e.logger.Warn(
			"failed to flush LEDs",
			"pattern", name,
			"err", err)
	}
	if e.cfg.Hooks.Flushed != nil {
		e.cfg.Hooks.Flushed(name, err)
	}
	return err
}
