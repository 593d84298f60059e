package pattern

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/strobbie/internal/led"
)

// recorder is a Flusher that keeps a copy of every flushed frame. The next
// failures calls fail regardless of err.
type recorder struct {
	frames   []led.LEDs
	err      error
	failures int
}

func (r *recorder) Show(leds led.LEDs) error {
	r.frames = append(r.frames, leds.Clone())
	if r.failures > 0 {
		r.failures--
		return errors.New("ack timeout")
	}
	return r.err
}

// panicker is a pattern that always panics.
type panicker struct{}

func (panicker) Name() Name         { return "panicker" }
func (panicker) Render(*Frame) bool { panic("boom") }

func newEngine(t *testing.T, cfg EngineConfig) (*Engine, *recorder) {
	t.Helper()

	r := &recorder{}
	cfg.Flusher = r
	if cfg.NumLEDs == 0 {
		cfg.NumLEDs = 5
	}

	e, err := NewEngine(cfg, slog.Default())
	require.NoError(t, err)
	return e, r
}

func TestNewEngine_Invalid(t *testing.T) {
	_, err := NewEngine(EngineConfig{NumLEDs: 0, Flusher: &recorder{}}, slog.Default())
	assert.Error(t, err)

	_, err = NewEngine(EngineConfig{NumLEDs: 3}, slog.Default())
	assert.Error(t, err)

	_, err = NewEngine(EngineConfig{
		NumLEDs:  3,
		Flusher:  &recorder{},
		Patterns: []Pattern{&Flashing{}},
	}, slog.Default())
	assert.Error(t, err)
}

func TestEngine_Known(t *testing.T) {
	e, _ := newEngine(t, EngineConfig{})

	for _, name := range []Name{
		AllOffName, FlashingName, SolidName, OneDirectionChaseName,
		BackAndForthChaseName, InwardChevronChaseName, RotatingColorFadeName,
		TrainChaseName, OutwardChevronChaseName,
	} {
		assert.True(t, e.Known(name), name)
	}
	assert.False(t, e.Known("strobe"))
}

func TestEngine_Tick(t *testing.T) {
	e, r := newEngine(t, EngineConfig{NumLEDs: 3})

	require.NoError(t, e.Apply(State{
		Action:  FlashingName,
		Delay:   100,
		Palette: led.MustPalette(red),
	}))

	e.Tick(0)
	require.Len(t, r.frames, 1)
	assert.Equal(t, led.LEDs{red, red, red}, r.frames[0])

	e.Tick(50)
	assert.Len(t, r.frames, 1, "gated tick must not flush")

	e.Tick(100)
	require.Len(t, r.frames, 2)
	assert.Equal(t, led.LEDs{led.Off, led.Off, led.Off}, r.frames[1])
}

func TestEngine_ApplyInvalidPalette(t *testing.T) {
	e, _ := newEngine(t, EngineConfig{})
	require.NoError(t, e.Apply(State{Action: SolidName, Delay: 10, Palette: led.MustPalette(red)}))

	err := e.Apply(State{Action: FlashingName, Delay: 20})
	assert.ErrorIs(t, err, led.ErrPaletteSize)

	s := e.State()
	assert.Equal(t, SolidName, s.Action)
	assert.Equal(t, uint32(10), s.Delay)
	assert.Equal(t, []led.Color{red}, s.Palette.Colors())
}

func TestEngine_UnknownAction(t *testing.T) {
	e, r := newEngine(t, EngineConfig{NumLEDs: 2})
	require.NoError(t, e.Apply(State{Action: SolidName, Palette: led.MustPalette(red)}))
	e.Tick(0)
	require.Equal(t, led.LEDs{red, red}, r.frames[len(r.frames)-1])

	require.NoError(t, e.Apply(State{Action: "strobe", Palette: led.MustPalette(red)}))
	assert.Equal(t, Name("strobe"), e.State().Action)

	e.Tick(1)
	assert.Equal(t, led.LEDs{led.Off, led.Off}, r.frames[len(r.frames)-1])
}

func TestEngine_PanicDegradesToAllOff(t *testing.T) {
	var faulted []Name
	e, r := newEngine(t, EngineConfig{
		NumLEDs:  2,
		Patterns: []Pattern{AllOff{}, &Solid{}, panicker{}},
		Hooks: Hooks{
			Faulted: func(n Name) { faulted = append(faulted, n) },
		},
	})

	require.NoError(t, e.Apply(State{Action: SolidName, Palette: led.MustPalette(blue)}))
	e.Tick(0)

	require.NoError(t, e.Apply(State{Action: "panicker", Palette: led.MustPalette(blue)}))
	assert.NotPanics(t, func() { e.Tick(1) })

	assert.Equal(t, []Name{"panicker"}, faulted)
	assert.Equal(t, AllOffName, e.State().Action)
	assert.Equal(t, led.LEDs{led.Off, led.Off}, r.frames[len(r.frames)-1])
}

func TestEngine_FlushAfterSwitch(t *testing.T) {
	var flushed []Name
	e, r := newEngine(t, EngineConfig{
		NumLEDs: 2,
		Hooks: Hooks{
			Flushed: func(n Name, _ error) { flushed = append(flushed, n) },
		},
	})

	// The strip starts dark, but the first tick still resynchronizes it.
	e.Tick(0)
	e.Tick(1)
	assert.Len(t, r.frames, 1)

	require.NoError(t, e.Apply(State{Action: RotatingColorFadeName, Palette: led.MustPalette(red)}))
	e.Tick(2)
	e.Tick(3)
	assert.Len(t, r.frames, 2)
	assert.Equal(t, []Name{AllOffName, RotatingColorFadeName}, flushed)
}

func TestEngine_FlushError(t *testing.T) {
	var errs []error
	e, r := newEngine(t, EngineConfig{
		Hooks: Hooks{
			Flushed: func(_ Name, err error) { errs = append(errs, err) },
		},
	})
	r.err = errors.New("unplugged")

	require.NoError(t, e.Apply(State{Action: FlashingName, Delay: 1, Palette: led.MustPalette(red)}))
	e.Tick(0)
	e.Tick(1)

	require.Len(t, errs, 2)
	assert.EqualError(t, errs[1], "unplugged")
}

func TestEngine_RetryFailedFlush(t *testing.T) {
	tests := []struct {
		name string
		from Name
		to   Name
	}{
		{name: "solid", from: AllOffName, to: SolidName},
		{name: "all off", from: SolidName, to: AllOffName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r := newEngine(t, EngineConfig{NumLEDs: 3})
			palette := led.MustPalette(red)

			require.NoError(t, e.Apply(State{Action: tt.from, Palette: palette}))
			e.Tick(0)
			require.Len(t, r.frames, 1)

			r.failures = 1
			require.NoError(t, e.Apply(State{Action: tt.to, Palette: palette}))
			e.Tick(1)
			require.Len(t, r.frames, 2, "switch flushes")

			e.Tick(2)
			require.Len(t, r.frames, 3, "failed flush is retried")
			assert.Equal(t, r.frames[1], r.frames[2])

			// Delivered, so nothing more until something changes.
			for now := uint32(3); now < 100; now++ {
				e.Tick(now)
			}
			assert.Len(t, r.frames, 3)
		})
	}
}

func TestEngine_ResumeAfterSwitch(t *testing.T) {
	tests := []struct {
		name     string
		reset    bool
		wantHead int
	}{
		{name: "resume", reset: false, wantHead: 2},
		{name: "reset", reset: true, wantHead: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r := newEngine(t, EngineConfig{NumLEDs: 5, ResetOnActivate: tt.reset})
			chase := State{Action: OneDirectionChaseName, Palette: led.MustPalette(red)}

			require.NoError(t, e.Apply(chase))
			e.Tick(0)
			e.Tick(1)

			require.NoError(t, e.Apply(State{Action: AllOffName, Palette: led.MustPalette(red)}))
			e.Tick(2)

			require.NoError(t, e.Apply(chase))
			e.Tick(3)
			assert.Equal(t, []int{tt.wantHead}, lit(r.frames[len(r.frames)-1]))
		})
	}
}

func TestEngine_RateLimit(t *testing.T) {
	e, r := newEngine(t, EngineConfig{NumLEDs: 4})
	require.NoError(t, e.Apply(State{Action: OneDirectionChaseName, Delay: 70, Palette: led.MustPalette(green)}))

	e.Tick(1000)
	require.Len(t, r.frames, 1)
	e.Tick(1030)
	e.Tick(1069)
	assert.Len(t, r.frames, 1)
	e.Tick(1070)
	assert.Len(t, r.frames, 2)
	assert.Equal(t, []int{1}, lit(r.frames[1]))
}
