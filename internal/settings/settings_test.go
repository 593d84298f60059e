package settings_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/strobbie/internal/led"
	"libdb.so/strobbie/internal/pattern"
	"libdb.so/strobbie/internal/settings"
)

func newStore(t *testing.T) *settings.Store {
	t.Helper()
	return settings.NewStore(filepath.Join(t.TempDir(), "strobbie", "settings.toml"), slog.Default())
}

func TestFactory(t *testing.T) {
	f := settings.Factory()
	require.NoError(t, f.Verify())

	state := f.State()
	assert.Equal(t, pattern.FlashingName, state.Action)
	assert.Equal(t, uint32(70), state.Delay)
	assert.Equal(t, []led.Color{led.RGB(0, 0, 0xff)}, state.Palette.Colors())
}

func TestRoundTrip(t *testing.T) {
	store := newStore(t)

	want := pattern.State{
		Action:  pattern.SolidName,
		Delay:   120,
		Palette: led.MustPalette(led.RGB(255, 0, 0)),
	}
	set := settings.FromState(want)
	assert.Equal(t, "FF0000:000000:000000", set.Colors)
	assert.Equal(t, uint(1), set.ColorsSize)
	require.NoError(t, store.Save(set))

	got, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got.State())
}

func TestRoundTrip_FullPalette(t *testing.T) {
	store := newStore(t)

	want := pattern.State{
		Action:  pattern.InwardChevronChaseName,
		Delay:   5,
		Palette: led.MustPalette(led.RGB(1, 2, 3), led.RGB(0xaa, 0xbb, 0xcc), led.RGB(255, 255, 255)),
	}
	require.NoError(t, store.Save(settings.FromState(want)))

	got, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got.State())
}

func TestLoad_Missing(t *testing.T) {
	store := newStore(t)

	got, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, settings.Factory(), got)

	// Defaults are written back.
	again, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, settings.Factory(), again)
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(string) string
	}{
		{
			name: "tampered delay",
			corrupt: func(s string) string {
				return strings.Replace(s, "action_delay = 120", "action_delay = 121", 1)
			},
		},
		{
			name: "tampered sentinel",
			corrupt: func(s string) string {
				return strings.Replace(s, "sentinel = \"", "sentinel = \"0", 1)
			},
		},
		{
			name:    "garbage",
			corrupt: func(string) string { return "\x00\x01not toml[" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, store.Save(settings.FromState(pattern.State{
				Action:  pattern.SolidName,
				Delay:   120,
				Palette: led.MustPalette(led.RGB(255, 0, 0)),
			})))

			b, err := os.ReadFile(store.Path())
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.corrupt(string(b))), 0644))

			got, ok, err := store.Load()
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, settings.Factory(), got)
		})
	}
}

func TestVerify(t *testing.T) {
	s := settings.Factory()
	s.ColorsSize = 2
	assert.ErrorIs(t, s.Verify(), settings.ErrCorrupt)
	s.Seal()
	assert.NoError(t, s.Verify())
}

func TestState_Lenient(t *testing.T) {
	tests := []struct {
		name string
		set  settings.Settings
		want []led.Color
	}{
		{
			name: "invalid hex decodes as black",
			set:  settings.Settings{Colors: "zzzzzz:00FF00", ColorsSize: 2},
			want: []led.Color{led.Off, led.RGB(0, 255, 0)},
		},
		{
			name: "missing entries decode as black",
			set:  settings.Settings{Colors: "FF0000", ColorsSize: 3},
			want: []led.Color{led.RGB(255, 0, 0), led.Off, led.Off},
		},
		{
			name: "zero size is clamped",
			set:  settings.Settings{Colors: "FF0000", ColorsSize: 0},
			want: []led.Color{led.RGB(255, 0, 0)},
		},
		{
			name: "oversized is clamped",
			set:  settings.Settings{Colors: "FF0000:00FF00:0000FF:FFFFFF", ColorsSize: 9},
			want: []led.Color{led.RGB(255, 0, 0), led.RGB(0, 255, 0), led.RGB(0, 0, 255)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.State().Palette.Colors())
		})
	}
}
