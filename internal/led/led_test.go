package led_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/strobbie/internal/led"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    led.Color
		wantErr bool
	}{
		{name: "plain", input: "0000FF", want: led.RGB(0, 0, 255)},
		{name: "hash", input: "#ff8000", want: led.RGB(255, 128, 0)},
		{name: "mixed case", input: "aBcDeF", want: led.RGB(0xab, 0xcd, 0xef)},
		{name: "black", input: "000000", want: led.Off},
		{name: "short", input: "fff", wantErr: true},
		{name: "not hex", input: "zz0000", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "embedded space", input: "12 345", wantErr: true},
		{name: "sign", input: "+12345", wantErr: true},
		{name: "double hash", input: "##12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := led.ParseHex(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColor_Hex(t *testing.T) {
	c := led.RGB(1, 0x80, 0xfe)
	assert.Equal(t, "0180fe", c.Hex())
	assert.Equal(t, "#0180fe", c.String())

	var parsed led.Color
	require.NoError(t, parsed.UnmarshalText([]byte(c.Hex())))
	assert.Equal(t, c, parsed)
	assert.True(t, led.Off.IsOff())
	assert.False(t, c.IsOff())
}

func TestPalette(t *testing.T) {
	red, green, blue := led.RGB(255, 0, 0), led.RGB(0, 255, 0), led.RGB(0, 0, 255)

	_, err := led.NewPalette()
	assert.ErrorIs(t, err, led.ErrPaletteSize)
	_, err = led.NewPalette(red, green, blue, red)
	assert.ErrorIs(t, err, led.ErrPaletteSize)

	p := led.MustPalette(red, green, blue)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []led.Color{red, green, blue}, p.Colors())
	assert.Equal(t, 1, p.Index(green))
	assert.Equal(t, -1, p.Index(led.Off))
	assert.Equal(t, 0, p.Next(2))
	assert.Equal(t, red, p.At(3))

	assert.Error(t, p.Set(nil))
	assert.Equal(t, 3, p.Len(), "failed set must not modify the palette")

	require.NoError(t, p.Set([]led.Color{blue}))
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, blue, p.At(2))
	assert.Equal(t, 0, p.Next(0))

	var zero led.Palette
	assert.Equal(t, 1, zero.Len())
	assert.Equal(t, led.Off, zero.At(0))
}

func TestLEDs(t *testing.T) {
	leds := led.NewLEDs(4)
	assert.False(t, leds.Fill(led.Off))
	assert.True(t, leds.Fill(led.RGB(1, 2, 3)))
	assert.Equal(t, []uint8{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}, leds.AsPixels())

	leds.Set(-1, led.Off)
	leds.Set(4, led.Off)
	assert.True(t, leds.SetRange(1, 10, led.Off))
	assert.False(t, leds.SetRange(-3, 1, led.RGB(1, 2, 3)))
	assert.Equal(t, led.LEDs{led.RGB(1, 2, 3), led.Off, led.Off, led.Off}, leds)
	assert.Equal(t, "010203000000000000000000", leds.Hex())

	clone := leds.Clone()
	leds.Clear()
	assert.Equal(t, led.RGB(1, 2, 3), clone[0])
}
