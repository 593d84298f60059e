// Package settings persists the engine configuration across restarts. The
// settings file carries a sentinel hash of its contents; a file that is
// missing, unreadable or fails the check is replaced by the factory
// defaults.
package settings

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/strobbie/internal/led"
	"libdb.so/strobbie/internal/pattern"
)

// ErrCorrupt is returned when the stored settings fail the integrity check.
var ErrCorrupt = errors.New("settings are corrupt")

// ColorSeparator separates the hex colors in Settings.Colors.
const ColorSeparator = ":"

// Settings is the persisted form of the engine configuration.
type Settings struct {
	// ActionName is the name of the active pattern.
	ActionName string `toml:"action_name"`
	// ActionDelay is the pattern delay in milliseconds.
	ActionDelay uint32 `toml:"action_delay"`
	// Colors is a colon-separated list of six-digit hex colors.
	Colors string `toml:"colors"`
	// ColorsSize is the number of active colors in Colors.
	ColorsSize uint `toml:"colors_size"`
	// Sentinel is the hex MD5 hash of the other fields.
	Sentinel string `toml:"sentinel"`
}

// Factory returns the factory default settings.
func Factory() Settings {
	s := Settings{
		ActionName:  string(pattern.FlashingName),
		ActionDelay: 70,
		Colors:      "0000FF:000000:000000",
		ColorsSize:  1,
	}
	s.Seal()
	return s
}

// FromState converts an engine configuration to settings. Unused palette
// slots are written as black so the file always lists led.MaxColors colors.
func FromState(state pattern.State) Settings {
	colors := state.Palette.Colors()
	hexes := make([]string, led.MaxColors)
	for i := range hexes {
		c := led.Off
		if i < len(colors) {
			c = colors[i]
		}
		hexes[i] = strings.ToUpper(c.Hex())
	}

	s := Settings{
		ActionName:  string(state.Action),
		ActionDelay: state.Delay,
		Colors:      strings.Join(hexes, ColorSeparator),
		ColorsSize:  uint(len(colors)),
	}
	s.Seal()
	return s
}

// State converts the settings to an engine configuration. Colors are decoded
// into a fixed set of led.MaxColors slots; entries that are missing or not
// valid hex decode as black. The color count is clamped into the valid
// palette range.
func (s Settings) State() pattern.State {
	var colors [led.MaxColors]led.Color
	for i, part := range strings.SplitN(s.Colors, ColorSeparator, led.MaxColors+1) {
		if i >= led.MaxColors {
			break
		}
		if c, err := led.ParseHex(part); err == nil {
			colors[i] = c
		}
	}

	size := min(max(int(s.ColorsSize), 1), led.MaxColors)
	return pattern.State{
		Action:  pattern.Name(s.ActionName),
		Delay:   s.ActionDelay,
		Palette: led.MustPalette(colors[:size]...),
	}
}

// Hash returns the integrity hash of the settings, ignoring the sentinel.
func (s Settings) Hash() string {
	var content strings.Builder
	content.WriteString(s.ActionName)
	content.WriteString(strconv.FormatUint(uint64(s.ActionDelay), 10))
	content.WriteString(s.Colors)
	content.WriteString(strconv.FormatUint(uint64(s.ColorsSize), 10))

	sum := md5.Sum([]byte(content.String()))
	return hex.EncodeToString(sum[:])
}

// Seal updates the sentinel to match the current contents.
func (s *Settings) Seal() {
	s.Sentinel = s.Hash()
}

// Verify returns ErrCorrupt if the sentinel does not match the contents.
func (s Settings) Verify() error {
	if s.Sentinel != s.Hash() {
		return ErrCorrupt
	}
	return nil
}

// Store reads and writes settings to a file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the path of the settings file.
func (s *Store) Path() string { return s.path }

// Load reads the stored settings. If they are missing or fail the integrity
// check, the factory defaults are written back and returned and ok is false.
// The returned error only reports a failure to write the defaults; the
// returned settings are usable regardless.
func (s *Store) Load() (set Settings, ok bool, err error) {
	set, err = s.read()
	if err == nil {
		return set, true, nil
	}

	s.logger.Warn(
		"stored settings unusable, restoring factory defaults",
		"path", s.path,
		"err", err)

	set = Factory()
	if err := s.Save(set); err != nil {
		return set, false, errors.Wrap(err, "failed to restore factory defaults")
	}
	return set, false, nil
}

func (s *Store) read() (Settings, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, errors.Wrap(err, "failed to read settings")
	}

	var set Settings
	if err := toml.Unmarshal(b, &set); err != nil {
		return Settings{}, errors.Wrap(ErrCorrupt, err.Error())
	}
	if err := set.Verify(); err != nil {
		return Settings{}, err
	}
	return set, nil
}

// Save seals and atomically writes the settings.
func (s *Store) Save(set Settings) error {
	set.Seal()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(set); err != nil {
		return errors.Wrap(err, "failed to encode settings")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}

	f, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary settings file")
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write settings")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to write settings")
	}

	if err := os.Rename(f.Name(), s.path); err != nil {
		return errors.Wrap(err, "failed to replace settings")
	}

	s.logger.Debug("saved settings", "path", s.path, "action", set.ActionName)
	return nil
}
