// This file is part of Magpie2600.
//
// Magpie2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Magpie2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Magpie2600.  If not, see <https://www.gnu.org/licenses/>.

package sound

import (
	"errors"
	"fmt"

	"github.com/sennett/magpie2600/prefs"
	"github.com/sennett/magpie2600/resources"
)

// Preset bundles the settings that trade audio quality against latency.
type Preset int

// List of valid presets.
const (
	PresetCustom Preset = iota
	PresetLowQualityMediumLag
	PresetHighQualityMediumLag
	PresetHighQualityLowLag
	PresetUltraQualityMinimalLag
)

func (p Preset) String() string {
	switch p {
	case PresetCustom:
		return "Custom"
	case PresetLowQualityMediumLag:
		return "Low quality, medium lag"
	case PresetHighQualityMediumLag:
		return "High quality, medium lag"
	case PresetHighQualityLowLag:
		return "High quality, low lag"
	case PresetUltraQualityMinimalLag:
		return "Ultra quality, minimal lag"
	}
	return "unknown"
}

// ParsePreset converts a preset name, as used on the command line and in the
// prefs file, to a Preset value.
func ParsePreset(s string) (Preset, error) {
	switch s {
	case "custom":
		return PresetCustom, nil
	case "lowQualityMediumLag":
		return PresetLowQualityMediumLag, nil
	case "highQualityMediumLag":
		return PresetHighQualityMediumLag, nil
	case "highQualityLowLag":
		return PresetHighQualityLowLag, nil
	case "ultraQualityMinimalLag":
		return PresetUltraQualityMinimalLag, nil
	}
	return PresetCustom, fmt.Errorf("sound: unrecognised preset (%s)", s)
}

// the settings each preset resolves to. the custom preset leaves the
// current values untouched.
type presetValues struct {
	sampleRate   int
	fragmentSize int
	bufferSize   int
	headroom     int
	quality      string
}

var presets = map[Preset]presetValues{
	PresetLowQualityMediumLag:    {44100, 1024, 6, 5, "nearest"},
	PresetHighQualityMediumLag:   {44100, 1024, 6, 5, "lanczos2"},
	PresetHighQualityLowLag:      {44100, 512, 3, 2, "lanczos2"},
	PresetUltraQualityMinimalLag: {96000, 128, 1, 1, "lanczos3"},
}

// Preferences defines and collates all the preference values used by the
// sound pipeline.
type Preferences struct {
	dsk *prefs.Disk

	Enabled prefs.Bool
	Volume  prefs.Int

	// Device is the name of the output device. the empty string selects the
	// system default
	Device prefs.String

	// Backend is the name of the host driver: "sdl" or "oto"
	Backend prefs.String

	// Preset name. setting a non-custom preset overwrites SampleRate,
	// FragmentSize, BufferSize, Headroom and Quality
	Preset prefs.String

	SampleRate   prefs.Int
	FragmentSize prefs.Int
	BufferSize   prefs.Int
	Headroom     prefs.Int
	Quality      prefs.String
	Stereo       prefs.Bool
}

func (p *Preferences) String() string {
	return p.dsk.String()
}

// NewPreferences is the preferred method of initialisation for the
// Preferences type.
func NewPreferences() (*Preferences, error) {
	p := &Preferences{}
	p.SetDefaults()

	// volume is always clamped to a percentage
	p.Volume.SetHookPre(func(v prefs.Value) error {
		if n, ok := v.(int); ok && (n < 0 || n > 100) {
			return fmt.Errorf("sound: volume out of range (%d)", n)
		}
		return nil
	})

	// applying a named preset overwrites the individual quality/latency
	// values
	p.Preset.SetHookPost(func(v prefs.Value) error {
		ps, err := ParsePreset(v.(string))
		if err != nil {
			return err
		}
		return p.applyPreset(ps)
	})

	// setup preferences and load from disk
	pth, err := resources.JoinPath(prefs.DefaultPrefsFile)
	if err != nil {
		return nil, err
	}
	p.dsk, err = prefs.NewDisk(pth)
	if err != nil {
		return nil, err
	}

	err = p.dsk.Add("sound.enabled", &p.Enabled)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.volume", &p.Volume)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.device", &p.Device)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.backend", &p.Backend)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.preset", &p.Preset)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.samplerate", &p.SampleRate)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.fragsize", &p.FragmentSize)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.buffersize", &p.BufferSize)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.headroom", &p.Headroom)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.quality", &p.Quality)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("sound.stereo", &p.Stereo)
	if err != nil {
		return nil, err
	}

	err = p.dsk.Load(true)
	if err != nil {
		// ignore missing prefs file errors
		if !errors.Is(err, prefs.NoPrefsFile) {
			return nil, err
		}
	}

	return p, nil
}

// SetDefaults resets all sound preferences to the default values.
func (p *Preferences) SetDefaults() {
	p.Enabled.Set(true)
	p.Volume.Set(80)
	p.Device.Set("")
	p.Backend.Set("sdl")
	p.Stereo.Set(true)
	p.applyPreset(PresetHighQualityMediumLag)
	p.Preset.Set("highQualityMediumLag")
}

func (p *Preferences) applyPreset(ps Preset) error {
	v, ok := presets[ps]
	if !ok {
		// the custom preset leaves the individual values as they are
		return nil
	}

	if err := p.SampleRate.Set(v.sampleRate); err != nil {
		return err
	}
	if err := p.FragmentSize.Set(v.fragmentSize); err != nil {
		return err
	}
	if err := p.BufferSize.Set(v.bufferSize); err != nil {
		return err
	}
	if err := p.Headroom.Set(v.headroom); err != nil {
		return err
	}
	return p.Quality.Set(v.quality)
}

// Load current sound preferences from disk.
func (p *Preferences) Load() error {
	return p.dsk.Load(false)
}

// Save current sound preferences to disk.
func (p *Preferences) Save() error {
	return p.dsk.Save()
}
