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

// Package timing describes the audio timing of the emulated console. The
// console produces two audio samples per scanline so the effective sample
// rate follows directly from the TV specification.
package timing

import "fmt"

// TV specifications.
type TV int

// List of valid TV specifications.
const (
	NTSC TV = iota
	PAL
)

func (tv TV) String() string {
	switch tv {
	case NTSC:
		return "NTSC"
	case PAL:
		return "PAL"
	}
	return "unknown"
}

// ParseTV converts a specification name to a TV value.
func ParseTV(s string) (TV, error) {
	switch s {
	case "NTSC", "ntsc":
		return NTSC, nil
	case "PAL", "pal":
		return PAL, nil
	}
	return NTSC, fmt.Errorf("timing: unrecognised TV specification (%s)", s)
}

// two audio samples are produced for every scanline.
const samplesPerScanline = 2

// scanlines per frame and frames per second for each TV specification.
const (
	ntscScanlines = 262
	ntscRefresh   = 60
	palScanlines  = 312
	palRefresh    = 50
)

// Timing provides the audio timing information for an emulated console. It
// satisfies the sound.TimingInfo interface.
type Timing struct {
	tv       TV
	headroom int
}

// New is the preferred method of initialisation for the Timing type.
// Headroom is measured in fragments and is the depth the fragment queue must
// recover to before playback resumes after an underrun.
func New(tv TV, headroom int) *Timing {
	if headroom < 1 {
		headroom = 1
	}
	return &Timing{
		tv:       tv,
		headroom: headroom,
	}
}

// TV returns the TV specification the timing is based on.
func (t *Timing) TV() TV {
	return t.tv
}

// AudioSampleRate returns the rate at which the emulated console produces
// audio samples. For NTSC this is 262 x 60 x 2 = 31440Hz.
func (t *Timing) AudioSampleRate() int {
	switch t.tv {
	case PAL:
		return palScanlines * palRefresh * samplesPerScanline
	}
	return ntscScanlines * ntscRefresh * samplesPerScanline
}

// PrebufferFragmentCount returns the number of fragments that must be ready
// in the queue before playback resumes after an underrun.
func (t *Timing) PrebufferFragmentCount() int {
	return t.headroom
}

// ClipSpeed returns the factor by which a one-shot clip, recorded against
// wall-clock time, must be sped up to remain in sync with emulated time.
// Equals 1.0 for NTSC.
func (t *Timing) ClipSpeed() float64 {
	return float64(ntscScanlines*ntscRefresh*samplesPerScanline) / float64(t.AudioSampleRate())
}
