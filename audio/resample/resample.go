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

package resample

import (
	"fmt"

	"github.com/sennett/magpie2600/audio"
)

// NextFragment is how a Resampler requests source data. A nil return
// indicates that no fragment is available right now (starvation). The
// returned slice must be of the source format's fragment length and remains
// valid until the next call.
type NextFragment func() []float32

// Resampler instances produce device format samples from a stream of source
// format fragments.
type Resampler interface {
	// FillFragment always fills the entirety of out, even when the source
	// has run dry. out is interleaved according to the destination format's
	// channel count and its length counts samples, not frames.
	FillFragment(out []float32)
}

// Quality selects the resampling strategy. The set is closed; an
// unrecognised value is a configuration error and is reported by New()
// before the pipeline starts, never from the realtime path.
type Quality int

// List of valid Quality values.
const (
	NearestNeighbour Quality = iota
	Lanczos2
	Lanczos3
)

func (q Quality) String() string {
	switch q {
	case NearestNeighbour:
		return "Quality 1, nearest neighbour"
	case Lanczos2:
		return "Quality 2, Lanczos (a = 2)"
	case Lanczos3:
		return "Quality 3, Lanczos (a = 3)"
	}
	return "unknown"
}

// ParseQuality converts the preference string used in the audio settings.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "nearest":
		return NearestNeighbour, nil
	case "lanczos2":
		return Lanczos2, nil
	case "lanczos3":
		return Lanczos3, nil
	}
	return 0, fmt.Errorf("resample: unrecognised quality (%s)", s)
}

// New creates the Resampler implementation indicated by quality. The from
// and to formats and the next callback are fixed for the lifetime of the
// Resampler; reconfiguration means building a new one.
func New(from audio.Format, to audio.Format, next NextFragment, quality Quality) (Resampler, error) {
	if from.SampleRate < 1 || to.SampleRate < 1 {
		return nil, fmt.Errorf("resample: sample rates must be positive (%d -> %d)", from.SampleRate, to.SampleRate)
	}
	if from.FragmentSize < 1 {
		return nil, fmt.Errorf("resample: fragment size must be positive (%d)", from.FragmentSize)
	}

	switch quality {
	case NearestNeighbour:
		return newNearest(from, to, next), nil
	case Lanczos2:
		return newLanczos(from, to, next, 2), nil
	case Lanczos3:
		return newLanczos(from, to, next, 3), nil
	}

	return nil, fmt.Errorf("resample: unrecognised quality (%d)", quality)
}
