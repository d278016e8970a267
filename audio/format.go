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

package audio

import "fmt"

// Format describes one end of the audio pipeline. Two instances exist per
// pipeline: the format of the fragments produced by the emulation and the
// format negotiated with the host device. Neither changes for the lifetime
// of an open/close cycle.
type Format struct {
	// frames per second
	SampleRate int

	// frames per fragment. for the source format this is the length of a
	// queued fragment; for the device format it is the length of the buffer
	// the device asks to be filled
	FragmentSize int

	Stereo bool
}

// ChannelCount returns 2 for a stereo format and 1 otherwise.
func (f Format) ChannelCount() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// SamplesPerFragment is the number of float32 values in one fragment.
// fragment size counts frames, not samples.
func (f Format) SamplesPerFragment() int {
	return f.FragmentSize * f.ChannelCount()
}

func (f Format) String() string {
	c := "mono"
	if f.Stereo {
		c = "stereo"
	}
	return fmt.Sprintf("%dHz %s (fragment size %d)", f.SampleRate, c, f.FragmentSize)
}
