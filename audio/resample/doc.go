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

// Package resample converts a stream of audio fragments from the emulation's
// sample rate into the sample rate and channel count negotiated with the
// host device.
//
// A Resampler knows nothing about the fragment queue. It asks for source
// data through the NextFragment callback supplied at construction and it
// must be given fragments of the source format's fragment size. The callback
// returning nil means the source has (temporarily) run dry; the resampler
// deals with that by padding, never by blocking or by reading past the end
// of a fragment it was handed.
//
// Two strategies are implemented. The nearest neighbour resampler picks the
// closest source sample for every output sample; cheap and immediate but
// audibly rough. The Lanczos resampler convolves a window of source samples
// with a windowed sinc kernel; much cleaner at the cost of CPU time and a
// small amount of latency from the convolution window. The window width is
// the classic quality/latency/CPU trade-off and is selected with the
// Quality value.
package resample
