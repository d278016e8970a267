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

import "github.com/sennett/magpie2600/audio"

// nearest is the low cost Resampler. for every output frame it emits the
// source sample the fractional read cursor most recently passed. no
// filtering, no lookahead, O(1) per output sample.
type nearest struct {
	from audio.Format
	to   audio.Format
	next NextFragment

	// fragment currently being read. nil until the first fragment arrives
	// and nil again while the source is starved
	fragment []float32
	frame    int

	// fractional read cursor. the cursor is at frame + timeIndex/to.SampleRate
	// source frames; keeping the fraction as an integer accumulator avoids
	// float drift over long runs
	timeIndex int

	// most recent sample values, held flat during starvation so that an
	// underrun doesn't produce a click from a sudden return to zero
	lastL float32
	lastR float32
}

func newNearest(from audio.Format, to audio.Format, next NextFragment) *nearest {
	return &nearest{
		from: from,
		to:   to,
		next: next,
	}
}

// FillFragment implements the Resampler interface.
func (r *nearest) FillFragment(out []float32) {
	chans := r.to.ChannelCount()
	frames := len(out) / chans

	if r.fragment == nil {
		r.fetch()
	}

	for i := 0; i < frames; i++ {
		for r.timeIndex >= r.to.SampleRate {
			r.advance()
			r.timeIndex -= r.to.SampleRate
		}

		l, rr := r.read()

		if r.to.Stereo {
			out[i*2] = l
			out[i*2+1] = rr
		} else {
			out[i] = (l + rr) / 2
		}

		r.timeIndex += r.from.SampleRate
	}

	// a trailing part-frame can only happen if the device buffer length is
	// not a multiple of the channel count. fill it rather than leave it
	// uninitialised
	for i := frames * chans; i < len(out); i++ {
		out[i] = r.lastL
	}
}

// read the sample under the cursor, or repeat the last known sample if the
// source is starved.
func (r *nearest) read() (float32, float32) {
	if r.fragment == nil {
		return r.lastL, r.lastR
	}

	if r.from.Stereo {
		r.lastL = r.fragment[r.frame*2]
		r.lastR = r.fragment[r.frame*2+1]
	} else {
		r.lastL = r.fragment[r.frame]
		r.lastR = r.lastL
	}

	return r.lastL, r.lastR
}

// advance the cursor one source frame, crossing into the next fragment when
// the current one is exhausted.
func (r *nearest) advance() {
	if r.fragment == nil {
		r.fetch()
		return
	}

	r.frame++
	if r.frame >= r.from.FragmentSize {
		r.fetch()
	}
}

func (r *nearest) fetch() {
	f := r.next()
	if f == nil {
		// starved. hold the last sample until data returns
		r.fragment = nil
		return
	}
	r.fragment = f
	r.frame = 0
}
