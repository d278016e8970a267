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
	"math"

	"github.com/sennett/magpie2600/audio"
)

// kernels are precomputed for each fractional phase of the read cursor. when
// the two sample rates are in a simple ratio the number of distinct phases
// is small (441 for 31400Hz -> 44100Hz). the count is capped for awkward
// rate pairs, quantising the phase; the error from quantisation at this
// resolution is far below the noise floor of the source material
const maxKernelCount = 1 << 11

// lanczos is the windowed sinc Resampler. every output sample is the
// convolution of the 2a most recent source samples with a sinc kernel
// windowed by the central lobe of a wider sinc (the Lanczos window).
//
// the convolution history persists across fragment boundaries so the window
// can span a seam without discontinuity. the price of the window is a
// latency of a source frames and 2a multiply-adds per channel per output
// sample.
type lanczos struct {
	from audio.Format
	to   audio.Format
	next NextFragment
	a    int

	fragment []float32
	frame    int

	// see nearest.go for commentary on the integer phase accumulator
	timeIndex int

	kernelCount int
	kernels     [][]float32

	left  convolutionBuffer
	right convolutionBuffer
}

func newLanczos(from audio.Format, to audio.Format, next NextFragment, a int) *lanczos {
	r := &lanczos{
		from:  from,
		to:    to,
		next:  next,
		a:     a,
		left:  newConvolutionBuffer(2 * a),
		right: newConvolutionBuffer(2 * a),
	}
	r.precomputeKernels()
	return r
}

func (r *lanczos) precomputeKernels() {
	g := gcd(r.from.SampleRate, r.to.SampleRate)
	r.kernelCount = r.to.SampleRate / g
	if r.kernelCount > maxKernelCount {
		r.kernelCount = maxKernelCount
	}

	r.kernels = make([][]float32, r.kernelCount)
	for p := 0; p < r.kernelCount; p++ {
		k := make([]float32, 2*r.a)
		frac := float64(p) / float64(r.kernelCount)

		// the interpolation point sits between history samples a-1 and a,
		// offset by the fractional phase
		var sum float64
		for j := range k {
			x := float64(j-(r.a-1)) - frac
			v := lanczosWindow(x, r.a)
			k[j] = float32(v)
			sum += v
		}

		// normalise so a DC signal passes through at unity gain for every
		// phase. without this the quantised phases introduce a low level
		// amplitude ripple
		for j := range k {
			k[j] = float32(float64(k[j]) / sum)
		}

		r.kernels[p] = k
	}
}

// FillFragment implements the Resampler interface.
func (r *lanczos) FillFragment(out []float32) {
	chans := r.to.ChannelCount()
	frames := len(out) / chans

	for i := 0; i < frames; i++ {
		for r.timeIndex >= r.to.SampleRate {
			r.shiftIn()
			r.timeIndex -= r.to.SampleRate
		}

		phase := r.timeIndex * r.kernelCount / r.to.SampleRate
		kernel := r.kernels[phase]

		l := r.left.convolve(kernel)
		rr := r.right.convolve(kernel)

		if r.to.Stereo {
			out[i*2] = l
			out[i*2+1] = rr
		} else {
			out[i] = (l + rr) / 2
		}

		r.timeIndex += r.from.SampleRate
	}

	for i := frames * chans; i < len(out); i++ {
		out[i] = 0
	}
}

// shiftIn moves one source frame into the convolution history. during
// starvation zeroes are shifted in, letting the window decay the output to
// silence rather than cutting it dead.
func (r *lanczos) shiftIn() {
	if r.fragment == nil {
		r.fetch()
	}

	if r.fragment == nil {
		r.left.shift(0)
		r.right.shift(0)
		return
	}

	if r.from.Stereo {
		r.left.shift(r.fragment[r.frame*2])
		r.right.shift(r.fragment[r.frame*2+1])
	} else {
		v := r.fragment[r.frame]
		r.left.shift(v)
		r.right.shift(v)
	}

	r.frame++
	if r.frame >= r.from.FragmentSize {
		r.fetch()
	}
}

func (r *lanczos) fetch() {
	f := r.next()
	if f == nil {
		r.fragment = nil
		return
	}
	r.fragment = f
	r.frame = 0
}

// convolutionBuffer is a fixed length ring holding the most recent source
// samples for one channel.
type convolutionBuffer struct {
	data []float32
	head int
}

func newConvolutionBuffer(length int) convolutionBuffer {
	return convolutionBuffer{
		data: make([]float32, length),
	}
}

// shift the oldest sample out and v in.
func (c *convolutionBuffer) shift(v float32) {
	c.data[c.head] = v
	c.head++
	if c.head >= len(c.data) {
		c.head = 0
	}
}

// convolve the history, oldest sample first, with kernel. len(kernel) must
// equal the buffer length.
func (c *convolutionBuffer) convolve(kernel []float32) float32 {
	var acc float32
	j := c.head
	for i := range kernel {
		acc += c.data[j] * kernel[i]
		j++
		if j >= len(c.data) {
			j = 0
		}
	}
	return acc
}

func lanczosWindow(x float64, a int) float64 {
	if x == 0 {
		return 1
	}
	if x <= float64(-a) || x >= float64(a) {
		return 0
	}
	px := math.Pi * x
	return float64(a) * math.Sin(px) * math.Sin(px/float64(a)) / (px * px)
}

func gcd(a int, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
