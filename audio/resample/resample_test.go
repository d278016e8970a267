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

package resample_test

import (
	"math"
	"testing"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/resample"
	"github.com/sennett/magpie2600/test"
)

// constantSource returns a NextFragment callback producing an endless stream
// of fragments filled with value v.
func constantSource(format audio.Format, v float32) resample.NextFragment {
	fragment := make([]float32, format.SamplesPerFragment())
	for i := range fragment {
		fragment[i] = v
	}
	return func() []float32 {
		return fragment
	}
}

// rampSource produces fragments of a steadily increasing sample value.
func rampSource(format audio.Format, step float32) resample.NextFragment {
	fragment := make([]float32, format.SamplesPerFragment())
	var v float32
	chans := format.ChannelCount()
	return func() []float32 {
		for i := 0; i < format.FragmentSize; i++ {
			for c := 0; c < chans; c++ {
				fragment[i*chans+c] = v
			}
			v += step
		}
		return fragment
	}
}

// sentinel value used to detect samples that FillFragment failed to write
const unwritten = float32(math.MaxFloat32)

func fillAndCheck(t *testing.T, r resample.Resampler, length int) []float32 {
	t.Helper()

	out := make([]float32, length)
	for i := range out {
		out[i] = unwritten
	}

	r.FillFragment(out)

	for i := range out {
		if out[i] == unwritten {
			t.Fatalf("sample %d of %d not written", i, length)
		}
	}

	return out
}

func TestOutputLengthExact(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 128, Stereo: false}

	for _, destRate := range []int{44100, 48000, 22050, 31400} {
		for _, quality := range []resample.Quality{resample.NearestNeighbour, resample.Lanczos2, resample.Lanczos3} {
			to := audio.Format{SampleRate: destRate, FragmentSize: 512, Stereo: true}

			r, err := resample.New(from, to, constantSource(from, 0.25), quality)
			test.ExpectedSuccess(t, err)

			// several pulls so fragment seams are crossed in every rate
			// combination
			for i := 0; i < 10; i++ {
				fillAndCheck(t, r, to.SamplesPerFragment())
			}
		}
	}
}

func TestStarvation(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 64, Stereo: false}
	to := audio.Format{SampleRate: 48000, FragmentSize: 256, Stereo: true}

	fragment := make([]float32, from.SamplesPerFragment())
	for i := range fragment {
		fragment[i] = 0.5
	}

	starved := false
	next := func() []float32 {
		if starved {
			return nil
		}
		return fragment
	}

	for _, quality := range []resample.Quality{resample.NearestNeighbour, resample.Lanczos2, resample.Lanczos3} {
		starved = false

		r, err := resample.New(from, to, next, quality)
		test.ExpectedSuccess(t, err)

		fillAndCheck(t, r, to.SamplesPerFragment())

		// source dries up. every subsequent pull must still fill the buffer
		// completely with bounded values
		starved = true
		for i := 0; i < 5; i++ {
			out := fillAndCheck(t, r, to.SamplesPerFragment())
			for _, v := range out {
				if v < -1.0 || v > 1.0 || math.IsNaN(float64(v)) {
					t.Fatalf("out of range sample during starvation (%f)", v)
				}
			}
		}
	}
}

func TestNearestHoldsLastSample(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 32, Stereo: false}
	to := audio.Format{SampleRate: 31400, FragmentSize: 32, Stereo: false}

	fragment := make([]float32, from.SamplesPerFragment())
	for i := range fragment {
		fragment[i] = 0.75
	}

	pulls := 0
	next := func() []float32 {
		pulls++
		if pulls > 1 {
			return nil
		}
		return fragment
	}

	r, err := resample.New(from, to, next, resample.NearestNeighbour)
	test.ExpectedSuccess(t, err)

	fillAndCheck(t, r, 32)

	// starved pulls repeat the last known sample, not silence
	out := fillAndCheck(t, r, 32)
	for _, v := range out {
		test.ApproxEquate(t, float64(v), 0.75, 0.0001)
	}
}

func TestLanczosUnityGain(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 64, Stereo: false}
	to := audio.Format{SampleRate: 44100, FragmentSize: 512, Stereo: false}

	r, err := resample.New(from, to, constantSource(from, 0.5), resample.Lanczos3)
	test.ExpectedSuccess(t, err)

	// first pull includes the windup of the convolution window
	fillAndCheck(t, r, to.SamplesPerFragment())

	// once the window is full of source data a DC signal must pass through
	// at unity gain, for every fractional phase of the cursor
	out := fillAndCheck(t, r, to.SamplesPerFragment())
	for _, v := range out {
		test.ApproxEquate(t, float64(v), 0.5, 0.001)
	}
}

func TestLanczosSeamContinuity(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 16, Stereo: false}
	to := audio.Format{SampleRate: 44100, FragmentSize: 1024, Stereo: false}

	// a slow ramp. the tiny fragment size forces many seam crossings per
	// pull; any history discontinuity at a seam shows up as a step far
	// larger than the ramp slope
	r, err := resample.New(from, to, rampSource(from, 0.0001), resample.Lanczos2)
	test.ExpectedSuccess(t, err)

	fillAndCheck(t, r, to.SamplesPerFragment())
	out := fillAndCheck(t, r, to.SamplesPerFragment())

	for i := 1; i < len(out); i++ {
		step := math.Abs(float64(out[i] - out[i-1]))
		if step > 0.001 {
			t.Fatalf("discontinuity at output sample %d (step %f)", i, step)
		}
	}
}

func TestMonoToStereo(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 64, Stereo: false}
	to := audio.Format{SampleRate: 48000, FragmentSize: 128, Stereo: true}

	for _, quality := range []resample.Quality{resample.NearestNeighbour, resample.Lanczos2} {
		r, err := resample.New(from, to, rampSource(from, 0.001), quality)
		test.ExpectedSuccess(t, err)

		out := fillAndCheck(t, r, to.SamplesPerFragment())
		for i := 0; i < len(out); i += 2 {
			test.ApproxEquate(t, float64(out[i]), float64(out[i+1]), 0.0)
		}
	}
}

func TestUnrecognisedQuality(t *testing.T) {
	from := audio.Format{SampleRate: 31400, FragmentSize: 64, Stereo: false}
	to := audio.Format{SampleRate: 48000, FragmentSize: 128, Stereo: true}

	_, err := resample.New(from, to, constantSource(from, 0), resample.Quality(99))
	test.ExpectedFailure(t, err)

	_, err = resample.ParseQuality("sinc256")
	test.ExpectedFailure(t, err)

	q, err := resample.ParseQuality("lanczos3")
	test.ExpectedSuccess(t, err)
	test.Equate(t, q.String(), "Quality 3, Lanczos (a = 3)")
}
