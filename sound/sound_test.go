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
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/host"
	"github.com/sennett/magpie2600/hardware/timing"
	"github.com/sennett/magpie2600/test"
)

type stubDevice struct {
	paused bool
	closed bool
}

func (d *stubDevice) Pause(state bool) {
	d.paused = state
}

func (d *stubDevice) Close() {
	d.closed = true
}

// stubDriver grants whatever format is asked of it and hands the callback
// back to the test for manual invocation.
type stubDriver struct {
	fail   bool
	opens  int
	cb     host.Callback
	device *stubDevice
}

func (d *stubDriver) Devices() []string {
	return []string{"Default"}
}

func (d *stubDriver) Open(_ string, desired audio.Format, cb host.Callback) (host.Device, audio.Format, error) {
	if d.fail {
		return nil, audio.Format{}, fmt.Errorf("stub: no device")
	}
	d.opens++
	d.cb = cb
	d.device = &stubDevice{paused: true}
	return d.device, desired, nil
}

func newTestPrefs(t *testing.T) *Preferences {
	t.Helper()
	wd, err := os.Getwd()
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	p, err := NewPreferences()
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, p.Quality.Set("nearest"))
	test.ExpectedSuccess(t, p.SampleRate.Set(44100))
	test.ExpectedSuccess(t, p.FragmentSize.Set(32))
	test.ExpectedSuccess(t, p.Volume.Set(100))
	return p
}

// fill one fragment with a constant value and enqueue it, returning the next
// buffer for the producer.
func produce(q *audio.Queue, buf []float32, v float32) []float32 {
	if buf == nil {
		buf, _ = q.Enqueue(nil)
	}
	for i := range buf {
		buf[i] = v
	}
	buf, _ = q.Enqueue(buf)
	return buf
}

func TestVolumeClamp(t *testing.T) {
	prf := newTestPrefs(t)
	snd := NewSound(&stubDriver{}, prf)

	snd.SetVolume(150)
	test.Equate(t, snd.Volume(), 100)

	snd.SetVolume(-10)
	test.Equate(t, snd.Volume(), 0)

	// adjustment steps by two
	snd.AdjustVolume(1)
	test.Equate(t, snd.Volume(), 2)
	snd.AdjustVolume(1)
	test.Equate(t, snd.Volume(), 4)
	snd.AdjustVolume(-1)
	test.Equate(t, snd.Volume(), 2)

	// adjustment clamps too
	snd.SetVolume(99)
	snd.AdjustVolume(1)
	test.Equate(t, snd.Volume(), 100)

	// a larger direction scales the step
	snd.SetVolume(0)
	snd.AdjustVolume(3)
	test.Equate(t, snd.Volume(), 6)
	snd.AdjustVolume(-2)
	test.Equate(t, snd.Volume(), 2)
}

func TestCallbackVolumeAndMute(t *testing.T) {
	prf := newTestPrefs(t)
	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 6)
	tim := timing.New(timing.NTSC, 1)
	test.ExpectedSuccess(t, snd.Open(q, tim))

	var buf []float32
	for i := 0; i < 4; i++ {
		buf = produce(q, buf, 0.5)
	}

	out := make([]float32, 16)

	drv.cb(out)
	test.ApproxEquate(t, float64(out[0]), 0.5, 0.0001)

	snd.SetVolume(50)
	drv.cb(out)
	test.ApproxEquate(t, float64(out[0]), 0.25, 0.0001)

	// mute silences without changing the volume level
	snd.Mute(true)
	drv.cb(out)
	test.Equate(t, out[0], float32(0))
	test.Equate(t, snd.Volume(), 50)

	test.Equate(t, snd.ToggleMute(), false)
	drv.cb(out)
	test.ApproxEquate(t, float64(out[0]), 0.25, 0.0001)
}

func TestUnderrunHysteresis(t *testing.T) {
	prf := newTestPrefs(t)
	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 6)

	// playback does not resume after an underrun until three fragments are
	// ready
	tim := timing.New(timing.NTSC, 3)
	test.ExpectedSuccess(t, snd.Open(q, tim))

	// sixteen samples is eight stereo frames: exactly one fragment per
	// callback at matching rates
	out := make([]float32, 16)

	// the pipeline starts in the underrun state. nothing is consumed until
	// the prebuffer threshold is reached
	drv.cb(out)
	test.Equate(t, out[0], float32(0))
	test.Equate(t, snd.Underruns(), int64(0))

	var buf []float32
	buf = produce(q, buf, 0.5)
	drv.cb(out)
	test.Equate(t, q.Size(), 1)
	test.Equate(t, out[0], float32(0))

	buf = produce(q, buf, 0.5)
	drv.cb(out)
	test.Equate(t, q.Size(), 2)
	test.Equate(t, out[0], float32(0))

	// third fragment reaches the threshold. consumption resumes
	buf = produce(q, buf, 0.5)
	drv.cb(out)
	test.Equate(t, q.Size(), 2)
	test.ApproxEquate(t, float64(out[0]), 0.5, 0.0001)

	// drain the queue and starve the pipeline
	drv.cb(out)
	drv.cb(out)
	test.Equate(t, q.Size(), 0)

	drv.cb(out)
	test.Equate(t, snd.Underruns(), int64(1))

	// a starved nearest resampler holds the last sample rather than
	// snapping to zero
	test.ApproxEquate(t, float64(out[0]), 0.5, 0.0001)

	// one or two fragments are not enough to resume
	buf = produce(q, buf, 0.25)
	drv.cb(out)
	test.Equate(t, q.Size(), 1)

	buf = produce(q, buf, 0.25)
	drv.cb(out)
	test.Equate(t, q.Size(), 2)

	buf = produce(q, buf, 0.25)
	drv.cb(out)
	test.Equate(t, q.Size(), 2)
	test.ApproxEquate(t, float64(out[0]), 0.25, 0.0001)
	test.Equate(t, snd.Underruns(), int64(1))
}

func TestReopenOnlyOnChange(t *testing.T) {
	prf := newTestPrefs(t)
	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 6)
	tim := timing.New(timing.NTSC, 1)

	test.ExpectedSuccess(t, snd.Open(q, tim))
	test.Equate(t, drv.opens, 1)

	// same configuration: the device is kept
	test.ExpectedSuccess(t, snd.Open(q, tim))
	test.Equate(t, drv.opens, 1)

	// changed sample rate: the device is reopened
	test.ExpectedSuccess(t, prf.SampleRate.Set(48000))
	test.ExpectedSuccess(t, snd.Open(q, tim))
	test.Equate(t, drv.opens, 2)
}

func TestReopenWhilePlaying(t *testing.T) {
	prf := newTestPrefs(t)
	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 2)
	tim := timing.New(timing.NTSC, 1)
	test.ExpectedSuccess(t, snd.Open(q, tim))

	out := make([]float32, 16)

	// the callback leaves the pipeline holding the dequeued fragment
	var buf []float32
	buf = produce(q, buf, 0.5)
	drv.cb(out)
	test.ApproxEquate(t, float64(out[0]), 0.5, 0.0001)

	// quality changes reopen the pipeline on the live queue. the held
	// fragment must return to the pool each time or the producer eventually
	// finds the free list empty. cycle well past the pool size
	for i := 0; i < 8; i++ {
		test.ExpectedSuccess(t, prf.Quality.Set("lanczos2"))
		test.ExpectedSuccess(t, snd.Open(q, tim))
		test.ExpectedSuccess(t, prf.Quality.Set("nearest"))
		test.ExpectedSuccess(t, snd.Open(q, tim))

		buf = produce(q, buf, 0.5)
		drv.cb(out)
		test.ApproxEquate(t, float64(out[0]), 0.5, 0.0001)
	}

	// the device itself was never reopened
	test.Equate(t, drv.opens, 1)
}

func TestEnableAfterDisabledOpen(t *testing.T) {
	prf := newTestPrefs(t)
	test.ExpectedSuccess(t, prf.Enabled.Set(false))

	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 6)
	tim := timing.New(timing.NTSC, 1)
	test.ExpectedSuccess(t, snd.Open(q, tim))
	test.Equate(t, drv.opens, 0)

	// enabling opens the device and resumes output without another Open()
	// from the caller
	snd.SetEnabled(true)
	test.Equate(t, drv.opens, 1)

	var buf []float32
	buf = produce(q, buf, 0.5)

	out := make([]float32, 16)
	drv.cb(out)
	test.ApproxEquate(t, float64(out[0]), 0.5, 0.0001)

	// disabling silences the callback immediately
	snd.SetEnabled(false)
	drv.cb(out)
	test.Equate(t, out[0], float32(0))
}

func TestDisabled(t *testing.T) {
	prf := newTestPrefs(t)
	test.ExpectedSuccess(t, prf.Enabled.Set(false))

	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 2)
	tim := timing.New(timing.NTSC, 1)

	// no device is opened and no error is returned
	test.ExpectedSuccess(t, snd.Open(q, tim))
	test.Equate(t, drv.opens, 0)
	test.Equate(t, snd.About(), "Sound disabled")

	// the producer can run ahead of the (absent) consumer indefinitely
	var buf []float32
	for i := 0; i < 10; i++ {
		buf = produce(q, buf, 0.5)
	}
	test.Equate(t, q.Size(), 2)
	test.Equate(t, q.Overflows(), 8)
}

func TestDeviceFailureIsNotFatal(t *testing.T) {
	prf := newTestPrefs(t)
	drv := &stubDriver{fail: true}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 6)
	tim := timing.New(timing.NTSC, 1)

	test.ExpectedFailure(t, snd.Open(q, tim))

	// control operations are safe on the uninitialised pipeline
	snd.SetVolume(50)
	snd.Mute(true)
	snd.Pause(true)
	snd.Close()

	// a later Open on a recovered driver succeeds
	drv.fail = false
	test.ExpectedSuccess(t, snd.Open(q, tim))
	test.Equate(t, drv.opens, 1)
}

func TestAbout(t *testing.T) {
	prf := newTestPrefs(t)
	drv := &stubDriver{}
	snd := NewSound(drv, prf)

	q := audio.NewQueue(audio.Format{SampleRate: 44100, FragmentSize: 8, Stereo: true}, 6)
	tim := timing.New(timing.NTSC, 1)
	test.ExpectedSuccess(t, snd.Open(q, tim))

	about := snd.About()
	for _, want := range []string{
		"Sound enabled:",
		"Volume:   100%",
		"Device:   Default",
		"Channels: 2",
		"Preset:   High quality, medium lag",
		"Fragment size: 32 frames",
		"Sample rate:   44100Hz",
		"Quality 1, nearest neighbour",
	} {
		if !strings.Contains(about, want) {
			t.Errorf("about: missing %q in:\n%s", want, about)
		}
	}
}
