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

// Package sdldrv implements the host.Driver interface with SDL.
//
// SDL's C callback API is not usable from Go so the callback contract is
// reproduced with SDL's queueing API: a feeder goroutine owned by the
// device invokes the callback whenever the driver-side queue runs below one
// buffer's worth of samples and queues the result. From the sound package's
// point of view the behaviour is the same: the callback is called on a
// thread it does not own, at a cadence set by the device.
package sdldrv

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/host"
	"github.com/sennett/magpie2600/logger"
)

// target depth of the driver-side queue, in device buffers. two buffers is
// enough slack to ride out scheduling jitter of the feeder goroutine
// without adding noticeable latency
const queueDepth = 2

var initOnce sync.Once
var initErr error

func initAudio() error {
	initOnce.Do(func() {
		initErr = sdl.InitSubSystem(sdl.INIT_AUDIO)
	})
	return initErr
}

// Driver implements the host.Driver interface.
type Driver struct{}

// Devices implements the host.Driver interface.
func (drv Driver) Devices() []string {
	devices := []string{"Default"}

	if err := initAudio(); err != nil {
		logger.Logf("sdl", "failed to initialise SDL audio: %v", err)
		return devices
	}

	n := sdl.GetNumAudioDevices(false)
	for i := 0; i < n; i++ {
		devices = append(devices, sdl.GetAudioDeviceName(i, false))
	}

	return devices
}

// Open implements the host.Driver interface.
func (drv Driver) Open(device string, desired audio.Format, callback host.Callback) (host.Device, audio.Format, error) {
	if err := initAudio(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("sdl: %w", err)
	}

	// Devices() lists the system default under the name "Default". SDL has
	// no device of that name; it wants the empty string
	if device == "Default" {
		device = ""
	}

	want := &sdl.AudioSpec{
		Freq:     int32(desired.SampleRate),
		Format:   sdl.AUDIO_F32SYS,
		Channels: uint8(desired.ChannelCount()),
		Samples:  uint16(desired.FragmentSize),
	}

	var got sdl.AudioSpec
	id, err := sdl.OpenAudioDevice(device, false, want, &got, sdl.AUDIO_ALLOW_FREQUENCY_CHANGE)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("sdl: %w", err)
	}

	obtained := audio.Format{
		SampleRate:   int(got.Freq),
		FragmentSize: int(got.Samples),
		Stereo:       got.Channels > 1,
	}

	d := &sdlDevice{
		id:       id,
		callback: callback,
		spec:     obtained,
		buffer:   make([]float32, obtained.SamplesPerFragment()),
		raw:      make([]byte, obtained.SamplesPerFragment()*4),
		quit:     make(chan bool),
		done:     make(chan bool),
	}
	d.paused.Store(true)

	go d.feed()

	return d, obtained, nil
}

type sdlDevice struct {
	id       sdl.AudioDeviceID
	callback host.Callback
	spec     audio.Format

	buffer []float32
	raw    []byte

	// held by the feeder goroutine around each callback invocation so that
	// Pause(true) can wait out an in-flight callback
	inflight sync.Mutex

	paused atomic.Bool
	quit   chan bool
	done   chan bool
}

// feed runs on its own goroutine for the lifetime of the device. this is
// the thread the host.Callback contract talks about.
func (d *sdlDevice) feed() {
	defer close(d.done)

	// a quarter of a buffer's play time. short enough that the queue never
	// drains between polls
	tick := time.Second * time.Duration(d.spec.FragmentSize) / time.Duration(d.spec.SampleRate) / 4
	if tick < time.Millisecond {
		tick = time.Millisecond
	}

	limit := uint32(queueDepth * len(d.raw))

	for {
		select {
		case <-d.quit:
			return
		case <-time.After(tick):
		}

		if d.paused.Load() {
			continue
		}

		if sdl.GetQueuedAudioSize(d.id) >= limit {
			continue
		}

		d.inflight.Lock()
		if d.paused.Load() {
			d.inflight.Unlock()
			continue
		}

		d.callback(d.buffer)

		for i, v := range d.buffer {
			bits := math.Float32bits(v)
			d.raw[i*4] = byte(bits)
			d.raw[i*4+1] = byte(bits >> 8)
			d.raw[i*4+2] = byte(bits >> 16)
			d.raw[i*4+3] = byte(bits >> 24)
		}

		if err := sdl.QueueAudio(d.id, d.raw); err != nil {
			logger.Logf("sdl", "queueing audio: %v", err)
		}
		d.inflight.Unlock()
	}
}

// Pause implements the host.Device interface.
func (d *sdlDevice) Pause(pause bool) {
	d.paused.Store(pause)
	if pause {
		// wait out an in-flight callback. the paused flag is already set so
		// the feeder cannot start another
		d.inflight.Lock()
		d.inflight.Unlock()
	}
	sdl.PauseAudioDevice(d.id, pause)
}

// Close implements the host.Device interface.
func (d *sdlDevice) Close() {
	close(d.quit)
	<-d.done
	sdl.ClearQueuedAudio(d.id)
	sdl.CloseAudioDevice(d.id)
}
