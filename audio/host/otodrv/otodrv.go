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

// Package otodrv implements the host.Driver interface with the oto library.
// oto is a natural fit for the callback contract: a player pulls samples
// through an io.Reader on a thread oto owns, which is exactly where the
// host.Callback wants to be invoked.
//
// oto allows one context per process, created with a fixed sample rate and
// channel count. The first Open decides that format; any later device
// (most likely the clip channel) is opened against the same context and
// receives the context's format as its obtained format, whatever it asked
// for. Device enumeration is not available, so the driver reports a single
// default device.
package otodrv

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/host"
)

var crit sync.Mutex
var ctx *oto.Context
var ctxFormat audio.Format

// Driver implements the host.Driver interface.
type Driver struct{}

// Devices implements the host.Driver interface.
func (drv Driver) Devices() []string {
	return []string{"Default"}
}

// Open implements the host.Driver interface.
func (drv Driver) Open(device string, desired audio.Format, callback host.Callback) (host.Device, audio.Format, error) {
	crit.Lock()
	defer crit.Unlock()

	if ctx == nil {
		opts := &oto.NewContextOptions{
			SampleRate:   desired.SampleRate,
			ChannelCount: desired.ChannelCount(),
			Format:       oto.FormatFloat32LE,
			BufferSize:   2 * time.Second * time.Duration(desired.FragmentSize) / time.Duration(desired.SampleRate),
		}

		c, ready, err := oto.NewContext(opts)
		if err != nil {
			return nil, audio.Format{}, fmt.Errorf("oto: %w", err)
		}
		<-ready

		ctx = c
		ctxFormat = desired
	}

	d := &otoDevice{
		callback: callback,
		spec:     ctxFormat,
	}
	d.player = ctx.NewPlayer(d)

	return d, ctxFormat, nil
}

type otoDevice struct {
	callback host.Callback
	spec     audio.Format
	player   *oto.Player
	buffer   []float32

	// held around each Read so that Pause(true) can wait out an in-flight
	// callback
	inflight sync.Mutex
}

// Read implements the io.Reader interface. This is the realtime callback:
// oto calls it on its own thread whenever the device needs more samples.
func (d *otoDevice) Read(p []byte) (int, error) {
	d.inflight.Lock()
	defer d.inflight.Unlock()

	n := len(p) / 4

	if len(d.buffer) < n {
		// grown once, on the first call or after oto changes its read size.
		// steady state performs no allocation
		d.buffer = make([]float32, n)
	}
	samples := d.buffer[:n]

	d.callback(samples)

	for i, v := range samples {
		bits := math.Float32bits(v)
		p[i*4] = byte(bits)
		p[i*4+1] = byte(bits >> 8)
		p[i*4+2] = byte(bits >> 16)
		p[i*4+3] = byte(bits >> 24)
	}

	return n * 4, nil
}

// Pause implements the host.Device interface.
func (d *otoDevice) Pause(pause bool) {
	if pause {
		d.player.Pause()

		// oto's Pause does not join a Read already in progress
		d.inflight.Lock()
		d.inflight.Unlock()
	} else {
		d.player.Play()
	}
}

// Close implements the host.Device interface.
func (d *otoDevice) Close() {
	d.player.Close()
}
