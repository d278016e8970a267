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

// Package host abstracts the host machine's audio driver. The sound package
// opens devices through the Driver interface and is fed through a Callback
// invoked on a thread owned by the driver, not by the emulation.
//
// Two implementations exist, in the sdldrv and otodrv packages. Unit tests
// substitute their own.
package host

import "github.com/sennett/magpie2600/audio"

// Callback is invoked by the driver whenever it needs the next buffer of
// samples. out is interleaved float32 in the format returned by Open() and
// must be filled completely.
//
// The callback runs on the driver's own thread, concurrently with the rest
// of the application. It must not block and it must not panic.
type Callback func(out []float32)

// Device is an open audio device.
type Device interface {
	// Pause or resume callback invocation. while paused the driver plays
	// silence. no callback is in flight once Pause(true) returns, so the
	// caller can safely replace the state the callback reads
	Pause(pause bool)

	// Close the device. no callback is in flight once Close returns
	Close()
}

// Driver enumerates and opens the host's audio devices.
type Driver interface {
	// Devices returns the selectable output devices. index 0 is always the
	// system default
	Devices() []string

	// Open a device by name (the empty string selects the system default).
	// desired is a hint; the returned Format is what the device was actually
	// opened with and may differ in sample rate. A device opens paused;
	// call Pause(false) to start callback delivery.
	Open(device string, desired audio.Format, callback Callback) (Device, audio.Format, error)
}
