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

// Package sound connects the emulation's fragment queue to a host audio
// device. It owns the resampling step between the emulated sample rate and
// the rate granted by the device, the volume/mute state, and the underrun
// recovery policy.
//
// The Sound type runs the main pipeline. The ClipPlayer type plays one-shot
// audio assets through an independent device, sharing only the volume
// scalar with the main pipeline.
package sound
