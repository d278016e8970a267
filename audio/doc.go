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

// Package audio contains the types that carry sound from the emulation core
// to the host sound device. The emulation pushes fixed size fragments of
// float32 samples into a Queue. The sound package dequeues fragments from the
// other end, on the device thread, and resamples them to whatever format the
// host device was opened with.
//
// The Queue is the only point of contact between the two sides. Fragment
// buffers are exchanged rather than copied. The producer fills a buffer it
// has been given, swaps it for a fresh one with Enqueue(), and the consumer
// hands its previous buffer back with every call to Dequeue().
package audio
