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

// Package wavwriter allows writing of audio data to disk as a WAV file. Note
// that audio data is buffered in memory in its entirety and written to disk
// on EndMixing(). It is therefore probably only suitable for testing
// purposes and short recordings.
package wavwriter

import (
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sennett/magpie2600/logger"
)

// WavWriter records interleaved float32 audio and encodes it as a 16bit PCM
// WAV file. It is safe to call Write() from a different goroutine to the one
// that calls EndMixing(), which makes it suitable as a tap on a realtime
// audio callback.
type WavWriter struct {
	filename   string
	sampleRate int
	channels   int

	crit   sync.Mutex
	buffer []int
}

// New is the preferred method of initialisation for the WavWriter type. The
// sample rate and channel count describe the data that will be passed to
// Write().
func New(filename string, sampleRate int, channels int) (*WavWriter, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("wavwriter: bad format (%dHz, %d channels)", sampleRate, channels)
	}

	aw := &WavWriter{
		filename:   filename,
		sampleRate: sampleRate,
		channels:   channels,
		buffer:     make([]int, 0),
	}

	return aw, nil
}

// Write appends interleaved samples to the recording. Values outside the
// range -1.0 to 1.0 are clipped.
func (aw *WavWriter) Write(data []float32) {
	aw.crit.Lock()
	defer aw.crit.Unlock()

	for _, v := range data {
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		aw.buffer = append(aw.buffer, int(v*32767))
	}
}

// EndMixing writes the buffered samples to disk.
func (aw *WavWriter) EndMixing() (rerr error) {
	aw.crit.Lock()
	defer aw.crit.Unlock()

	f, err := os.Create(aw.filename)
	if err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavwriter: %w", err)
		}
	}()

	enc := wav.NewEncoder(f, aw.sampleRate, 16, aw.channels, 1)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: aw.channels,
			SampleRate:  aw.sampleRate,
		},
		Data:           aw.buffer,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}

	logger.Logf("wavwriter", "%d samples written to %s", len(aw.buffer), aw.filename)

	return nil
}
