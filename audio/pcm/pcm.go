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

// Package pcm loads audio files and presents them as normalised floating
// point PCM data. WAV and MP3 files are supported.
package pcm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/sennett/magpie2600/logger"
)

const logTag = "pcm"

// PCM is the result of loading an audio file. Data is interleaved and
// normalised to the range -1.0 to 1.0.
type PCM struct {
	SampleRate int
	Channels   int
	TotalTime  float64 // in seconds
	Data       []float32
}

// NumFrames returns the number of sample frames in the PCM data.
func (p *PCM) NumFrames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Data) / p.Channels
}

// Load an audio file. The decoder is chosen by file extension.
func Load(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcm: %w", err)
	}
	defer f.Close()

	var p *PCM

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		p, err = loadWAV(f)
	case ".mp3":
		p, err = loadMP3(f)
	default:
		return nil, fmt.Errorf("pcm: unsupported file type (%s)", filepath.Ext(path))
	}

	if err != nil {
		return nil, err
	}

	logger.Logf(logTag, "%s: %dHz, %d channel(s), %.02fs", filepath.Base(path), p.SampleRate, p.Channels, p.TotalTime)

	return p, nil
}

func loadWAV(f io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(f)
	if dec == nil {
		return nil, fmt.Errorf("pcm: wav: error decoding")
	}

	if !dec.IsValidFile() {
		return nil, fmt.Errorf("pcm: wav: not a valid wav file")
	}

	// load all data at once
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("pcm: wav: %w", err)
	}

	// AsFloat32Buffer() does not normalise so we do it ourselves, scaling by
	// the source bit depth
	scale := float32(int(1) << (dec.BitDepth - 1))
	data := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		data[i] = float32(v) / scale
	}

	dur, err := dec.Duration()
	if err != nil {
		return nil, fmt.Errorf("pcm: wav: %w", err)
	}

	return &PCM{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		TotalTime:  dur.Seconds(),
		Data:       data,
	}, nil
}

func loadMP3(f io.Reader) (*PCM, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("pcm: mp3: %w", err)
	}

	// the go-mp3 stream is always 16bit (little endian) 2 channels, even if
	// the source is single channel MP3. a sample frame is therefore always
	// four bytes
	data := make([]float32, 0, 1024)

	err = nil
	chunk := make([]byte, 4096)
	for err != io.EOF {
		var chunkLen int
		chunkLen, err = dec.Read(chunk)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("pcm: mp3: %w", err)
		}

		for i := 0; i+1 < chunkLen; i += 2 {
			// little endian 16 bit sample, interpreted as two's complement
			v := int16(uint16(chunk[i]) | (uint16(chunk[i+1]) << 8))
			data = append(data, float32(v)/32768.0)
		}
	}

	rate := int(dec.SampleRate())

	return &PCM{
		SampleRate: rate,
		Channels:   2,
		TotalTime:  float64(len(data)/2) / float64(rate),
		Data:       data,
	}, nil
}
