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
	"math"
	"sync"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/host"
	"github.com/sennett/magpie2600/audio/pcm"
	"github.com/sennett/magpie2600/logger"
)

const clipLogTag = "sound: clip"

// fragment size used when opening the clip device. the clip path is not
// latency sensitive
const clipFragmentSize = 512

// ClipPlayer plays one-shot audio assets through its own device, decoupled
// from the main fragment queue and resampler. It shares only the volume
// scalar with the main pipeline.
//
// Decoded assets are cached by path so that replaying the same clip does not
// decode it again. Stop() releases the device but keeps the cache; Close()
// releases everything.
type ClipPlayer struct {
	drv host.Driver

	// crit protects all playback state. the clip callback takes it too;
	// unlike the main pipeline the clip path tolerates a short lock wait
	crit sync.Mutex

	device  host.Device
	granted audio.Format

	cache map[string]*pcm.PCM

	clip      *pcm.PCM
	pos       int // frames consumed from the clip
	remaining int // frames left to play
	speed     float64

	// conversion scratch space, grown as needed and never shrunk, so that
	// steady-state callbacks do not allocate
	scratch []float32
}

// NewClipPlayer is the preferred method of initialisation for the ClipPlayer
// type.
func NewClipPlayer(drv host.Driver) *ClipPlayer {
	return &ClipPlayer{
		drv:   drv,
		cache: make(map[string]*pcm.PCM),
		speed: 1.0,
	}
}

// Play an audio asset from offsetFrames for lengthFrames. A lengthFrames of
// zero means the remainder of the asset. Returns false if the asset cannot
// be loaded, if the offset is beyond the end of the asset, or if the device
// cannot be opened. A failed Play leaves any current playback untouched.
func (cp *ClipPlayer) Play(path string, device string, offsetFrames int, lengthFrames int) bool {
	cp.crit.Lock()
	defer cp.crit.Unlock()

	clip, ok := cp.cache[path]
	if !ok {
		var err error
		clip, err = pcm.Load(path)
		if err != nil {
			logger.Logf(clipLogTag, "%v", err)
			return false
		}
		cp.cache[path] = clip
	}

	total := clip.NumFrames()
	if offsetFrames > total {
		return false
	}

	// open device lazily, against the format of the first clip played
	if cp.device == nil {
		desired := audio.Format{
			SampleRate:   clip.SampleRate,
			FragmentSize: clipFragmentSize,
			Stereo:       clip.Channels == 2,
		}
		dev, granted, err := cp.drv.Open(device, desired, cp.processClip)
		if err != nil {
			logger.Logf(clipLogTag, "device not opened: %v", err)
			return false
		}
		cp.device = dev
		cp.granted = granted
		dev.Pause(false)
	}

	cp.clip = clip
	cp.pos = offsetFrames
	if lengthFrames > 0 && lengthFrames < total-offsetFrames {
		cp.remaining = lengthFrames
	} else {
		cp.remaining = total - offsetFrames
	}

	return true
}

// Stop playback, closing the device. Decoded assets stay cached for the
// next Play(); the conversion scratch space is released.
func (cp *ClipPlayer) Stop() {
	cp.crit.Lock()
	dev := cp.device
	cp.device = nil
	cp.clip = nil
	cp.pos = 0
	cp.remaining = 0
	cp.scratch = nil
	cp.crit.Unlock()

	// the device is closed outside the lock. Close() waits for any callback
	// in flight and the callback needs the lock
	if dev != nil {
		dev.Close()
	}
}

// Pause or resume clip playback. No-op if no device is open.
func (cp *ClipPlayer) Pause(paused bool) {
	cp.crit.Lock()
	dev := cp.device
	cp.crit.Unlock()

	// outside the lock. Pause(true) waits for any callback in flight and the
	// callback needs the lock
	if dev != nil {
		dev.Pause(paused)
	}
}

// SetSpeed adjusts playback speed so that clips recorded against wall-clock
// time stay in sync with emulated time. A speed of 1.0 is unadjusted.
func (cp *ClipPlayer) SetSpeed(speed float64) {
	cp.crit.Lock()
	defer cp.crit.Unlock()
	if speed > 0 {
		cp.speed = speed
	}
}

// Size returns the number of frames left to play.
func (cp *ClipPlayer) Size() int {
	cp.crit.Lock()
	defer cp.crit.Unlock()
	return cp.remaining
}

// Close the device and free the cache and all playback state.
func (cp *ClipPlayer) Close() {
	cp.Stop()

	cp.crit.Lock()
	defer cp.crit.Unlock()
	cp.cache = make(map[string]*pcm.PCM)
}

// processClip is the realtime callback for the clip device. The buffer is
// filled with silence first; clip data, if any remains, is then mixed in at
// the shared volume factor.
func (cp *ClipPlayer) processClip(out []float32) {
	for i := range out {
		out[i] = 0
	}

	cp.crit.Lock()
	defer cp.crit.Unlock()

	if cp.clip == nil || cp.remaining == 0 {
		return
	}

	channels := cp.granted.ChannelCount()
	frames := len(out) / channels

	// fold any difference between the device rate and the clip's native
	// rate into the effective speed
	speed := cp.speed * float64(cp.granted.SampleRate) / float64(cp.clip.SampleRate)

	if speed != 1.0 {
		// consume round(frames/speed) source frames and stretch them back
		// to the requested length. the stretch preserves pitch perceptually
		// because the source is re-rated by the same ratio
		src := int(math.Round(float64(frames) / speed))
		if src < 1 {
			src = 1
		}
		produced := frames
		if src > cp.remaining {
			produced = frames * cp.remaining / src
			src = cp.remaining
		}

		if n := produced * channels; cap(cp.scratch) < n {
			cp.scratch = make([]float32, n)
		}
		buf := cp.scratch[:produced*channels]

		cp.convert(buf, produced, src, channels)
		cp.mix(out, buf)

		cp.pos += src
		cp.remaining -= src
		return
	}

	n := frames
	if n > cp.remaining {
		n = cp.remaining
	}

	if cap(cp.scratch) < n*channels {
		cp.scratch = make([]float32, n*channels)
	}
	buf := cp.scratch[:n*channels]

	cp.convert(buf, n, n, channels)
	cp.mix(out, buf)

	cp.pos += n
	cp.remaining -= n
}

// convert reads src source frames starting at the current position and
// writes dst output frames, linearly interpolating between source frames
// and mapping the clip's channel count onto the device's.
func (cp *ClipPlayer) convert(buf []float32, dst int, src int, channels int) {
	step := float64(src) / float64(dst)

	for i := 0; i < dst; i++ {
		p := float64(i) * step
		f := int(p)
		t := float32(p - float64(f))

		l0, r0 := cp.readFrame(f)
		l1, r1 := l0, r0
		if f+1 < src {
			l1, r1 = cp.readFrame(f + 1)
		}
		l := l0 + (l1-l0)*t
		r := r0 + (r1-r0)*t

		if channels == 1 {
			buf[i] = (l + r) / 2
		} else {
			buf[i*2] = l
			buf[i*2+1] = r
		}
	}
}

// readFrame returns the left and right samples of the frame at the given
// offset from the current position. A mono clip yields the same sample for
// both channels.
func (cp *ClipPlayer) readFrame(offset int) (float32, float32) {
	i := (cp.pos + offset) * cp.clip.Channels
	if i >= len(cp.clip.Data) {
		return 0, 0
	}
	l := cp.clip.Data[i]
	if cp.clip.Channels == 1 {
		return l, l
	}
	return l, cp.clip.Data[i+1]
}

// mix adds the converted clip data into the silence-filled output buffer at
// the shared volume factor.
func (cp *ClipPlayer) mix(out []float32, buf []float32) {
	v := currentVolumeFactor()
	for i := range buf {
		out[i] += buf[i] * v
	}
}
