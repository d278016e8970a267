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
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/host"
	"github.com/sennett/magpie2600/audio/resample"
	"github.com/sennett/magpie2600/logger"
)

const logTag = "sound"

// the volume factor is read by the realtime callbacks of both the main
// pipeline and the clip player, without locking. it is written only from the
// control thread. a callback that runs concurrently with a write may use the
// previous value for one buffer's worth of samples, which is inaudible.
var volumeFactor atomic.Uint32

func currentVolumeFactor() float32 {
	return math.Float32frombits(volumeFactor.Load())
}

func storeVolumeFactor(f float32) {
	volumeFactor.Store(math.Float32bits(f))
}

// TimingInfo is the emulation timing information required when opening the
// sound pipeline. The timing package provides a concrete implementation.
type TimingInfo interface {
	AudioSampleRate() int
	PrebufferFragmentCount() int
	ClipSpeed() float64
}

// Tap receives the samples leaving the realtime callback, after resampling
// and volume adjustment. Used by the wavwriter package to record pipeline
// output. A Tap runs on the realtime thread and should return quickly.
type Tap interface {
	Write(data []float32)
}

// Sound connects a fragment queue to a host audio device.
type Sound struct {
	drv   host.Driver
	prefs *Preferences
	clip  *ClipPlayer

	// crit protects the control surface. the realtime callback never takes
	// it; everything the callback reads is swapped atomically while the
	// device is paused
	crit sync.Mutex

	device  host.Device
	granted audio.Format

	// the configuration the device was opened with. Open() only reopens the
	// device when one of these changes
	openedDevice string
	openedRate   int
	openedFrag   int
	openedStereo bool

	queue *audio.Queue
	tim   TimingInfo

	// the fragment most recently dequeued by the next-fragment closure. the
	// closure updates it from the realtime thread; the control thread reads
	// it only while the device is paused or closed, when it reclaims the
	// buffer for the queue's pool
	held []float32

	resampler atomic.Pointer[resample.Resampler]
	tap       atomic.Pointer[Tap]
	underruns atomic.Int64

	volume  int
	muted   bool
	enabled bool
	paused  bool
}

// NewSound is the preferred method of initialisation for the Sound type. The
// device is not opened until the first call to Open().
func NewSound(drv host.Driver, prf *Preferences) *Sound {
	s := &Sound{
		drv:   drv,
		prefs: prf,
		clip:  NewClipPlayer(drv),
	}
	s.volume = prf.Volume.Get().(int)
	s.enabled = prf.Enabled.Get().(bool)
	s.updateVolumeFactor()
	return s
}

// Open attaches the fragment queue to the host device, (re)building the
// resampler between the queue's sample rate and the device's granted rate.
//
// Open can be called repeatedly. The device is only closed and reopened if
// the device selection, sample rate, fragment size or channel count has
// changed since the previous call. A device error is not fatal: the pipeline
// stays uninitialised, the callback produces silence and all control
// operations are no-ops until a successful reopen.
func (s *Sound) Open(queue *audio.Queue, tim TimingInfo) error {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.open(queue, tim)
}

func (s *Sound) open(queue *audio.Queue, tim TimingInfo) error {
	// pause the device before anything is replaced. the outgoing
	// next-fragment closure may still hold a fragment; it goes back to the
	// pool of the queue it came from or the free list runs dry and the
	// producer side fails
	if s.device != nil {
		s.device.Pause(true)
	}
	s.releaseHeld()

	s.queue = queue
	s.tim = tim

	// when sound is disabled the emulation must still run at full speed, so
	// the producer's overflows are silently absorbed
	queue.IgnoreOverflows(!s.enabled)

	if !s.enabled {
		s.resampler.Store(nil)
		logger.Log(logTag, "sound disabled")
		return nil
	}

	devName := s.prefs.Device.Get().(string)
	rate := s.prefs.SampleRate.Get().(int)
	frag := s.prefs.FragmentSize.Get().(int)
	stereo := s.prefs.Stereo.Get().(bool)

	if s.device == nil || devName != s.openedDevice || rate != s.openedRate ||
		frag != s.openedFrag || stereo != s.openedStereo {
		if err := s.openDevice(devName, rate, frag, stereo); err != nil {
			s.resampler.Store(nil)
			logger.Logf(logTag, "device not opened: %v", err)
			return fmt.Errorf("sound: %w", err)
		}
	}

	// devices open paused and the device pause above covers the reuse case,
	// so the resampler swap cannot race a callback
	if err := s.initResampler(tim); err != nil {
		s.resampler.Store(nil)
		logger.Logf(logTag, "resampler: %v", err)
		return fmt.Errorf("sound: %w", err)
	}

	s.clip.SetSpeed(tim.ClipSpeed())
	s.updateVolumeFactor()

	if !s.paused {
		s.device.Pause(false)
	}

	logger.Log(logTag, s.about())

	return nil
}

func (s *Sound) openDevice(devName string, rate int, frag int, stereo bool) error {
	if s.device != nil {
		s.device.Close()
		s.device = nil
	}

	desired := audio.Format{
		SampleRate:   rate,
		FragmentSize: frag,
		Stereo:       stereo,
	}

	dev, granted, err := s.drv.Open(devName, desired, s.serve)
	if err != nil {
		return err
	}

	s.device = dev
	s.granted = granted
	s.openedDevice = devName
	s.openedRate = rate
	s.openedFrag = frag
	s.openedStereo = stereo

	logger.Logf(logTag, "device opened: %s", granted.String())

	return nil
}

// releaseHeld returns the fragment held by the next-fragment closure to its
// queue. Called with the critical section locked and only while the device
// is paused or closed, when the closure cannot run.
func (s *Sound) releaseHeld() {
	if s.held != nil && s.queue != nil {
		s.queue.Release(s.held)
	}
	s.held = nil
}

// initResampler builds the resampler and the next-fragment closure that
// feeds it. The closure embodies the underrun policy: after a starvation
// event no fragment is consumed until the queue has refilled to the
// prebuffer threshold. The pipeline also starts in the underrun state so
// that playback does not begin until the queue has filled once.
func (s *Sound) initResampler(tim TimingInfo) error {
	queue := s.queue
	prebuffer := tim.PrebufferFragmentCount()

	// the underrun flag lives on the realtime thread only. the dequeued
	// fragment is tracked on the Sound instance so that a replaced closure
	// does not take the buffer with it
	underrun := true

	next := func() []float32 {
		if underrun && queue.Size() < prebuffer {
			return nil
		}

		f := queue.Dequeue(s.held)
		if f == nil {
			if !underrun {
				s.underruns.Add(1)
			}
			underrun = true
			return nil
		}

		s.held = f
		underrun = false
		return f
	}

	quality, err := resample.ParseQuality(s.prefs.Quality.Get().(string))
	if err != nil {
		return err
	}

	r, err := resample.New(queue.Format(), s.granted, next, quality)
	if err != nil {
		return err
	}

	s.resampler.Store(&r)

	return nil
}

// serve is the realtime callback. It runs on the driver's own thread and
// must not block on the control surface.
func (s *Sound) serve(out []float32) {
	r := s.resampler.Load()
	if r == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}

	(*r).FillFragment(out)

	// volume is applied after resampling
	v := currentVolumeFactor()
	if v != 1.0 {
		for i := range out {
			out[i] *= v
		}
	}

	if t := s.tap.Load(); t != nil {
		(*t).Write(out)
	}
}

// the volume factor folds the mute and enabled states into a single value
// for the callbacks.
func (s *Sound) updateVolumeFactor() {
	if s.muted || !s.enabled {
		storeVolumeFactor(0)
		return
	}
	storeVolumeFactor(float32(s.volume) / 100)
}

// SetEnabled enables or disables sound output. Disabling does not close the
// device; the callback produces silence and the fragment queue absorbs
// producer overflows so the emulation can continue at full speed. Enabling
// rebuilds the pipeline immediately, opening the device if a previous Open()
// ran while sound was disabled.
func (s *Sound) SetEnabled(enabled bool) {
	s.crit.Lock()
	defer s.crit.Unlock()

	if s.enabled == enabled {
		return
	}
	s.enabled = enabled
	s.prefs.Enabled.Set(enabled)
	s.updateVolumeFactor()

	logger.Logf(logTag, "enabled: %v", enabled)

	if s.queue != nil {
		if err := s.open(s.queue, s.tim); err != nil {
			logger.Logf(logTag, "enable: %v", err)
		}
	}
}

// SetVolume sets the volume level. Volume is expressed as a percentage and
// is clamped to the range 0 to 100.
func (s *Sound) SetVolume(volume int) {
	s.crit.Lock()
	defer s.crit.Unlock()
	s.setVolume(volume)
}

func (s *Sound) setVolume(volume int) {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}

	s.volume = volume
	s.prefs.Volume.Set(volume)
	s.updateVolumeFactor()

	logger.Logf(logTag, "volume: %d", volume)
}

// AdjustVolume changes the volume by twice the direction value, clamped to
// the valid range.
func (s *Sound) AdjustVolume(direction int) {
	s.crit.Lock()
	defer s.crit.Unlock()
	s.setVolume(s.volume + direction*2)
}

// Volume returns the current volume level.
func (s *Sound) Volume() int {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.volume
}

// Mute silences output without changing the volume level.
func (s *Sound) Mute(muted bool) {
	s.crit.Lock()
	defer s.crit.Unlock()

	s.muted = muted
	s.updateVolumeFactor()
}

// ToggleMute flips the mute state, returning the new state.
func (s *Sound) ToggleMute() bool {
	s.crit.Lock()
	defer s.crit.Unlock()

	s.muted = !s.muted
	s.updateVolumeFactor()
	return s.muted
}

// Pause stops and resumes the device, including any playing clip.
func (s *Sound) Pause(paused bool) {
	s.crit.Lock()
	defer s.crit.Unlock()

	s.paused = paused
	if s.device != nil {
		s.device.Pause(paused)
	}
	s.clip.Pause(paused)
}

// SetTap installs a tap on the realtime callback. A nil value removes the
// current tap.
func (s *Sound) SetTap(t Tap) {
	if t == nil {
		s.tap.Store(nil)
		return
	}
	s.tap.Store(&t)
}

// Underruns returns the number of starvation events since the pipeline was
// opened.
func (s *Sound) Underruns() int64 {
	return s.underruns.Load()
}

// Prefs returns the preferences instance the Sound was created with.
func (s *Sound) Prefs() *Preferences {
	return s.prefs
}

// Format returns the format granted by the device on the last successful
// Open(). The zero Format is returned if no device is open.
func (s *Sound) Format() audio.Format {
	s.crit.Lock()
	defer s.crit.Unlock()
	if s.device == nil {
		return audio.Format{}
	}
	return s.granted
}

// PlayClip plays a one-shot audio asset through the clip player. Returns
// false if the asset cannot be loaded or the offset is out of range.
func (s *Sound) PlayClip(path string, offsetFrames int, lengthFrames int) bool {
	return s.clip.Play(path, s.prefs.Device.Get().(string), offsetFrames, lengthFrames)
}

// StopClip stops clip playback and releases the clip device.
func (s *Sound) StopClip() {
	s.clip.Stop()
}

// ClipSize returns the number of clip frames left to play.
func (s *Sound) ClipSize() int {
	return s.clip.Size()
}

// SetClipSpeed adjusts clip playback speed directly. Open() sets it from the
// timing information; this is for callers that use the clip player without
// opening the main pipeline.
func (s *Sound) SetClipSpeed(speed float64) {
	s.clip.SetSpeed(speed)
}

// About returns a human readable description of the current pipeline state.
func (s *Sound) About() string {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.about()
}

func (s *Sound) about() string {
	if !s.enabled {
		return "Sound disabled"
	}
	if s.device == nil {
		return "Sound enabled:\n  No audio device"
	}

	devName := s.openedDevice
	if devName == "" {
		devName = "Default"
	}

	preset := s.prefs.Preset.Get().(string)
	if ps, err := ParsePreset(preset); err == nil {
		preset = ps.String()
	}

	resampling := s.prefs.Quality.Get().(string)
	if q, err := resample.ParseQuality(resampling); err == nil {
		resampling = q.String()
	}

	sb := strings.Builder{}
	sb.WriteString("Sound enabled:\n")
	sb.WriteString(fmt.Sprintf("  Volume:   %d%%\n", s.volume))
	sb.WriteString(fmt.Sprintf("  Device:   %s\n", devName))
	sb.WriteString(fmt.Sprintf("  Channels: %d\n", s.granted.ChannelCount()))
	sb.WriteString(fmt.Sprintf("  Preset:   %s\n", preset))
	sb.WriteString(fmt.Sprintf("    Fragment size: %d frames\n", s.granted.FragmentSize))
	sb.WriteString(fmt.Sprintf("    Sample rate:   %dHz\n", s.granted.SampleRate))
	sb.WriteString(fmt.Sprintf("    Resampling:    %s\n", resampling))
	sb.WriteString(fmt.Sprintf("    Headroom:      %d fragments\n", s.prefs.Headroom.Get().(int)))
	sb.WriteString(fmt.Sprintf("    Buffer size:   %d fragments", s.prefs.BufferSize.Get().(int)))
	return sb.String()
}

// Close the pipeline, the device and the clip player. The Sound instance
// can be reused with a subsequent call to Open().
func (s *Sound) Close() {
	s.crit.Lock()
	defer s.crit.Unlock()

	s.resampler.Store(nil)

	if s.device != nil {
		s.device.Close()
		s.device = nil
	}

	s.releaseHeld()
	s.queue = nil
	s.tim = nil

	s.clip.Close()
}
