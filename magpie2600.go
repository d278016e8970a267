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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bradleyjkemp/memviz"

	"github.com/sennett/magpie2600/audio"
	"github.com/sennett/magpie2600/audio/host"
	"github.com/sennett/magpie2600/audio/host/otodrv"
	"github.com/sennett/magpie2600/audio/host/sdldrv"
	"github.com/sennett/magpie2600/audio/pcm"
	"github.com/sennett/magpie2600/hardware/timing"
	"github.com/sennett/magpie2600/logger"
	"github.com/sennett/magpie2600/modalflag"
	"github.com/sennett/magpie2600/resources"
	"github.com/sennett/magpie2600/sound"
	"github.com/sennett/magpie2600/statsview"
	"github.com/sennett/magpie2600/ui"
	"github.com/sennett/magpie2600/version"
	"github.com/sennett/magpie2600/wavwriter"
)

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.AddSubModes("PLAY", "CLIP", "VERSION")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		os.Exit(0)
	case modalflag.ParseError:
		fmt.Printf("* error: %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "PLAY":
		err = play(md)
	case "CLIP":
		err = clip(md)
	case "VERSION":
		err = showVersion(md)
	}

	if err != nil {
		fmt.Printf("* error in %s mode: %s\n", md.String(), err)
		os.Exit(20)
	}
}

// hostDriver returns the driver for the named backend. An unrecognised name
// is a configuration error.
func hostDriver(backend string) (host.Driver, error) {
	switch backend {
	case "sdl":
		return sdldrv.Driver{}, nil
	case "oto":
		return otodrv.Driver{}, nil
	}
	return nil, fmt.Errorf("unrecognised audio backend (%s)", backend)
}

func play(md *modalflag.Modes) error {
	md.NewMode()

	backend := md.AddString("backend", "", "audio backend: sdl, oto (default from prefs)")
	device := md.AddString("device", "", "output device (default from prefs)")
	tvSpec := md.AddString("tv", "NTSC", "television specification: NTSC, PAL")
	preset := md.AddString("preset", "", "quality/latency preset: lowQualityMediumLag, highQualityMediumLag, highQualityLowLag, ultraQualityMinimalLag, custom")
	volume := md.AddInt("volume", -1, "playback volume 0 to 100 (default from prefs)")
	wav := md.AddBool("wav", false, "record pipeline output to a uniquely named wav file")
	mviz := md.AddString("memviz", "", "dump pipeline object graph to dot file")
	stats := md.AddBool("stats", false, fmt.Sprintf("launch stats server (%v)", statsview.Available()))
	log := md.AddBool("log", false, "echo debugging log to stdout")
	md.AdditionalHelp("The PLAY mode streams an audio file (wav or mp3) through the full pipeline,\nstanding in for the emulation core as the fragment producer.\n\nkeys: [q]uit, [m]ute, [p]ause, volume up [+] and down [-], [a]bout,\nresampling quality [1] [2] [3]")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *log {
		logger.SetEcho(os.Stdout)
	} else {
		logger.SetEcho(nil)
	}

	if len(md.RemainingArgs()) != 1 {
		return fmt.Errorf("a single audio file is required for %s mode", md)
	}

	if *stats {
		statsview.Launch(os.Stdout)
	}

	prefs, err := sound.NewPreferences()
	if err != nil {
		return err
	}

	// command line overrides of saved preferences
	if *backend != "" {
		if err := prefs.Backend.Set(*backend); err != nil {
			return err
		}
	}
	if *device != "" {
		if err := prefs.Device.Set(*device); err != nil {
			return err
		}
	}
	if *preset != "" {
		if err := prefs.Preset.Set(*preset); err != nil {
			return err
		}
	}
	if *volume >= 0 {
		if err := prefs.Volume.Set(*volume); err != nil {
			return err
		}
	}

	// play mode makes no sense with sound disabled. moreover, a disabled
	// pipeline never drains the queue and the producer would never finish
	if err := prefs.Enabled.Set(true); err != nil {
		return err
	}

	tv, err := timing.ParseTV(*tvSpec)
	if err != nil {
		return err
	}
	tim := timing.New(tv, prefs.Headroom.Get().(int))

	drv, err := hostDriver(prefs.Backend.Get().(string))
	if err != nil {
		return err
	}

	src, err := pcm.Load(md.GetArg(0))
	if err != nil {
		return err
	}

	// the decoded file stands in for the emulation core: the queue carries
	// fragments at the file's native rate
	format := audio.Format{
		SampleRate:   src.SampleRate,
		FragmentSize: prefs.FragmentSize.Get().(int),
		Stereo:       src.Channels == 2,
	}
	queue := audio.NewQueue(format, prefs.BufferSize.Get().(int))

	snd := sound.NewSound(drv, prefs)
	defer snd.Close()

	if err := snd.Open(queue, tim); err != nil {
		return err
	}

	if *wav {
		granted := snd.Format()
		name := filepath.Base(md.GetArg(0))
		name = strings.TrimSuffix(name, filepath.Ext(name))
		fn := fmt.Sprintf("%s.wav", resources.UniqueFilename("audio", name))
		aw, err := wavwriter.New(fn, granted.SampleRate, granted.ChannelCount())
		if err != nil {
			return err
		}
		logger.Logf("wavwriter", "recording to %s", fn)
		snd.SetTap(aw)
		defer func() {
			snd.SetTap(nil)
			if err := aw.EndMixing(); err != nil {
				fmt.Printf("* %v\n", err)
			}
		}()
	}

	if *mviz != "" {
		f, err := os.Create(*mviz)
		if err != nil {
			return err
		}
		memviz.Map(f, snd)
		if err := f.Close(); err != nil {
			return err
		}
		logger.Logf("memviz", "pipeline graph written to %s", *mviz)
	}

	done := make(chan bool)
	go produce(queue, src, done)

	return playLoop(snd, queue, tim, done)
}

// produce refragments the decoded file into the queue, standing in for the
// emulation loop. Pacing comes from watching the queue depth rather than
// from a clock: the device callback drains the queue in real time.
func produce(queue *audio.Queue, src *pcm.PCM, done chan bool) {
	format := queue.Format()
	fragDuration := time.Duration(format.FragmentSize) * time.Second / time.Duration(format.SampleRate)

	buf, _ := queue.Enqueue(nil)
	for i := 0; i < len(src.Data); i += len(buf) {
		for queue.Size() >= queue.Capacity() {
			time.Sleep(fragDuration / 2)
		}

		n := copy(buf, src.Data[i:])
		for j := n; j < len(buf); j++ {
			buf[j] = 0
		}

		buf, _ = queue.Enqueue(buf)
	}

	// let the queue drain before signalling completion
	for queue.Size() > 0 {
		time.Sleep(fragDuration)
	}
	done <- true
}

func playLoop(snd *sound.Sound, queue *audio.Queue, tim sound.TimingInfo, done chan bool) error {
	term, err := ui.NewTerm()
	if err != nil {
		return err
	}
	defer term.Restore()

	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)

	term.About(snd.About())
	term.Help("keys: [q]uit, [m]ute, [p]ause, volume [+]/[-], [a]bout, quality [1]/[2]/[3]")

	paused := false

	for {
		select {
		case <-done:
			term.Status("playback finished (%d underruns)", snd.Underruns())
			return nil

		case <-intChan:
			term.Print("\r\n")
			return nil

		case key, ok := <-term.Keys():
			if !ok {
				return nil
			}

			switch key {
			case 'q':
				term.Print("\r\n")
				return nil

			case 'm':
				if snd.ToggleMute() {
					term.Status("muted")
				} else {
					term.Status("unmuted")
				}

			case 'p':
				paused = !paused
				snd.Pause(paused)
				if paused {
					term.Status("paused")
				} else {
					term.Status("resumed")
				}

			case '+', '=':
				snd.AdjustVolume(1)
				term.Status("volume: %d", snd.Volume())

			case '-', '_':
				snd.AdjustVolume(-1)
				term.Status("volume: %d", snd.Volume())

			case 'a':
				term.About(snd.About())

			case '1', '2', '3':
				quality := map[rune]string{'1': "nearest", '2': "lanczos2", '3': "lanczos3"}[key]
				if err := setQuality(snd, queue, tim, quality); err != nil {
					term.Error("%v", err)
				} else {
					term.Status("resampling: %s", quality)
				}
			}
		}
	}
}

// setQuality changes the resampling quality of a running pipeline. The
// preset becomes custom because the bundled value no longer applies.
func setQuality(snd *sound.Sound, queue *audio.Queue, tim sound.TimingInfo, quality string) error {
	prefs := snd.Prefs()
	if err := prefs.Quality.Set(quality); err != nil {
		return err
	}
	if err := prefs.Preset.Set("custom"); err != nil {
		return err
	}
	return snd.Open(queue, tim)
}

func clip(md *modalflag.Modes) error {
	md.NewMode()

	backend := md.AddString("backend", "", "audio backend: sdl, oto (default from prefs)")
	device := md.AddString("device", "", "output device (default from prefs)")
	offset := md.AddInt("offset", 0, "start playback from this frame")
	length := md.AddInt("length", 0, "number of frames to play (0 for all)")
	speed := md.AddFloat64("speed", 1.0, "playback speed adjustment")
	volume := md.AddInt("volume", -1, "playback volume 0 to 100 (default from prefs)")
	log := md.AddBool("log", false, "echo debugging log to stdout")
	md.AdditionalHelp("The CLIP mode plays an audio file through the one-shot clip channel,\nbypassing the fragment queue and resampler.")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *log {
		logger.SetEcho(os.Stdout)
	} else {
		logger.SetEcho(nil)
	}

	if len(md.RemainingArgs()) != 1 {
		return fmt.Errorf("a single audio file is required for %s mode", md)
	}

	prefs, err := sound.NewPreferences()
	if err != nil {
		return err
	}
	if *backend != "" {
		if err := prefs.Backend.Set(*backend); err != nil {
			return err
		}
	}
	if *device != "" {
		if err := prefs.Device.Set(*device); err != nil {
			return err
		}
	}
	if *volume >= 0 {
		if err := prefs.Volume.Set(*volume); err != nil {
			return err
		}
	}

	drv, err := hostDriver(prefs.Backend.Get().(string))
	if err != nil {
		return err
	}

	snd := sound.NewSound(drv, prefs)
	defer snd.Close()

	snd.SetClipSpeed(*speed)

	if !snd.PlayClip(md.GetArg(0), *offset, *length) {
		return fmt.Errorf("cannot play %s", md.GetArg(0))
	}

	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-intChan:
			fmt.Print("\r\n")
			snd.StopClip()
			return nil
		case <-tick.C:
			if snd.ClipSize() == 0 {
				// leave time for the last buffer to reach the speakers
				time.Sleep(250 * time.Millisecond)
				snd.StopClip()
				return nil
			}
		}
	}
}

func showVersion(md *modalflag.Modes) error {
	md.NewMode()

	verbose := md.AddBool("v", false, "display revision information")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	ver, rev, _ := version.Version()
	fmt.Printf("%s %s\n", version.ApplicationName, ver)
	if *verbose {
		fmt.Printf("  %s\n", rev)
	}

	return nil
}
