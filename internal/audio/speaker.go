package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// speakerBufferDuration sizes the speaker buffer. Larger values survive
// scheduling hiccups, smaller values react faster to Stop.
const speakerBufferDuration = time.Second / 10

// errNotLoaded is returned when playback is requested before a successful Load.
var errNotLoaded = errors.New("no audio resource loaded")

// resampleQuality is the beep resampler quality used when the file sample
// rate differs from the speaker sample rate.
const resampleQuality = 4

// SpeakerPlayer plays audio files through the system output via beep's speaker.
//
// The speaker is initialised once with the sample rate of the first loaded
// file; later files with a different rate are resampled to it.
type SpeakerPlayer struct {
	// mu protects all fields below against concurrent playback control.
	mu sync.Mutex
	// sampleRate is the rate the speaker was initialised with.
	sampleRate beep.SampleRate
	// initialized reports whether speaker.Init has run.
	initialized bool
	// file is the open handle backing the current streamer.
	file *os.File
	// streamer decodes the loaded file.
	streamer beep.StreamSeekCloser
	// format describes the loaded file.
	format beep.Format
	// volume wraps the currently playing streamer so gain changes apply live.
	volume *effects.Volume
	// active reports whether playback is in progress. Atomic because the
	// speaker goroutine flips it from the completion callback while it
	// holds the speaker lock; taking mu there could deadlock against Stop.
	active atomic.Bool
}

// NewSpeakerPlayer returns a player with no resource loaded.
func NewSpeakerPlayer() *SpeakerPlayer {
	return &SpeakerPlayer{}
}

// Load opens and decodes the audio file at path, replacing any previously
// loaded resource. The first successful Load initialises the speaker.
func (p *SpeakerPlayer) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}

	streamer, format, err := decode(f, path)
	if err != nil {
		_ = f.Close()

		return err
	}

	if !p.initialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(speakerBufferDuration)); err != nil {
			_ = streamer.Close()
			_ = f.Close()

			return fmt.Errorf("init speaker: %w", err)
		}

		p.sampleRate = format.SampleRate
		p.initialized = true
	}

	p.closeCurrentLocked()

	p.file = f
	p.streamer = streamer
	p.format = format

	return nil
}

// PlayOnce starts single-shot playback at the given gain.
func (p *SpeakerPlayer) PlayOnce(gain float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return errNotLoaded
	}

	if err := p.streamer.Seek(0); err != nil {
		return fmt.Errorf("rewind streamer: %w", err)
	}

	vol := p.wrapVolume(p.resampled(), gain)

	speaker.Clear()
	speaker.Play(beep.Seq(vol, beep.Callback(p.markInactive)))

	p.volume = vol
	p.active.Store(true)

	return nil
}

// PlayRepeating starts infinitely repeating playback at the given gain.
func (p *SpeakerPlayer) PlayRepeating(gain float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return errNotLoaded
	}

	if err := p.streamer.Seek(0); err != nil {
		return fmt.Errorf("rewind streamer: %w", err)
	}

	looped, err := beep.Loop2(p.streamer)
	if err != nil {
		return fmt.Errorf("loop streamer: %w", err)
	}

	if p.format.SampleRate != p.sampleRate {
		looped = beep.Resample(resampleQuality, p.format.SampleRate, p.sampleRate, looped)
	}

	vol := p.wrapVolume(looped, gain)

	speaker.Clear()
	speaker.Play(vol)

	p.volume = vol
	p.active.Store(true)

	return nil
}

// Stop halts playback. Safe to call when nothing is playing.
func (p *SpeakerPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Clear()
	}

	p.volume = nil
	p.active.Store(false)
}

// SetGain adjusts the gain of current playback. Future playback picks up the
// gain passed to PlayOnce/PlayRepeating, so this only touches the live chain.
func (p *SpeakerPlayer) SetGain(gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.volume == nil {
		return
	}

	speaker.Lock()
	p.volume.Volume = gainExponent(gain)
	p.volume.Silent = gain <= 0
	speaker.Unlock()
}

// IsActive reports whether playback is currently producing sound.
func (p *SpeakerPlayer) IsActive() bool {
	return p.active.Load()
}

// Close releases the loaded resource. The speaker itself stays initialised
// for the process lifetime.
func (p *SpeakerPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Clear()
	}

	p.active.Store(false)
	p.closeCurrentLocked()
}

// markInactive is invoked by the speaker goroutine when single-shot playback
// drains naturally. It must not take mu: the caller holds the speaker lock.
func (p *SpeakerPlayer) markInactive() {
	p.active.Store(false)
}

// closeCurrentLocked closes the current streamer and file. Caller holds mu.
func (p *SpeakerPlayer) closeCurrentLocked() {
	if p.streamer != nil {
		_ = p.streamer.Close()
		p.streamer = nil
	}

	if p.file != nil {
		_ = p.file.Close()
		p.file = nil
	}
}

// resampled returns the current streamer adjusted to the speaker sample rate.
func (p *SpeakerPlayer) resampled() beep.Streamer {
	if p.format.SampleRate == p.sampleRate {
		return p.streamer
	}

	return beep.Resample(resampleQuality, p.format.SampleRate, p.sampleRate, p.streamer)
}

// wrapVolume wraps s in a live-adjustable volume stage at the given gain.
func (p *SpeakerPlayer) wrapVolume(s beep.Streamer, gain float64) *effects.Volume {
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   gainExponent(gain),
		Silent:   gain <= 0,
	}
}

// gainExponent converts a linear gain in (0.0, 1.0] to the base-2 exponent
// beep's volume effect expects (2^x == gain).
func gainExponent(gain float64) float64 {
	if gain <= 0 {
		return 0
	}

	return math.Log2(gain)
}

// decode picks a decoder by file extension.
func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
}
