// Package mixer plays numbered sound files from a local directory through
// a software mixer, giving the pack polyphonic effects without a sound
// board.
package mixer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/audio"
)

const (
	// DefaultSampleRate is the output rate; files at other rates are
	// resampled.
	DefaultSampleRate beep.SampleRate = 44100

	// MaxVoices is the number of tracks that may sound at once.
	MaxVoices = 14

	resampleQuality = 4
)

var (
	ErrUnknownTrack = errors.New("unknown track")
	ErrNoVoice      = errors.New("all voices locked")
)

// Output is where the mixed stream goes. Start is called once, from
// Probe. The speaker implements it in production.
type Output interface {
	Start(format beep.Format, s beep.Streamer) error
}

// Device implements audio.Device over beep. It is also the beep.Streamer
// handed to the output, so everything it owns is guarded by mu.
type Device struct {
	mu     sync.Mutex
	dir    string
	format beep.Format
	out    Output

	started bool
	tracks  map[uint16]string
	last    uint16

	mixer  beep.Mixer
	master *effects.Volume
	voices map[uint16]*voice
	gains  map[uint16]int
	loops  map[uint16]bool
	seq    uint64

	counterReset bool
}

// NewDevice creates a device playing files from dir at the given rate.
func NewDevice(dir string, rate beep.SampleRate, out Output) *Device {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	d := &Device{
		dir:    dir,
		format: beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2},
		out:    out,
		tracks: make(map[uint16]string),
		voices: make(map[uint16]*voice),
		gains:  make(map[uint16]int),
		loops:  make(map[uint16]bool),
	}
	d.master = &effects.Volume{Streamer: &d.mixer, Base: 10}
	return d
}

// Probe indexes the directory and starts the output. It fails when the
// directory holds no numbered .wav or .ogg files.
func (d *Device) Probe() bool {
	if err := d.Scan(); err != nil {
		log.Warn().Err(err).Str("dir", d.dir).Msg("Sound directory scan failed")
		return false
	}
	if d.NumTracks() == 0 {
		return false
	}

	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if started {
		return true
	}

	if err := d.out.Start(d.format, d); err != nil {
		log.Warn().Err(err).Msg("Audio output unavailable")
		return false
	}
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	return true
}

// Scan rebuilds the track index from the directory.
func (d *Device) Scan() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", d.dir, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.tracks = make(map[uint16]string)
	d.last = 0
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		id, ok := audio.TrackID(e.Name())
		if !ok {
			continue
		}
		if prev, dup := d.tracks[id]; dup {
			log.Warn().Uint16("track", id).Str("kept", prev).Str("ignored", e.Name()).Msg("Duplicate track number")
			continue
		}
		d.tracks[id] = filepath.Join(d.dir, e.Name())
		d.last = max(d.last, id)
	}
	log.Info().Int("files", len(d.tracks)).Uint16("highest", d.last).Str("dir", d.dir).Msg("Indexed sound files")
	return nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".ogg":
		return true
	}
	return false
}

func (d *Device) Capabilities() audio.Capabilities {
	return audio.Capabilities{Name: "mixer", ClampGain: true}
}

// Stream mixes every active voice. It never ends.
func (d *Device) Stream(samples [][2]float64) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.master.Stream(samples)
}

func (d *Device) Err() error { return nil }

func (d *Device) TrackGain(track uint16, gain int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gains[track] = gain
	if v := d.active(track); v != nil {
		v.setGain(gain)
	}
	return nil
}

// TrackPlayPoly starts track from the beginning, restarting it if it was
// already sounding. When every voice is busy the oldest unlocked one is
// stolen.
func (d *Device) TrackPlayPoly(track uint16, lock bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	file, ok := d.tracks[track]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownTrack, track)
	}

	if v := d.voices[track]; v != nil {
		v.stop()
		delete(d.voices, track)
	}
	d.reap()
	if len(d.voices) >= MaxVoices {
		if err := d.steal(); err != nil {
			return err
		}
	}

	src, format, err := open(file)
	if err != nil {
		return fmt.Errorf("open track %d: %w", track, err)
	}

	d.seq++
	v := newVoice(track, src, format.SampleRate, d.format.SampleRate, d.gains[track], d.loops[track], lock, d.seq)
	d.voices[track] = v
	d.mixer.Add(v)
	return nil
}

// steal stops the oldest unlocked voice.
func (d *Device) steal() error {
	var oldest *voice
	for _, v := range d.voices {
		if v.locked {
			continue
		}
		if oldest == nil || v.seq < oldest.seq {
			oldest = v
		}
	}
	if oldest == nil {
		return ErrNoVoice
	}
	log.Debug().Uint16("track", oldest.track).Msg("Voice stolen")
	oldest.stop()
	delete(d.voices, oldest.track)
	return nil
}

// reap forgets voices that finished on their own.
func (d *Device) reap() {
	for id, v := range d.voices {
		if v.done {
			delete(d.voices, id)
		}
	}
}

func (d *Device) active(track uint16) *voice {
	v := d.voices[track]
	if v == nil || v.done {
		return nil
	}
	return v
}

func (d *Device) TrackLoop(track uint16, loop bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.loops[track] = loop
	if v := d.active(track); v != nil {
		v.loop = loop
	}
	return nil
}

func (d *Device) TrackFade(track uint16, gain int, fadeMillis uint, stop bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gains[track] = gain
	v := d.active(track)
	if v == nil {
		return nil
	}
	n := d.format.SampleRate.N(msec(fadeMillis))
	v.fade(gain, n, stop)
	return nil
}

func (d *Device) TrackStop(track uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v := d.voices[track]; v != nil {
		v.stop()
		delete(d.voices, track)
	}
	return nil
}

func (d *Device) TrackPause(track uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v := d.active(track); v != nil {
		v.paused = true
	}
	return nil
}

func (d *Device) TrackResume(track uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v := d.active(track); v != nil {
		v.paused = false
	}
	return nil
}

// MasterGain sets the output gain in dB.
func (d *Device) MasterGain(gain int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.master.Volume = float64(gain) / 20
	return nil
}

func (d *Device) StopAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, v := range d.voices {
		v.stop()
		delete(d.voices, id)
	}
	d.mixer.Clear()
	return nil
}

// ResetTrackCounter marks the track counter reset until the next status
// request. Status is always current, so the request is the confirmation.
func (d *Device) ResetTrackCounter() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counterReset = true
	return nil
}

func (d *Device) TrackCounterReset() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counterReset
}

func (d *Device) RequestTrackStatus(uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counterReset = false
	d.reap()
	return nil
}

func (d *Device) CurrentTrackStatus(track uint16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active(track) != nil
}

// NumTracks returns the highest track id found.
func (d *Device) NumTracks() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Update forgets finished voices.
func (d *Device) Update() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reap()
	return nil
}

// Voices returns the number of tracks currently sounding.
func (d *Device) Voices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reap()
	return len(d.voices)
}

func open(file string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	if strings.EqualFold(filepath.Ext(file), ".ogg") {
		s, format, err = vorbis.Decode(f)
	} else {
		s, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}
