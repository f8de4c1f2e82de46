package mpd

import (
	"fmt"
	"math"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/audio"
)

// Backend is the slice of the MPD protocol the device needs. *Client
// implements it.
type Backend interface {
	Connect() error
	Ping() error
	Status() (mpd.Attrs, error)
	ListAllInfo(uri string) ([]mpd.Attrs, error)
	Clear() error
	Add(uri string) error
	Play(pos int) error
	Pause(pause bool) error
	Stop() error
	SetVolume(vol int) error
	SetRepeat(on bool) error
	SetSingle(on bool) error
}

// Device plays numbered tracks through MPD. Files are matched to track
// ids by a leading number in their name, "007_vent.wav" being track 7,
// the same naming the sound boards use on their SD cards.
//
// MPD has a single queue, so starting a track replaces whatever was
// playing; there is no polyphony and fades are applied as a jump.
type Device struct {
	mu      sync.Mutex
	backend Backend
	root    string

	tracks map[uint16]string
	last   uint16

	current uint16
	master  int
	gains   map[uint16]int
	loops   map[uint16]bool

	counterReset bool
	playing      bool
	format       AudioFormat
}

// NewDevice creates a device reading tracks below root in the MPD
// database; an empty root scans the whole database.
func NewDevice(backend Backend, root string) *Device {
	return &Device{
		backend: backend,
		root:    root,
		tracks:  make(map[uint16]string),
		gains:   make(map[uint16]int),
		loops:   make(map[uint16]bool),
	}
}

// Probe connects and indexes the track files. It fails when MPD is
// unreachable or no numbered files were found.
func (d *Device) Probe() bool {
	if d.backend.Ping() != nil {
		if err := d.backend.Connect(); err != nil {
			log.Warn().Err(err).Msg("MPD audio device not reachable")
			return false
		}
	}
	if err := d.Scan(); err != nil {
		log.Warn().Err(err).Msg("MPD track scan failed")
		return false
	}
	return d.NumTracks() > 0
}

// Scan rebuilds the track index from the MPD database.
func (d *Device) Scan() error {
	songs, err := d.backend.ListAllInfo(d.root)
	if err != nil {
		return fmt.Errorf("list %q: %w", d.root, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.tracks = make(map[uint16]string)
	d.last = 0
	for _, song := range songs {
		uri := song["file"]
		id, ok := audio.TrackID(uri)
		if !ok {
			continue
		}
		if prev, dup := d.tracks[id]; dup {
			log.Warn().Uint16("track", id).Str("kept", prev).Str("ignored", uri).Msg("Duplicate track number")
			continue
		}
		d.tracks[id] = uri
		d.last = max(d.last, id)
	}
	log.Info().Int("files", len(d.tracks)).Uint16("highest", d.last).Msg("Indexed MPD tracks")
	return nil
}

func (d *Device) Capabilities() audio.Capabilities {
	return audio.Capabilities{Name: "mpd", ClampGain: true}
}

func (d *Device) TrackGain(track uint16, gain int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gains[track] = gain
	if track != d.current {
		return nil
	}
	return d.applyVolume()
}

func (d *Device) TrackPlayPoly(track uint16, _ bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	uri, ok := d.tracks[track]
	if !ok {
		return fmt.Errorf("track %d: no file", track)
	}
	if err := d.backend.Clear(); err != nil {
		return err
	}
	if err := d.backend.Add(uri); err != nil {
		return err
	}
	d.current = track
	if err := d.applyLoop(); err != nil {
		return err
	}
	if err := d.applyVolume(); err != nil {
		return err
	}
	if err := d.backend.Play(0); err != nil {
		return err
	}
	d.playing = true
	return nil
}

func (d *Device) TrackLoop(track uint16, loop bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.loops[track] = loop
	if track != d.current {
		return nil
	}
	return d.applyLoop()
}

// TrackFade jumps straight to the target gain.
func (d *Device) TrackFade(track uint16, gain int, _ uint, stop bool) error {
	if stop {
		return d.TrackStop(track)
	}
	return d.TrackGain(track, gain)
}

func (d *Device) TrackStop(track uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if track != d.current {
		return nil
	}
	d.playing = false
	return d.backend.Stop()
}

func (d *Device) TrackPause(track uint16) error {
	return d.pause(track, true)
}

func (d *Device) TrackResume(track uint16) error {
	return d.pause(track, false)
}

func (d *Device) pause(track uint16, pause bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if track != d.current {
		return nil
	}
	return d.backend.Pause(pause)
}

func (d *Device) MasterGain(gain int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.master = gain
	if d.current == 0 {
		return nil
	}
	return d.applyVolume()
}

func (d *Device) StopAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.playing = false
	d.current = 0
	if err := d.backend.Stop(); err != nil {
		return err
	}
	return d.backend.Clear()
}

// ResetTrackCounter invalidates the last status until the next request.
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

// RequestTrackStatus queries MPD. The answer is read with
// CurrentTrackStatus.
func (d *Device) RequestTrackStatus(uint16) error {
	status, err := d.backend.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.counterReset = false
	d.playing = status["state"] == "play" || status["state"] == "pause"

	if f, ok := ParseAudioFormat(status["audio"]); ok && f != d.format {
		d.format = f
		log.Debug().Stringer("format", f).Uint16("track", d.current).Msg("Audio format changed")
	}
	return nil
}

func (d *Device) CurrentTrackStatus(track uint16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing && track == d.current
}

// NumTracks returns the highest track number found, which is how the
// sound boards report their track count.
func (d *Device) NumTracks() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Device) Update() error { return nil }

// Format returns the output format reported by the last status request.
func (d *Device) Format() AudioFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

func (d *Device) applyVolume() error {
	return d.backend.SetVolume(GainToVolume(d.master + d.gains[d.current]))
}

func (d *Device) applyLoop() error {
	loop := d.loops[d.current]
	if err := d.backend.SetRepeat(loop); err != nil {
		return err
	}
	return d.backend.SetSingle(loop)
}

// GainToVolume converts a gain in dB to an MPD volume percentage.
func GainToVolume(gain int) int {
	if gain >= 0 {
		return 100
	}
	return int(math.Round(100 * math.Pow(10, float64(gain)/20)))
}
