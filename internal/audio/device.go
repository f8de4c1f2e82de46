// Package audio drives playback on whichever audio device was found at
// startup and keeps the shared audio state in step with it.
package audio

import (
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Capabilities describes device differences the engine has to account for.
type Capabilities struct {
	Name string
	// ClampGain limits effect gains to the absolute range before they reach
	// the device.
	ClampGain bool
	// BeepOffset is subtracted from the feedback beep gain.
	BeepOffset int
	// BoostFactor is added to boosted effect gains.
	BoostFactor int
}

// Device is an audio board addressed by numeric track ids. Status is only
// available on request: RequestTrackStatus asks, CurrentTrackStatus reads
// the last answer.
type Device interface {
	Probe() bool
	Capabilities() Capabilities

	TrackGain(track uint16, gain int) error
	TrackPlayPoly(track uint16, lock bool) error
	TrackLoop(track uint16, loop bool) error
	TrackFade(track uint16, gain int, fadeMillis uint, stop bool) error
	TrackStop(track uint16) error
	TrackPause(track uint16) error
	TrackResume(track uint16) error
	MasterGain(gain int) error
	StopAll() error

	ResetTrackCounter() error
	TrackCounterReset() bool
	RequestTrackStatus(track uint16) error
	CurrentTrackStatus(track uint16) bool

	NumTracks() uint16
	Update() error
}

// Select probes candidates in order and returns the first that answers.
// When none do it returns None.
func Select(candidates ...Device) Device {
	for _, d := range candidates {
		if d == nil {
			continue
		}
		if d.Probe() {
			log.Info().Str("device", d.Capabilities().Name).Msg("Audio device found")
			return d
		}
	}
	log.Warn().Msg("No audio device found")
	return None{}
}

// None is the device used when no hardware answered. Every command is
// accepted and ignored.
type None struct{}

func (None) Probe() bool                             { return false }
func (None) Capabilities() Capabilities              { return Capabilities{Name: "none"} }
func (None) TrackGain(uint16, int) error             { return nil }
func (None) TrackPlayPoly(uint16, bool) error        { return nil }
func (None) TrackLoop(uint16, bool) error            { return nil }
func (None) TrackFade(uint16, int, uint, bool) error { return nil }
func (None) TrackStop(uint16) error                  { return nil }
func (None) TrackPause(uint16) error                 { return nil }
func (None) TrackResume(uint16) error                { return nil }
func (None) MasterGain(int) error                    { return nil }
func (None) StopAll() error                          { return nil }
func (None) ResetTrackCounter() error                { return nil }
func (None) TrackCounterReset() bool                 { return false }
func (None) RequestTrackStatus(uint16) error         { return nil }
func (None) CurrentTrackStatus(uint16) bool          { return false }
func (None) NumTracks() uint16                       { return 0 }
func (None) Update() error                           { return nil }

// TrackID extracts the leading track number from a file name, the naming
// sound boards use on their SD cards: "007_vent.wav" is track 7.
func TrackID(name string) (uint16, bool) {
	name = path.Base(name)
	end := strings.IndexFunc(name, func(r rune) bool { return r < '0' || r > '9' })
	if end <= 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(name[:end], 10, 16)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint16(n), true
}
