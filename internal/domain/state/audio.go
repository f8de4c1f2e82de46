package state

import "github.com/rs/zerolog"

// MaxMusicTracks is the exclusive upper bound on a believable music track
// count. Anything at or above it means the track storage is corrupt.
const MaxMusicTracks = 5000

// Gains maps user-facing volume percentages to device gain values.
// Floor is the quietest configured gain (0%); 100% maps to 0.
type Gains struct {
	Floor  int
	AbsMin int
	AbsMax int
}

// DefaultGains returns the gain range used by both supported audio boards.
func DefaultGains() Gains {
	return Gains{Floor: -35, AbsMin: -70, AbsMax: 10}
}

// For returns the gain for pct, clamped to [AbsMin, AbsMax].
func (g Gains) For(pct int) int {
	pct = clampPercent(pct)
	return g.Clamp(g.Floor - g.Floor*pct/100)
}

// Clamp limits gain to the absolute device range.
func (g Gains) Clamp(gain int) int {
	if gain < g.AbsMin {
		return g.AbsMin
	}
	if gain > g.AbsMax {
		return g.AbsMax
	}
	return gain
}

// Audio is the playback state. Gains are derived from the percentages and
// are only ever recomputed through the percentage setters.
type Audio struct {
	gains Gains

	CurrentTrack uint16
	MusicCount   uint16
	MinTrack     uint16
	MaxTrack     uint16

	Playing bool
	Paused  bool
	Loop    bool
	Muted   bool

	masterPct  uint8
	effectsPct uint8
	musicPct   uint8

	masterGain  int
	effectsGain int
	musicGain   int
}

// NewAudio returns an audio state at the given startup percentages.
func NewAudio(gains Gains, master, effects, music int) Audio {
	a := Audio{gains: gains}
	a.SetMasterPercent(master)
	a.SetEffectsPercent(effects)
	a.SetMusicPercent(music)
	return a
}

func (a Audio) Gains() Gains { return a.gains }

func (a Audio) MasterPercent() int  { return int(a.masterPct) }
func (a Audio) EffectsPercent() int { return int(a.effectsPct) }
func (a Audio) MusicPercent() int   { return int(a.musicPct) }

func (a Audio) MasterGain() int  { return a.masterGain }
func (a Audio) EffectsGain() int { return a.effectsGain }
func (a Audio) MusicGain() int   { return a.musicGain }

// SetMasterPercent sets the master volume and recomputes its gain.
func (a *Audio) SetMasterPercent(pct int) {
	a.masterPct = uint8(clampPercent(pct))
	a.masterGain = a.gains.For(int(a.masterPct))
}

// SetEffectsPercent sets the effects volume and recomputes its gain.
func (a *Audio) SetEffectsPercent(pct int) {
	a.effectsPct = uint8(clampPercent(pct))
	a.effectsGain = a.gains.For(int(a.effectsPct))
}

// SetMusicPercent sets the music volume and recomputes its gain.
func (a *Audio) SetMusicPercent(pct int) {
	a.musicPct = uint8(clampPercent(pct))
	a.musicGain = a.gains.For(int(a.musicPct))
}

// SetMusicCount installs a music track count and recomputes the playable
// window starting at origin. Counts outside (0, MaxMusicTracks) disable music
// and report false when the value looked corrupt rather than simply empty.
func (a *Audio) SetMusicCount(origin uint16, count int) bool {
	if count <= 0 || count >= MaxMusicTracks {
		a.MusicCount = 0
		a.MinTrack = 0
		a.MaxTrack = 0
		return count == 0
	}
	a.MusicCount = uint16(count)
	a.MinTrack = origin
	a.MaxTrack = origin + uint16(count) - 1
	return true
}

// HasMusic reports whether any music tracks are available.
func (a Audio) HasMusic() bool {
	return a.MusicCount > 0
}

// NextTrackNumber returns the track after CurrentTrack, wrapping to MinTrack.
func (a Audio) NextTrackNumber() uint16 {
	if !a.HasMusic() {
		return a.CurrentTrack
	}
	if a.CurrentTrack < a.MinTrack || a.CurrentTrack >= a.MaxTrack {
		return a.MinTrack
	}
	return a.CurrentTrack + 1
}

// PrevTrackNumber returns the track before CurrentTrack, wrapping to MaxTrack.
func (a Audio) PrevTrackNumber() uint16 {
	if !a.HasMusic() {
		return a.CurrentTrack
	}
	if a.CurrentTrack <= a.MinTrack || a.CurrentTrack > a.MaxTrack {
		return a.MaxTrack
	}
	return a.CurrentTrack - 1
}

// MarshalZerologObject lets the snapshot be logged with Object("audio", a).
func (a Audio) MarshalZerologObject(e *zerolog.Event) {
	e.Uint16("track", a.CurrentTrack).
		Uint16("music_count", a.MusicCount).
		Bool("playing", a.Playing).
		Bool("paused", a.Paused).
		Bool("loop", a.Loop).
		Bool("muted", a.Muted).
		Uint8("master", a.masterPct).
		Uint8("effects", a.effectsPct).
		Uint8("music", a.musicPct)
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
