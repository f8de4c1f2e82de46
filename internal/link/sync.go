package link

import (
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/protocol"
)

// The sync record encodes most flags as 1 == true. The ion arm switch,
// track loop and master mute fields use 2 == true instead; anything else
// reads as false.
const (
	wireTrue    = 1
	wireTrueAlt = 2
)

// ApplyFullSync copies a sync record into local state. Every enumerated
// field decodes to a defined variant.
func ApplyFullSync(s *state.System, a *state.Audio, d protocol.SyncData, origin uint16) {
	s.Year = decodeYear(d.SystemYear)
	s.Stream, s.Christmas = decodeStream(d.StreamMode, s.Christmas)
	s.SetPowerLevel(decodePower(d.PowerLevel))

	if d.SystemMode == wireTrue {
		s.Mode = state.ModeSuperHero
	} else {
		s.Mode = state.ModeOriginal
	}
	if d.IonArmSwitch == wireTrueAlt {
		s.RedSwitch = state.SwitchOn
	} else {
		s.RedSwitch = state.SwitchOff
	}

	s.CyclotronLidOn = d.CyclotronLidState == wireTrue
	s.PackOn = d.PackOn == wireTrue
	s.WandOn = d.WandOn == wireTrue
	s.WandPresent = d.WandPresent == wireTrue
	s.BarrelExtended = d.BarrelExtended == wireTrue
	s.Overheating = d.OverheatingNow == wireTrue
	s.AlarmActive = d.PackAlarm == wireTrue
	// A firing flag without power on both units would break the firing
	// invariant; the power flags win.
	s.Firing = d.WandFiring == wireTrue && s.PackOn && s.WandOn
	s.SpeedMultiplier = max(int(d.SpeedMultiplier), 1)
	s.SpectralHue = d.SpectralColour
	s.SpectralSaturation = d.SpectralSaturation

	a.Muted = d.MasterMuted == wireTrueAlt
	a.SetMasterPercent(int(d.MasterVolume))
	a.SetEffectsPercent(int(d.EffectsVolume))
	a.SetMusicPercent(int(d.MusicVolume))
	a.Playing = d.MusicPlaying == wireTrue
	a.Paused = a.Playing && d.MusicPaused == wireTrue
	a.Loop = d.TrackLooped == wireTrueAlt
	a.CurrentTrack = d.CurrentTrack

	if d.MusicCount > 0 && !a.SetMusicCount(origin, int(d.MusicCount)) {
		log.Warn().Uint16("count", d.MusicCount).Msg("Sync carried a corrupt music track count")
	}
}

// BuildFullSync renders local state as a sync record.
func BuildFullSync(s state.System, a state.Audio) protocol.SyncData {
	return protocol.SyncData{
		SystemMode:         pick(s.Mode == state.ModeSuperHero, wireTrue, 2),
		IonArmSwitch:       pick(s.RedSwitch == state.SwitchOn, wireTrueAlt, 1),
		CyclotronLidState:  flag(s.CyclotronLidOn),
		SystemYear:         encodeYear(s.Year),
		PackOn:             flag(s.PackOn),
		WandOn:             flag(s.WandOn),
		PowerLevel:         uint8(s.PowerLevel),
		StreamMode:         encodeStream(s.Stream, s.Christmas),
		WandPresent:        flag(s.WandPresent),
		BarrelExtended:     flag(s.BarrelExtended),
		WandFiring:         flag(s.Firing),
		OverheatingNow:     flag(s.Overheating),
		PackAlarm:          flag(s.AlarmActive),
		SpeedMultiplier:    uint8(min(max(s.SpeedMultiplier, 1), 255)),
		SpectralColour:     s.SpectralHue,
		SpectralSaturation: s.SpectralSaturation,
		MasterMuted:        pick(a.Muted, wireTrueAlt, 1),
		MasterVolume:       uint8(a.MasterPercent()),
		EffectsVolume:      uint8(a.EffectsPercent()),
		MusicVolume:        uint8(a.MusicPercent()),
		MusicPlaying:       flag(a.Playing),
		MusicPaused:        flag(a.Paused),
		TrackLooped:        pick(a.Loop, wireTrueAlt, 1),
		CurrentTrack:       a.CurrentTrack,
		MusicCount:         a.MusicCount,
	}
}

func decodeYear(v uint8) state.Year {
	switch v {
	case 2:
		return state.Year1989
	case 3:
		return state.YearAfterlife
	case 4:
		return state.YearFrozenEmpire
	default:
		return state.Year1984
	}
}

func encodeYear(y state.Year) uint8 {
	switch y {
	case state.Year1989:
		return 2
	case state.YearAfterlife:
		return 3
	case state.YearFrozenEmpire:
		return 4
	default:
		return 1
	}
}

// decodeStream maps the wire stream code. Codes 6 and 7 are both the
// holiday stream and carry the christmas flag; other codes keep it.
func decodeStream(v uint8, christmas bool) (state.Stream, bool) {
	switch v {
	case 2:
		return state.StreamSlime, christmas
	case 3:
		return state.StreamStasis, christmas
	case 4:
		return state.StreamMeson, christmas
	case 5:
		return state.StreamSpectral, christmas
	case 6:
		return state.StreamHoliday, false
	case 7:
		return state.StreamHoliday, true
	case 8:
		return state.StreamSpectralCustom, christmas
	default:
		return state.StreamProton, christmas
	}
}

func encodeStream(s state.Stream, christmas bool) uint8 {
	switch s {
	case state.StreamSlime:
		return 2
	case state.StreamStasis:
		return 3
	case state.StreamMeson:
		return 4
	case state.StreamSpectral:
		return 5
	case state.StreamHoliday:
		return pick(christmas, 7, 6)
	case state.StreamSpectralCustom:
		return 8
	default:
		// Settings has no wire code; peers see proton.
		return 1
	}
}

func decodePower(v uint8) state.PowerLevel {
	if v >= uint8(state.Level1) && v <= uint8(state.Level5) {
		return state.PowerLevel(v)
	}
	return state.Level1
}

func flag(v bool) uint8 {
	return pick(v, wireTrue, 0)
}

func pick(cond bool, yes, no uint8) uint8 {
	if cond {
		return yes
	}
	return no
}
