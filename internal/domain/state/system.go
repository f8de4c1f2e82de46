// Package state holds the process-wide snapshot of device behavior shared by
// the dispatcher, the liveness protocol and the audio engine.
package state

import "github.com/rs/zerolog"

// Mode is the operating sequence of the pack.
type Mode uint8

const (
	ModeOriginal Mode = iota
	ModeSuperHero
)

func (m Mode) String() string {
	if m == ModeSuperHero {
		return "super-hero"
	}
	return "original"
}

// RedSwitch is the ion arm switch position used by the original sequence.
type RedSwitch uint8

const (
	SwitchOff RedSwitch = iota
	SwitchOn
)

// Year is the movie era the props emulate.
type Year uint8

const (
	Year1984 Year = iota
	Year1989
	YearAfterlife
	YearFrozenEmpire
)

func (y Year) String() string {
	switch y {
	case Year1989:
		return "1989"
	case YearAfterlife:
		return "afterlife"
	case YearFrozenEmpire:
		return "frozen-empire"
	default:
		return "1984"
	}
}

// Stream is the firing mode of the wand.
type Stream uint8

const (
	StreamProton Stream = iota
	StreamSlime
	StreamStasis
	StreamMeson
	StreamSpectral
	StreamHoliday
	StreamSpectralCustom
	StreamSettings
)

func (s Stream) String() string {
	switch s {
	case StreamSlime:
		return "slime"
	case StreamStasis:
		return "stasis"
	case StreamMeson:
		return "meson"
	case StreamSpectral:
		return "spectral"
	case StreamHoliday:
		return "holiday"
	case StreamSpectralCustom:
		return "spectral-custom"
	case StreamSettings:
		return "settings"
	default:
		return "proton"
	}
}

// PowerLevel is the wand power level, 1 through 5.
type PowerLevel uint8

const (
	Level1 PowerLevel = iota + 1
	Level2
	Level3
	Level4
	Level5
)

// System is the behavioral snapshot of the pack and wand.
//
// Invariant: Firing implies PackOn and WandOn.
type System struct {
	Mode      Mode
	RedSwitch RedSwitch
	Year      Year

	Stream             Stream
	Christmas          bool // holiday variant; false is halloween
	SpectralHue        uint8
	SpectralSaturation uint8

	PowerLevel     PowerLevel
	PowerLevelPrev PowerLevel

	PackOn         bool
	WandOn         bool
	Firing         bool
	Overheating    bool
	AlarmActive    bool
	CyclotronLidOn bool
	WandPresent    bool
	BarrelExtended bool

	SpeedMultiplier int

	BatteryVolts float64
	WandAmps     float64
}

// NewSystem returns the boot-time system state.
func NewSystem() System {
	return System{
		Year:            YearAfterlife,
		PowerLevel:      Level1,
		PowerLevelPrev:  Level1,
		CyclotronLidOn:  true,
		SpeedMultiplier: 1,
	}
}

// SetPowerLevel snapshots the outgoing level into PowerLevelPrev before
// switching.
func (s *System) SetPowerLevel(level PowerLevel) {
	s.PowerLevelPrev = s.PowerLevel
	s.PowerLevel = level
}

// Consistent reports whether the firing invariant holds.
func (s System) Consistent() bool {
	return !s.Firing || (s.PackOn && s.WandOn)
}

// MarshalZerologObject lets the snapshot be logged with Object("system", s).
func (s System) MarshalZerologObject(e *zerolog.Event) {
	e.Str("mode", s.Mode.String()).
		Str("year", s.Year.String()).
		Str("stream", s.Stream.String()).
		Uint8("power", uint8(s.PowerLevel)).
		Bool("pack_on", s.PackOn).
		Bool("wand_on", s.WandOn).
		Bool("firing", s.Firing).
		Bool("overheating", s.Overheating).
		Bool("alarm", s.AlarmActive).
		Int("speed", s.SpeedMultiplier).
		Float64("battery_v", s.BatteryVolts).
		Float64("wand_a", s.WandAmps)
}
