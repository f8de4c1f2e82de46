package link

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/bargraph"
	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/protocol"
	"github.com/edumarques81/packlink/internal/timer"
)

// DefaultBlinkInterval is the blink cadence at normal cyclotron speed.
const DefaultBlinkInterval = 500 * time.Millisecond

// RampDownDuration is how long the ramp-down animation runs before a
// powered-off display goes dark.
const RampDownDuration = 1500 * time.Millisecond

// Bargraph is the display the dispatcher animates.
type Bargraph interface {
	Full()
	Clear()
	SetPattern(bargraph.Pattern)
	Off()
	IsOff() bool
}

// Dispatcher turns inbound commands and data messages into state
// transitions. Handle reports whether state a consumer could observe
// changed.
type Dispatcher struct {
	ctx    *state.Context
	bar    Bargraph
	live   *Liveness
	send   *Sender
	origin uint16

	blink         *timer.Delay
	blinkInterval time.Duration
	blinkOn       bool

	ramp *timer.Delay
}

// NewDispatcher wires a dispatcher. origin is the first music track id.
func NewDispatcher(ctx *state.Context, bar Bargraph, live *Liveness, send *Sender, clock clockwork.Clock, blinkInterval time.Duration, origin uint16) *Dispatcher {
	if blinkInterval <= 0 {
		blinkInterval = DefaultBlinkInterval
	}
	return &Dispatcher{
		ctx:           ctx,
		bar:           bar,
		live:          live,
		send:          send,
		origin:        origin,
		blink:         timer.New(clock),
		blinkInterval: blinkInterval,
		ramp:          timer.New(clock),
	}
}

// Handle applies one command. Unknown codes change nothing and return
// false.
func (d *Dispatcher) Handle(code protocol.Command, arg uint16) bool {
	switch code {
	case protocol.CmdHandshake:
		if d.live.Waiting() {
			// Unknown peer: demand its full state.
			d.reply(protocol.CmdSyncStart)
		} else {
			d.reply(protocol.CmdHandshake)
		}
		return false

	case protocol.CmdSyncStart:
		log.Debug().Msg("Peer started sync")
		return false

	case protocol.CmdSyncEnd:
		d.live.Connect()
		d.reply(protocol.CmdSyncEnd)
		return true
	}

	return d.ctx.Mutate(func(s *state.System, a *state.Audio) bool {
		return d.apply(s, a, code, arg)
	})
}

func (d *Dispatcher) apply(s *state.System, a *state.Audio, code protocol.Command, arg uint16) bool {
	switch code {
	case protocol.CmdWandConnected:
		s.WandPresent = true
		return true
	case protocol.CmdWandDisconnected:
		s.WandPresent = false
		return true

	case protocol.CmdPackOn:
		s.PackOn = true
		d.bar.SetPattern(bargraph.PatternPowerRamp)
		return true
	case protocol.CmdWandOn:
		s.PackOn = true
		s.WandOn = true
		d.bar.SetPattern(bargraph.PatternPowerRamp)
		return true
	case protocol.CmdPackOff:
		s.PackOn = false
		s.Firing = false
		d.rampDown(true)
		return true
	case protocol.CmdWandOff:
		s.PackOn = false
		s.WandOn = false
		s.Firing = false
		d.rampDown(true)
		return true

	case protocol.CmdToggleMute:
		return setBool(&a.Muted, arg == 2)
	case protocol.CmdMusicTrackLoopToggle:
		return setBool(&a.Loop, arg == 2)
	case protocol.CmdMusicIsPlaying:
		return d.musicStatus(a, true, arg)
	case protocol.CmdMusicIsNotPlaying:
		return d.musicStatus(a, false, arg)
	case protocol.CmdMusicIsPaused:
		return setBool(&a.Paused, true)
	case protocol.CmdMusicIsNotPaused:
		return setBool(&a.Paused, false)
	case protocol.CmdMusicTrackCountSync:
		return d.trackCount(a, arg)

	case protocol.CmdModeSuperHero:
		return set(&s.Mode, state.ModeSuperHero)
	case protocol.CmdModeOriginal:
		return set(&s.Mode, state.ModeOriginal)
	case protocol.CmdRedSwitchOn:
		return set(&s.RedSwitch, state.SwitchOn)
	case protocol.CmdRedSwitchOff:
		return set(&s.RedSwitch, state.SwitchOff)

	case protocol.CmdYear1984:
		return set(&s.Year, state.Year1984)
	case protocol.CmdYear1989:
		return set(&s.Year, state.Year1989)
	case protocol.CmdYearAfterlife:
		return set(&s.Year, state.YearAfterlife)
	case protocol.CmdYearFrozenEmpire:
		return set(&s.Year, state.YearFrozenEmpire)

	case protocol.CmdProtonMode:
		return set(&s.Stream, state.StreamProton)
	case protocol.CmdSlimeMode:
		return set(&s.Stream, state.StreamSlime)
	case protocol.CmdStasisMode:
		return set(&s.Stream, state.StreamStasis)
	case protocol.CmdMesonMode:
		return set(&s.Stream, state.StreamMeson)
	case protocol.CmdSpectralMode:
		return set(&s.Stream, state.StreamSpectral)
	case protocol.CmdHolidayMode:
		changed := set(&s.Stream, state.StreamHoliday)
		return setBool(&s.Christmas, arg == 2) || changed
	case protocol.CmdSettingsMode:
		return set(&s.Stream, state.StreamSettings)

	case protocol.CmdPowerLevel1:
		s.SetPowerLevel(state.Level1)
		return true
	case protocol.CmdPowerLevel2:
		s.SetPowerLevel(state.Level2)
		return true
	case protocol.CmdPowerLevel3:
		s.SetPowerLevel(state.Level3)
		return true
	case protocol.CmdPowerLevel4:
		s.SetPowerLevel(state.Level4)
		return true
	case protocol.CmdPowerLevel5:
		s.SetPowerLevel(state.Level5)
		return true

	case protocol.CmdAlarmOn:
		s.Firing = false
		s.AlarmActive = true
		d.rampDown(false)
		if s.PackOn {
			d.startBlink(d.blinkInterval)
		}
		return true
	case protocol.CmdAlarmOff:
		s.AlarmActive = false
		if s.PackOn {
			d.stopBlink()
			d.powerRamp()
		}
		return true

	case protocol.CmdVenting:
		// Quick vent: lighter than a full overheat, no blinking.
		s.SpeedMultiplier = 1
		s.Overheating = true
		d.powerRamp()
		return true
	case protocol.CmdVentingFinished:
		s.Overheating = false
		return true
	case protocol.CmdOverheating:
		s.Overheating = true
		d.startBlink(d.blinkInterval)
		d.rampDown(false)
		return true
	case protocol.CmdOverheatingFinished:
		s.Overheating = false
		d.stopBlink()
		s.SpeedMultiplier = 1
		d.powerRamp()
		return true

	case protocol.CmdFiring:
		s.Firing = true
		s.PackOn = true
		s.WandOn = true
		d.startBlink(d.blinkInterval / time.Duration(max(s.SpeedMultiplier, 1)))
		d.bar.Clear()
		d.bar.SetPattern(bargraph.PatternOuterInner)
		return true
	case protocol.CmdFiringStopped:
		s.Firing = false
		d.stopBlink()
		if !s.Overheating {
			s.SpeedMultiplier = 1
		}
		if s.AlarmActive {
			d.rampDown(false)
		} else {
			d.powerRamp()
		}
		return true

	case protocol.CmdCyclotronLidOn:
		return setBool(&s.CyclotronLidOn, true)
	case protocol.CmdCyclotronLidOff:
		return setBool(&s.CyclotronLidOn, false)
	case protocol.CmdCyclotronIncreaseSpeed:
		s.SpeedMultiplier++
		return true
	case protocol.CmdCyclotronNormalSpeed:
		s.SpeedMultiplier = 1
		d.bar.Clear()
		if s.Firing {
			d.bar.SetPattern(bargraph.PatternOuterInner)
		} else {
			d.bar.SetPattern(bargraph.PatternPowerRamp)
		}
		return true

	case protocol.CmdBarrelExtended:
		return setBool(&s.BarrelExtended, true)
	case protocol.CmdBarrelRetracted:
		return setBool(&s.BarrelExtended, false)

	case protocol.CmdBatteryVoltagePack:
		s.BatteryVolts = float64(arg) / 100
		return true
	case protocol.CmdWandPowerAmps:
		s.WandAmps = float64(arg) / 100
		return true
	}

	return false
}

// HandleMessage applies one data message.
func (d *Dispatcher) HandleMessage(code protocol.Message, args [protocol.MessageArgs]byte) bool {
	return d.ctx.Mutate(func(s *state.System, a *state.Audio) bool {
		switch code {
		case protocol.MsgVolumeSync:
			a.SetMasterPercent(int(args[0]))
			a.SetEffectsPercent(int(args[1]))
			a.SetMusicPercent(int(args[2]))
			return true
		case protocol.MsgSpectralCustomMode:
			s.Stream = state.StreamSpectralCustom
			spectralColour(s, args)
			return true
		case protocol.MsgSpectralColourData:
			return spectralColour(s, args)
		}
		return false
	})
}

// Tick advances the blink cadence and darkens the display once a
// ramp-down ends with the pack off. Call it once per loop iteration.
func (d *Dispatcher) Tick() {
	if d.blink.JustFinished() {
		d.blinkOn = !d.blinkOn
		d.blink.Restart()
	}
	if d.ramp.JustFinished() {
		if sys, _ := d.ctx.Snapshot(); !sys.PackOn {
			d.bar.Off()
		}
	}
}

// Blinking reports whether the blink timer is running.
func (d *Dispatcher) Blinking() bool {
	return d.blink.IsRunning()
}

// BlinkOn returns the current blink phase.
func (d *Dispatcher) BlinkOn() bool {
	return d.blinkOn
}

// BlinkInterval returns the interval the blink timer was last armed with.
func (d *Dispatcher) BlinkInterval() time.Duration {
	return d.blink.Duration()
}

func (d *Dispatcher) musicStatus(a *state.Audio, playing bool, track uint16) bool {
	changed := setBool(&a.Playing, playing)
	changed = setBool(&a.Paused, false) || changed
	if track > 0 && a.CurrentTrack != track {
		a.CurrentTrack = track
		changed = true
	}
	return changed
}

func (d *Dispatcher) trackCount(a *state.Audio, count uint16) bool {
	if count == 0 {
		return false
	}
	before := a.MusicCount
	if !a.SetMusicCount(d.origin, int(count)) {
		log.Warn().Uint16("count", count).Msg("Ignoring corrupt music track count")
	}
	return a.MusicCount != before
}

// rampDown lights every segment before the ramp-down starts. When
// onlyIfLit is set an already dark display skips straight to the pattern.
func (d *Dispatcher) rampDown(onlyIfLit bool) {
	if !onlyIfLit || !d.bar.IsOff() {
		d.bar.Full()
	}
	d.bar.SetPattern(bargraph.PatternRampDown)
	d.ramp.Start(RampDownDuration)
}

func (d *Dispatcher) powerRamp() {
	d.bar.Clear()
	d.bar.SetPattern(bargraph.PatternPowerRamp)
}

func (d *Dispatcher) startBlink(interval time.Duration) {
	d.blinkOn = true
	d.blink.Start(interval)
}

func (d *Dispatcher) stopBlink() {
	d.blinkOn = false
	d.blink.Stop()
}

func (d *Dispatcher) reply(code protocol.Command) {
	if err := d.send.Command(code, 0); err != nil {
		log.Warn().Err(err).Msg("Failed to reply to peer")
	}
}

func spectralColour(s *state.System, args [protocol.MessageArgs]byte) bool {
	changed := false
	if args[0] > 0 {
		changed = set(&s.SpectralHue, args[0]) || changed
	}
	if args[1] > 0 {
		changed = set(&s.SpectralSaturation, args[1]) || changed
	}
	return changed
}

func set[T comparable](field *T, v T) bool {
	if *field == v {
		return false
	}
	*field = v
	return true
}

func setBool(field *bool, v bool) bool {
	return set(field, v)
}
