package audio

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/protocol"
)

// Notifier tells the connected peer about playback and volume changes.
type Notifier interface {
	NotifyCommand(code protocol.Command, arg uint16)
	NotifyVolume(master, effects, music uint8)
}

type nopNotifier struct{}

func (nopNotifier) NotifyCommand(protocol.Command, uint16) {}
func (nopNotifier) NotifyVolume(uint8, uint8, uint8)       {}

// Config holds engine tuning.
type Config struct {
	// TrackOrigin is the id of the first music track.
	TrackOrigin uint16
	// LastEffectsTrack is the highest id used by sound effects. Everything
	// the device reports above it is music.
	LastEffectsTrack uint16
	// FeedbackTrack is the beep played when a volume limit is reached.
	FeedbackTrack uint16

	MasterStep  int
	EffectsStep int
	MusicStep   int

	CheckInterval  time.Duration
	NextTrackDelay time.Duration
}

// DefaultConfig returns the timings used by the pack firmware.
func DefaultConfig() Config {
	return Config{
		TrackOrigin:      protocol.MusicTrackOrigin,
		LastEffectsTrack: 330,
		FeedbackTrack:    23,
		MasterStep:       5,
		EffectsStep:      5,
		MusicStep:        5,
		CheckInterval:    2 * time.Second,
		NextTrackDelay:   500 * time.Millisecond,
	}
}

// Engine owns playback on one device. All state changes go through the
// shared context so link handlers and the engine never disagree.
type Engine struct {
	dev    Device
	caps   Capabilities
	ctx    *state.Context
	notify Notifier
	cfg    Config

	monitor *monitor
	loops   map[uint16]struct{}
}

// NewEngine creates an engine for dev. A nil notifier discards
// notifications and a nil clock uses the real clock.
func NewEngine(dev Device, ctx *state.Context, notify Notifier, clock clockwork.Clock, cfg Config) *Engine {
	if dev == nil {
		dev = None{}
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Engine{
		dev:     dev,
		caps:    dev.Capabilities(),
		ctx:     ctx,
		notify:  notify,
		cfg:     cfg,
		monitor: newMonitor(clock, cfg),
		loops:   make(map[uint16]struct{}),
	}
}

// Device returns the device the engine drives.
func (e *Engine) Device() Device { return e.dev }

// Phase returns the completion monitor phase.
func (e *Engine) Phase() Phase { return e.monitor.phase }

// Reset stops every track and pushes the current master gain to the
// device. It also derives the music track count from the device and
// reports whether music is available.
func (e *Engine) Reset() bool {
	e.check("stop all", e.dev.StopAll())
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		e.applyMaster(a)
		return false
	})
	return e.BuildMusicCount(e.dev.NumTracks())
}

// PlayEffect starts a sound effect at gain. With fadeIn the track starts
// at the absolute minimum and ramps to gain over fadeMillis. lock is passed
// to the device unchanged.
func (e *Engine) PlayEffect(id uint16, loop bool, gain int, fadeIn bool, fadeMillis uint, lock bool) {
	_, a := e.ctx.Snapshot()
	e.playEffect(a.Gains(), id, loop, gain, fadeIn, fadeMillis, lock)
}

func (e *Engine) playEffect(g state.Gains, id uint16, loop bool, gain int, fadeIn bool, fadeMillis uint, lock bool) {
	if e.caps.ClampGain {
		gain = g.Clamp(gain)
	}

	if fadeIn {
		e.check("track gain", e.dev.TrackGain(id, g.AbsMin))
		e.check("track play", e.dev.TrackPlayPoly(id, lock))
		e.check("track fade", e.dev.TrackFade(id, gain, fadeMillis, false))
	} else {
		e.check("track gain", e.dev.TrackGain(id, gain))
		e.check("track play", e.dev.TrackPlayPoly(id, lock))
	}
	e.check("track loop", e.dev.TrackLoop(id, loop))

	if loop {
		e.loops[id] = struct{}{}
	} else {
		delete(e.loops, id)
	}
}

// StopEffect stops a sound effect.
func (e *Engine) StopEffect(id uint16) {
	e.check("track stop", e.dev.TrackStop(id))
	delete(e.loops, id)
}

// AdjustGain changes the gain of a playing track, optionally fading.
func (e *Engine) AdjustGain(id uint16, gain int, fade bool, fadeMillis uint) {
	_, a := e.ctx.Snapshot()
	gain = a.Gains().Clamp(gain)
	if fade {
		e.check("track fade", e.dev.TrackFade(id, gain, fadeMillis, false))
		return
	}
	e.check("track gain", e.dev.TrackGain(id, gain))
}

// BuildMusicCount derives the music track count from the total number of
// tracks on the device. A count outside (0, 5000) disables music.
func (e *Engine) BuildMusicCount(numTracks uint16) bool {
	count := int(numTracks) - int(e.cfg.LastEffectsTrack)
	return e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		if count > 0 && count < state.MaxMusicTracks {
			a.SetMusicCount(e.cfg.TrackOrigin, count)
			a.CurrentTrack = e.cfg.TrackOrigin
			log.Info().Int("tracks", count).Msg("Music tracks available")
			return true
		}
		a.SetMusicCount(e.cfg.TrackOrigin, 0)
		log.Warn().Int("count", count).Msg("Music track count out of range, storage corruption likely; music disabled")
		return false
	})
}

// PlayMusic starts the current music track unless paused.
func (e *Engine) PlayMusic() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		return e.playMusic(a)
	})
}

// StopMusic stops the current music track.
func (e *Engine) StopMusic() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		e.stopMusic(a)
		return true
	})
}

// ToggleMusic starts music when stopped and stops it when playing.
func (e *Engine) ToggleMusic() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		if a.Playing {
			e.stopMusic(a)
			return true
		}
		return e.playMusic(a)
	})
}

// PauseMusic pauses playback. It is a no-op when nothing is playing.
func (e *Engine) PauseMusic() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		if !a.Playing {
			return false
		}
		e.notify.NotifyCommand(protocol.CmdMusicIsPaused, 0)
		if e.playable(a) {
			e.check("track pause", e.dev.TrackPause(a.CurrentTrack))
		}
		e.check("update", e.dev.Update())
		a.Paused = true
		return true
	})
}

// ResumeMusic resumes paused playback.
func (e *Engine) ResumeMusic() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		if !a.Playing {
			return false
		}
		e.monitor.resumed()
		e.check("reset track counter", e.dev.ResetTrackCounter())
		if e.playable(a) {
			e.check("track resume", e.dev.TrackResume(a.CurrentTrack))
		}
		e.check("update", e.dev.Update())
		a.Paused = false
		e.notify.NotifyCommand(protocol.CmdMusicIsNotPaused, 0)
		return true
	})
}

// TogglePause pauses or resumes playback.
func (e *Engine) TogglePause() {
	_, a := e.ctx.Snapshot()
	if a.Paused {
		e.ResumeMusic()
		return
	}
	e.PauseMusic()
}

// NextTrack moves to the next music track, wrapping to the first.
func (e *Engine) NextTrack() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		e.switchTrack(a, a.NextTrackNumber())
		return true
	})
}

// PrevTrack moves to the previous music track, wrapping to the last.
func (e *Engine) PrevTrack() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		e.switchTrack(a, a.PrevTrackNumber())
		return true
	})
}

// PlayTrack switches to track and starts it. Tracks outside the music
// window are ignored.
func (e *Engine) PlayTrack(track uint16) bool {
	return e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		if !a.HasMusic() || track < a.MinTrack || track > a.MaxTrack {
			log.Debug().Uint16("track", track).Msg("Ignoring track outside the music window")
			return false
		}
		if a.Playing {
			e.stopMusic(a)
		}
		a.CurrentTrack = track
		return e.playMusic(a)
	})
}

// switchTrack stops the old track before the new id is assigned so the
// stop always targets what is actually playing.
func (e *Engine) switchTrack(a *state.Audio, next uint16) {
	if a.Playing {
		e.stopMusic(a)
		a.CurrentTrack = next
		e.playMusic(a)
		return
	}
	a.CurrentTrack = next
	e.notify.NotifyCommand(protocol.CmdMusicIsNotPlaying, a.CurrentTrack)
}

// ToggleLoop flips repeat for the current track.
func (e *Engine) ToggleLoop() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		a.Loop = !a.Loop
		if a.HasMusic() {
			e.check("track loop", e.dev.TrackLoop(a.CurrentTrack, a.Loop))
		}
		e.notify.NotifyCommand(protocol.CmdMusicTrackLoopToggle, wireBool(a.Loop))
		return true
	})
}

// SetMuted mutes or unmutes the master output.
func (e *Engine) SetMuted(muted bool) {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		if a.Muted == muted {
			return false
		}
		a.Muted = muted
		e.applyMaster(a)
		e.notify.NotifyCommand(protocol.CmdToggleMute, wireBool(muted))
		return true
	})
}

// ToggleMute flips the master mute.
func (e *Engine) ToggleMute() {
	_, a := e.ctx.Snapshot()
	e.SetMuted(!a.Muted)
}

// IncreaseMasterVolume raises master volume by one step.
func (e *Engine) IncreaseMasterVolume() { e.stepMaster(e.cfg.MasterStep) }

// DecreaseMasterVolume lowers master volume by one step.
func (e *Engine) DecreaseMasterVolume() { e.stepMaster(-e.cfg.MasterStep) }

func (e *Engine) stepMaster(delta int) {
	e.ctx.Mutate(func(s *state.System, a *state.Audio) bool {
		a.SetMasterPercent(a.MasterPercent() + delta)
		e.applyMaster(a)

		if !s.PackOn {
			// No running pack sounds to judge the level by.
			e.feedback(a, a.MasterGain())
		}
		e.notifyVolume(a)
		return true
	})
}

// IncreaseEffectsVolume raises effects volume by one step.
func (e *Engine) IncreaseEffectsVolume() { e.stepEffects(e.cfg.EffectsStep) }

// DecreaseEffectsVolume lowers effects volume by one step.
func (e *Engine) DecreaseEffectsVolume() { e.stepEffects(-e.cfg.EffectsStep) }

func (e *Engine) stepEffects(delta int) {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		target := a.EffectsPercent() + delta
		a.SetEffectsPercent(target)

		switch {
		case target > 100:
			e.feedback(a, a.EffectsGain())
		case target < 0:
			e.feedback(a, a.MasterGain()-e.caps.BeepOffset)
		}

		for id := range e.loops {
			e.check("track gain", e.dev.TrackGain(id, a.EffectsGain()))
		}
		e.notifyVolume(a)
		return true
	})
}

// IncreaseMusicVolume raises music volume by one step.
func (e *Engine) IncreaseMusicVolume() { e.stepMusic(e.cfg.MusicStep) }

// DecreaseMusicVolume lowers music volume by one step.
func (e *Engine) DecreaseMusicVolume() { e.stepMusic(-e.cfg.MusicStep) }

func (e *Engine) stepMusic(delta int) {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		a.SetMusicPercent(a.MusicPercent() + delta)
		if a.HasMusic() {
			e.check("track gain", e.dev.TrackGain(a.CurrentTrack, a.MusicGain()))
		}
		e.notifyVolume(a)
		return true
	})
}

// SetVolumes applies all three percentages at once, as received from a
// peer.
func (e *Engine) SetVolumes(master, effects, music int) {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		a.SetMasterPercent(master)
		a.SetEffectsPercent(effects)
		a.SetMusicPercent(music)
		e.applyMaster(a)
		for id := range e.loops {
			e.check("track gain", e.dev.TrackGain(id, a.EffectsGain()))
		}
		if a.HasMusic() {
			e.check("track gain", e.dev.TrackGain(a.CurrentTrack, a.MusicGain()))
		}
		e.notifyVolume(a)
		return true
	})
}

// Tick drives the completion monitor. Call it once per loop iteration.
func (e *Engine) Tick() {
	e.ctx.Mutate(func(_ *state.System, a *state.Audio) bool {
		return e.monitor.tick(e, a)
	})
}

func (e *Engine) playMusic(a *state.Audio) bool {
	if a.Paused || !e.playable(a) {
		return false
	}
	a.Playing = true

	e.check("track loop", e.dev.TrackLoop(a.CurrentTrack, a.Loop))
	e.check("track gain", e.dev.TrackGain(a.CurrentTrack, a.MusicGain()))
	e.check("track play", e.dev.TrackPlayPoly(a.CurrentTrack, true))
	e.check("update", e.dev.Update())
	e.check("reset track counter", e.dev.ResetTrackCounter())

	e.monitor.started()

	e.notify.NotifyCommand(protocol.CmdMusicIsPlaying, a.CurrentTrack)
	e.notify.NotifyCommand(protocol.CmdMusicIsNotPaused, 0)
	return true
}

func (e *Engine) stopMusic(a *state.Audio) {
	if e.playable(a) {
		e.check("track stop", e.dev.TrackStop(a.CurrentTrack))
	}
	e.check("update", e.dev.Update())

	a.Paused = false
	a.Playing = false
	e.monitor.stopped()

	e.notify.NotifyCommand(protocol.CmdMusicIsNotPlaying, a.CurrentTrack)
	e.notify.NotifyCommand(protocol.CmdMusicIsNotPaused, 0)
}

func (e *Engine) playable(a *state.Audio) bool {
	return a.HasMusic() && a.CurrentTrack >= e.cfg.TrackOrigin
}

func (e *Engine) applyMaster(a *state.Audio) {
	gain := a.MasterGain()
	if a.Muted {
		gain = a.Gains().AbsMin
	}
	e.check("master gain", e.dev.MasterGain(gain))
}

func (e *Engine) feedback(a *state.Audio, gain int) {
	e.StopEffect(e.cfg.FeedbackTrack)
	e.playEffect(a.Gains(), e.cfg.FeedbackTrack, false, gain, false, 0, true)
}

func (e *Engine) notifyVolume(a *state.Audio) {
	e.notify.NotifyVolume(uint8(a.MasterPercent()), uint8(a.EffectsPercent()), uint8(a.MusicPercent()))
}

func (e *Engine) check(op string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("device", e.caps.Name).Str("op", op).Msg("Audio device command failed")
	}
}

// wireBool encodes a flag the way mute and loop travel on the link.
func wireBool(v bool) uint16 {
	if v {
		return 2
	}
	return 1
}
