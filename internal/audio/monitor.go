package audio

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/timer"
)

// Phase is the state of track completion detection.
type Phase uint8

const (
	// PhaseIdle means no music is being watched.
	PhaseIdle Phase = iota
	// PhaseArmedFast polls the device on the fast interval while the
	// longer status window runs.
	PhaseArmedFast
	// PhaseConfirmPending means the status window has elapsed; every fast
	// poll now checks whether the device agrees the track ended.
	PhaseConfirmPending
	// PhaseAdvancing waits out the settle delay before the next track starts.
	PhaseAdvancing
)

func (p Phase) String() string {
	switch p {
	case PhaseArmedFast:
		return "armed-fast"
	case PhaseConfirmPending:
		return "confirm-pending"
	case PhaseAdvancing:
		return "advancing"
	default:
		return "idle"
	}
}

// Status windows are multiples of the fast check interval.
const (
	statusAfterPlay   = 10
	statusAfterResume = 4
)

// monitor infers track completion by polling. A track only counts as
// finished when the status window has elapsed, the device reports the
// track as not playing, and the track counter has not been reset.
type monitor struct {
	cfg    Config
	phase  Phase
	fast   *timer.Delay
	status *timer.Delay
	settle *timer.Delay
}

func newMonitor(clock clockwork.Clock, cfg Config) *monitor {
	return &monitor{
		cfg:    cfg,
		fast:   timer.New(clock),
		status: timer.New(clock),
		settle: timer.New(clock),
	}
}

func (m *monitor) started() {
	m.phase = PhaseArmedFast
	m.settle.Stop()
	m.fast.Start(m.cfg.CheckInterval)
	m.status.Start(m.cfg.CheckInterval * statusAfterPlay)
}

func (m *monitor) resumed() {
	if m.phase == PhaseIdle || m.phase == PhaseAdvancing {
		return
	}
	m.phase = PhaseArmedFast
	m.status.Start(m.cfg.CheckInterval * statusAfterResume)
}

func (m *monitor) stopped() {
	m.phase = PhaseIdle
	m.fast.Stop()
	m.status.Stop()
	m.settle.Stop()
}

// tick advances the monitor and reports whether audio state changed.
func (m *monitor) tick(e *Engine, a *state.Audio) bool {
	switch m.phase {
	case PhaseArmedFast, PhaseConfirmPending:
		if !m.fast.JustFinished() {
			return false
		}
		m.fast.Restart()
		e.check("request track status", e.dev.RequestTrackStatus(a.CurrentTrack))

		if !a.Playing || a.Paused || a.Loop {
			return false
		}

		if m.phase == PhaseArmedFast {
			if !m.status.JustFinished() {
				return false
			}
			m.phase = PhaseConfirmPending
		}
		return m.confirm(e, a)

	case PhaseAdvancing:
		if !m.settle.JustFinished() {
			return false
		}
		log.Debug().Uint16("track", a.CurrentTrack).Msg("Starting next music track")
		if !e.playMusic(a) {
			m.phase = PhaseIdle
		}
		return true
	}
	return false
}

func (m *monitor) confirm(e *Engine, a *state.Audio) bool {
	if e.dev.CurrentTrackStatus(a.CurrentTrack) {
		// Still playing: wait another, shorter window.
		m.phase = PhaseArmedFast
		m.status.Start(m.cfg.CheckInterval * statusAfterResume)
		return false
	}
	if e.dev.TrackCounterReset() {
		return false
	}

	log.Debug().Uint16("track", a.CurrentTrack).Msg("Music track finished")
	e.stopMusic(a)
	a.CurrentTrack = a.NextTrackNumber()

	m.phase = PhaseAdvancing
	m.settle.Start(m.cfg.NextTrackDelay)
	return true
}
