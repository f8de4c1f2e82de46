package main

import (
	"github.com/rs/zerolog"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/infra/mpd"
	"github.com/edumarques81/packlink/internal/infra/store"
	"github.com/edumarques81/packlink/internal/link"
)

// statsSource is satisfied by *store.DB.
type statsSource interface {
	GetStats() (*store.Stats, error)
}

// statusReport builds the periodic "Status" line. stats and dev may be nil.
type statusReport struct {
	device  string
	ctx     *state.Context
	live    *link.Liveness
	dropped func() uint64
	stats   statsSource
	dev     any
}

func (r *statusReport) write(l zerolog.Logger) {
	sys, au := r.ctx.Snapshot()
	e := l.Info().
		Str("device", r.device).
		Bool("synced", !r.live.Waiting()).
		Object("system", sys).
		Object("audio", au)

	if r.dropped != nil {
		e = e.Uint64("dropped_frames", r.dropped())
	}
	if r.stats != nil {
		if st, err := r.stats.GetStats(); err == nil {
			e = e.Int("sessions", st.SessionCount).Int("stored_prefs", st.PrefsCount)
		}
	}
	if m, ok := r.dev.(interface{ Format() mpd.AudioFormat }); ok {
		if f := m.Format(); f.SampleRate > 0 {
			e = e.Stringer("output", f)
		}
	}
	e.Msg("Status")
}
