package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// sessionLog records link sessions. *store.DB implements it.
type sessionLog interface {
	StartSession(id, role string, at time.Time) error
	EndSession(id string, at time.Time) error
}

// sessionTracker mirrors liveness session changes into the session log.
type sessionTracker struct {
	log     sessionLog
	role    string
	clock   clockwork.Clock
	current uuid.UUID
}

func newSessionTracker(l sessionLog, role string, clock clockwork.Clock) *sessionTracker {
	return &sessionTracker{log: l, role: role, clock: clock}
}

// observe closes the previous session and opens the new one whenever the
// session id changes. uuid.Nil means no session.
func (t *sessionTracker) observe(id uuid.UUID) {
	if id == t.current {
		return
	}
	now := t.clock.Now()
	if t.log != nil && t.current != uuid.Nil {
		if err := t.log.EndSession(t.current.String(), now); err != nil {
			log.Warn().Err(err).Msg("Failed to close session")
		}
	}
	if t.log != nil && id != uuid.Nil {
		if err := t.log.StartSession(id.String(), t.role, now); err != nil {
			log.Warn().Err(err).Msg("Failed to record session")
		}
	}
	t.current = id
}
