package link

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/timer"
)

// DefaultPeerTimeout is how long a synced peer may stay silent before it is
// considered gone.
const DefaultPeerTimeout = 8 * time.Second

// Liveness tracks whether the peer has completed a sync and is still
// talking. It starts out waiting for the peer.
type Liveness struct {
	waiting bool
	expiry  *timer.Delay
	timeout time.Duration
	session uuid.UUID
}

// NewLiveness creates a session in the waiting state.
func NewLiveness(clock clockwork.Clock, timeout time.Duration) *Liveness {
	if timeout <= 0 {
		timeout = DefaultPeerTimeout
	}
	return &Liveness{
		waiting: true,
		expiry:  timer.New(clock),
		timeout: timeout,
	}
}

// Waiting reports whether the peer has yet to complete a sync.
func (l *Liveness) Waiting() bool {
	return l.waiting
}

// Connect marks the sync complete and arms the expiry timer. Each
// connection gets a fresh session id for log correlation.
func (l *Liveness) Connect() {
	l.waiting = false
	l.session = uuid.New()
	l.expiry.Start(l.timeout)
	log.Info().Str("session", l.session.String()).Dur("timeout", l.timeout).Msg("Peer synchronized")
}

// Touch records proof of life from a synced peer.
func (l *Liveness) Touch() {
	if !l.waiting && l.expiry.IsRunning() {
		l.expiry.Restart()
	}
}

// Expired reports, once, that a synced peer went silent for the whole
// timeout.
func (l *Liveness) Expired() bool {
	if l.waiting {
		return false
	}
	return l.expiry.JustFinished()
}

// Reset returns to waiting for the peer.
func (l *Liveness) Reset() {
	if !l.waiting {
		log.Info().Str("session", l.session.String()).Msg("Peer session closed")
	}
	l.waiting = true
	l.expiry.Stop()
	l.session = uuid.Nil
}

// Session returns the id of the current connection, or uuid.Nil while
// waiting.
func (l *Liveness) Session() uuid.UUID {
	return l.session
}
