package link

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/protocol"
)

// Options configures a Link or PackPeer.
type Options struct {
	Clock         clockwork.Clock
	PeerTimeout   time.Duration
	BlinkInterval time.Duration
	// HeartbeatInterval paces handshakes sent by the pack role.
	HeartbeatInterval time.Duration
	TrackOrigin       uint16
	Store             PrefsStore
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.TrackOrigin == 0 {
		o.TrackOrigin = protocol.MusicTrackOrigin
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return o
}

// Result describes what one Poll did.
type Result struct {
	// Tag of the packet handled, TagUnknown when none was available.
	Tag protocol.Tag
	// Changed is set when observable state changed.
	Changed bool
	// Rejected is set when the packet was refused because the peer has
	// not synced.
	Rejected bool
	// Err holds framing or preference errors. The packet was dropped.
	Err error
}

// Link is the attenuator side of the protocol: it consumes packets from
// the pack and mirrors the pack's state locally.
type Link struct {
	transport Transport
	inbound   protocol.Direction
	origin    uint16
	ctx       *state.Context

	send       *Sender
	live       *Liveness
	dispatcher *Dispatcher
	prefs      *Preferences

	// pending holds a sync record that arrived before the sync completed.
	pending *protocol.SyncData
}

// New creates a link reading frames sent in the inbound direction and
// replying in the reverse one.
func New(t Transport, inbound protocol.Direction, ctx *state.Context, bar Bargraph, opts Options) *Link {
	opts = opts.withDefaults()
	send := NewSender(t, inbound.Reverse())
	live := NewLiveness(opts.Clock, opts.PeerTimeout)

	return &Link{
		transport:  t,
		inbound:    inbound,
		origin:     opts.TrackOrigin,
		ctx:        ctx,
		send:       send,
		live:       live,
		dispatcher: NewDispatcher(ctx, bar, live, send, opts.Clock, opts.BlinkInterval, opts.TrackOrigin),
		prefs:      NewPreferences(send, live, inbound, opts.Store),
	}
}

func (l *Link) Sender() *Sender           { return l.send }
func (l *Link) Liveness() *Liveness       { return l.live }
func (l *Link) Dispatcher() *Dispatcher   { return l.dispatcher }
func (l *Link) Preferences() *Preferences { return l.prefs }

// Poll handles at most one inbound packet.
func (l *Link) Poll() Result {
	pkt, ok := receive(l.transport)
	if !ok {
		return Result{}
	}
	res := l.handle(pkt)
	res.Tag = pkt.tag

	if res.Err != nil {
		log.Debug().Err(res.Err).Stringer("tag", pkt.tag).Msg("Dropped packet")
	}
	return res
}

func (l *Link) handle(pkt packet) Result {
	switch pkt.tag {
	case protocol.TagCommand:
		cmd, err := protocol.DecodeCommand(l.inbound, pkt.data)
		if err != nil {
			return Result{Err: err}
		}
		l.live.Touch()
		log.Debug().Stringer("code", cmd.Code).Uint16("arg", cmd.Arg).Msg("Received command")
		if l.live.Waiting() && !syncCommand(cmd.Code) {
			return Result{Rejected: true}
		}

		changed := false
		if cmd.Code == protocol.CmdSyncEnd && l.pending != nil {
			l.ctx.Mutate(func(s *state.System, a *state.Audio) bool {
				ApplyFullSync(s, a, *l.pending, l.origin)
				return true
			})
			l.pending = nil
			changed = true
		}
		return Result{Changed: l.dispatcher.Handle(cmd.Code, cmd.Arg) || changed}

	case protocol.TagData:
		if l.live.Waiting() {
			return Result{Rejected: true}
		}
		msg, err := protocol.DecodeMessage(l.inbound, pkt.data)
		if err != nil {
			return Result{Err: err}
		}
		l.live.Touch()
		return Result{Changed: l.dispatcher.HandleMessage(msg.Code, msg.Args)}

	case protocol.TagPackPrefs, protocol.TagWandPrefs, protocol.TagSmokePrefs:
		err := l.prefs.OnReceive(pkt.tag, pkt.data)
		if errors.Is(err, ErrNotSynced) {
			return Result{Rejected: true}
		}
		if err != nil {
			return Result{Err: err}
		}
		l.live.Touch()
		return Result{}

	case protocol.TagFullSync:
		rec, err := protocol.Decode(protocol.TagFullSync, l.inbound, pkt.data)
		if err != nil {
			return Result{Err: err}
		}
		data := rec.(protocol.SyncData)
		if l.live.Waiting() {
			// Applied when the sync completes.
			l.pending = &data
			log.Debug().Msg("Holding sync record until sync end")
			return Result{}
		}
		l.live.Touch()
		l.ctx.Mutate(func(s *state.System, a *state.Audio) bool {
			ApplyFullSync(s, a, data, l.origin)
			return true
		})
		return Result{Changed: true}
	}

	return Result{Err: &protocol.FramingError{Tag: pkt.tag, Reason: protocol.ErrUnknownTag}}
}

// syncCommand reports whether code belongs to the sync stream and so is
// accepted before the peer has synced.
func syncCommand(code protocol.Command) bool {
	switch code {
	case protocol.CmdHandshake, protocol.CmdSyncStart, protocol.CmdSyncEnd, protocol.CmdMusicTrackCountSync:
		return true
	}
	return false
}

// Tick advances timers owned by the link.
func (l *Link) Tick() {
	l.dispatcher.Tick()
}

// Disconnected reports, once, that the synced peer went silent.
func (l *Link) Disconnected() bool {
	return l.live.Expired()
}

// Reset returns to waiting for the peer and drops any held sync record.
func (l *Link) Reset() {
	l.live.Reset()
	l.pending = nil
}
