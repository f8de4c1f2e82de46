package link

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/protocol"
	"github.com/edumarques81/packlink/internal/timer"
)

// DefaultHeartbeatInterval paces the pack's handshakes.
const DefaultHeartbeatInterval = 3250 * time.Millisecond

// Player is the playback control surface the attenuator may drive.
// *audio.Engine implements it.
type Player interface {
	ToggleMusic()
	TogglePause()
	NextTrack()
	PrevTrack()
	PlayTrack(track uint16) bool
	ToggleLoop()
	ToggleMute()
	IncreaseMasterVolume()
	DecreaseMasterVolume()
	IncreaseEffectsVolume()
	DecreaseEffectsVolume()
	IncreaseMusicVolume()
	DecreaseMusicVolume()
}

// PackPeer is the pack side of the protocol. It heartbeats the
// attenuator, answers sync demands with a full state dump and applies the
// attenuator's playback and volume controls.
type PackPeer struct {
	transport Transport
	inbound   protocol.Direction
	ctx       *state.Context
	player    Player

	send  *Sender
	live  *Liveness
	prefs *Preferences

	heartbeat *timer.Delay
}

// NewPackPeer creates the pack role. The pack reads frames sent by the
// attenuator and replies in the pack's own direction.
func NewPackPeer(t Transport, ctx *state.Context, player Player, opts Options) *PackPeer {
	opts = opts.withDefaults()
	inbound := protocol.AttenuatorToPack
	send := NewSender(t, inbound.Reverse())
	live := NewLiveness(opts.Clock, opts.PeerTimeout)

	p := &PackPeer{
		transport: t,
		inbound:   inbound,
		ctx:       ctx,
		player:    player,
		send:      send,
		live:      live,
		prefs:     NewPreferences(send, live, inbound, opts.Store),
		heartbeat: timer.New(opts.Clock),
	}
	p.heartbeat.Start(opts.HeartbeatInterval)
	return p
}

func (p *PackPeer) Sender() *Sender           { return p.send }
func (p *PackPeer) Liveness() *Liveness       { return p.live }
func (p *PackPeer) Preferences() *Preferences { return p.prefs }

// Connected reports whether the attenuator has completed a sync.
func (p *PackPeer) Connected() bool {
	return !p.live.Waiting()
}

// Tick sends a handshake whenever the heartbeat interval elapses.
func (p *PackPeer) Tick() {
	if !p.heartbeat.JustFinished() {
		return
	}
	p.heartbeat.Restart()
	if err := p.send.Command(protocol.CmdHandshake, 0); err != nil {
		log.Warn().Err(err).Msg("Heartbeat failed")
	}
}

// Poll handles at most one inbound packet.
func (p *PackPeer) Poll() Result {
	pkt, ok := receive(p.transport)
	if !ok {
		return Result{}
	}
	res := p.handle(pkt)
	res.Tag = pkt.tag
	if res.Err != nil {
		log.Debug().Err(res.Err).Stringer("tag", pkt.tag).Msg("Dropped packet")
	}
	return res
}

func (p *PackPeer) handle(pkt packet) Result {
	switch pkt.tag {
	case protocol.TagCommand:
		cmd, err := protocol.DecodeCommand(p.inbound, pkt.data)
		if err != nil {
			return Result{Err: err}
		}
		p.live.Touch()
		return p.command(cmd.Code, cmd.Arg)

	case protocol.TagData:
		if p.live.Waiting() {
			return Result{Rejected: true}
		}
		msg, err := protocol.DecodeMessage(p.inbound, pkt.data)
		if err != nil {
			return Result{Err: err}
		}
		p.live.Touch()
		if kind := msg.Code.PrefsTag(); kind != protocol.TagUnknown {
			return Result{Err: p.prefs.Save(kind)}
		}
		return Result{}

	case protocol.TagPackPrefs, protocol.TagWandPrefs, protocol.TagSmokePrefs:
		err := p.prefs.OnReceive(pkt.tag, pkt.data)
		if errors.Is(err, ErrNotSynced) {
			return Result{Rejected: true}
		}
		if err == nil {
			p.live.Touch()
		}
		return Result{Err: err}
	}

	return Result{Err: &protocol.FramingError{Tag: pkt.tag, Reason: protocol.ErrUnknownTag}}
}

func (p *PackPeer) command(code protocol.Command, arg uint16) Result {
	switch code {
	case protocol.CmdHandshake:
		// Heartbeat answered.
		return Result{}
	case protocol.CmdSyncStart:
		p.sync()
		return Result{}
	case protocol.CmdSyncEnd:
		if p.live.Waiting() {
			p.live.Connect()
			return Result{Changed: true}
		}
		return Result{}
	}

	if p.live.Waiting() {
		return Result{Rejected: true}
	}

	switch code {
	case protocol.CmdMusicStartStop:
		p.player.ToggleMusic()
	case protocol.CmdMusicPauseResume:
		p.player.TogglePause()
	case protocol.CmdMusicNextTrack:
		p.player.NextTrack()
	case protocol.CmdMusicPrevTrack:
		p.player.PrevTrack()
	case protocol.CmdMusicPlayTrack:
		return Result{Changed: p.player.PlayTrack(arg)}
	case protocol.CmdMusicTrackLoopToggle:
		p.player.ToggleLoop()
	case protocol.CmdToggleMute:
		p.player.ToggleMute()
	case protocol.CmdVolumeIncrease:
		p.player.IncreaseMasterVolume()
	case protocol.CmdVolumeDecrease:
		p.player.DecreaseMasterVolume()
	case protocol.CmdVolumeEffectsIncrease:
		p.player.IncreaseEffectsVolume()
	case protocol.CmdVolumeEffectsDecrease:
		p.player.DecreaseEffectsVolume()
	case protocol.CmdVolumeMusicIncrease:
		p.player.IncreaseMusicVolume()
	case protocol.CmdVolumeMusicDecrease:
		p.player.DecreaseMusicVolume()
	default:
		return Result{}
	}
	return Result{Changed: true}
}

// sync streams the full state: sync start, the state record, the music
// track count and sync end, in that order. Preferences the pack holds
// follow sync end, once the attenuator accepts them.
func (p *PackPeer) sync() {
	sys, au := p.ctx.Snapshot()

	steps := []func() error{
		func() error { return p.send.Command(protocol.CmdSyncStart, 0) },
		func() error { return p.send.Record(BuildFullSync(sys, au)) },
		func() error { return p.send.Command(protocol.CmdMusicTrackCountSync, au.MusicCount) },
		func() error { return p.send.Command(protocol.CmdSyncEnd, 0) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			log.Warn().Err(err).Msg("Sync to attenuator failed")
			return
		}
	}
	log.Debug().Msg("Sent full sync")

	if err := p.prefs.SendHeld(); err != nil {
		log.Warn().Err(err).Msg("Sending preferences failed")
	}
}

// Disconnected reports, once, that the attenuator went silent.
func (p *PackPeer) Disconnected() bool {
	return p.live.Expired()
}

// Reset returns to waiting for the attenuator.
func (p *PackPeer) Reset() {
	p.live.Reset()
}
