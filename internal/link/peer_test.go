package link_test

import (
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/link"
	"github.com/edumarques81/packlink/internal/protocol"
)

type fakePlayer struct {
	calls []string
	// outside makes PlayTrack refuse every track.
	outside bool
}

func (p *fakePlayer) record(name string)     { p.calls = append(p.calls, name) }
func (p *fakePlayer) ToggleMusic()           { p.record("toggle-music") }
func (p *fakePlayer) TogglePause()           { p.record("toggle-pause") }
func (p *fakePlayer) NextTrack()             { p.record("next") }
func (p *fakePlayer) PrevTrack()             { p.record("prev") }
func (p *fakePlayer) ToggleLoop()            { p.record("loop") }
func (p *fakePlayer) ToggleMute()            { p.record("mute") }
func (p *fakePlayer) IncreaseMasterVolume()  { p.record("master+") }
func (p *fakePlayer) DecreaseMasterVolume()  { p.record("master-") }
func (p *fakePlayer) IncreaseEffectsVolume() { p.record("effects+") }
func (p *fakePlayer) DecreaseEffectsVolume() { p.record("effects-") }
func (p *fakePlayer) IncreaseMusicVolume()   { p.record("music+") }
func (p *fakePlayer) DecreaseMusicVolume()   { p.record("music-") }

func (p *fakePlayer) PlayTrack(track uint16) bool {
	p.record("play")
	return !p.outside
}

type pack struct {
	peer      *link.PackPeer
	transport *fakeTransport
	player    *fakePlayer
	store     *memStore
	clock     interface{ Advance(time.Duration) }
}

func newPack(t *testing.T, sys state.System, au state.Audio) *pack {
	t.Helper()
	tr := &fakeTransport{}
	player := &fakePlayer{}
	store := newMemStore()
	clock := clockwork.NewFakeClock()

	peer := link.NewPackPeer(tr, state.NewContext(sys, au), player, link.Options{
		Clock:       clock,
		PeerTimeout: timeout,
		Store:       store,
	})
	return &pack{peer: peer, transport: tr, player: player, store: store, clock: clock}
}

func (p *pack) command(code protocol.Command, arg uint16) link.Result {
	p.transport.pushCommand(protocol.AttenuatorToPack, code, arg)
	return p.peer.Poll()
}

func (p *pack) connect(t *testing.T) {
	t.Helper()
	if res := p.command(protocol.CmdSyncEnd, 0); !res.Changed {
		t.Fatal("sync end did not connect")
	}
	p.transport.sent = nil
}

func TestPackHeartbeat(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))

	p.peer.Tick()
	if len(p.transport.sent) != 0 {
		t.Fatal("heartbeat sent before the interval")
	}

	for i := 1; i <= 3; i++ {
		p.clock.Advance(link.DefaultHeartbeatInterval)
		p.peer.Tick()
		if got := len(p.transport.sentCommands(t, protocol.PackToAttenuator)); got != i {
			t.Fatalf("after %d intervals sent %d handshakes", i, got)
		}
	}
	for _, cmd := range p.transport.sentCommands(t, protocol.PackToAttenuator) {
		if cmd.Code != protocol.CmdHandshake {
			t.Errorf("heartbeat sent %v", cmd.Code)
		}
	}
}

func TestPackAnswersSyncDemand(t *testing.T) {
	sys := state.NewSystem()
	sys.PackOn = true
	sys.Year = state.Year1989
	au := state.NewAudio(state.DefaultGains(), 100, 80, 60)
	au.SetMusicCount(protocol.MusicTrackOrigin, 9)
	au.CurrentTrack = 503

	p := newPack(t, sys, au)
	p.command(protocol.CmdSyncStart, 0)

	var tags []protocol.Tag
	for _, fr := range p.transport.sent {
		tags = append(tags, fr.tag)
	}
	wantTags := []protocol.Tag{protocol.TagCommand, protocol.TagFullSync, protocol.TagCommand, protocol.TagCommand}
	if !slices.Equal(tags, wantTags) {
		t.Fatalf("sent tags = %v, want %v", tags, wantTags)
	}

	cmds := p.transport.sentCommands(t, protocol.PackToAttenuator)
	want := []protocol.CommandPacket{
		{Code: protocol.CmdSyncStart},
		{Code: protocol.CmdMusicTrackCountSync, Arg: 9},
		{Code: protocol.CmdSyncEnd},
	}
	if !slices.Equal(cmds, want) {
		t.Errorf("commands = %+v, want %+v", cmds, want)
	}

	rec, err := protocol.Decode(protocol.TagFullSync, protocol.PackToAttenuator, p.transport.sent[1].data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	data := rec.(protocol.SyncData)
	if data.PackOn != 1 || data.SystemYear != 2 || data.CurrentTrack != 503 || data.MusicVolume != 60 {
		t.Errorf("sync record = %+v", data)
	}
}

func TestPackRejectsControlsBeforeSync(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))

	res := p.command(protocol.CmdMusicStartStop, 0)
	if !res.Rejected {
		t.Errorf("Poll() = %+v, want rejected", res)
	}
	if len(p.player.calls) != 0 {
		t.Errorf("player called while waiting: %v", p.player.calls)
	}
	if p.peer.Connected() {
		t.Error("connected without sync")
	}
}

func TestPackControls(t *testing.T) {
	tests := []struct {
		code protocol.Command
		want string
	}{
		{protocol.CmdMusicStartStop, "toggle-music"},
		{protocol.CmdMusicPauseResume, "toggle-pause"},
		{protocol.CmdMusicNextTrack, "next"},
		{protocol.CmdMusicPrevTrack, "prev"},
		{protocol.CmdMusicPlayTrack, "play"},
		{protocol.CmdMusicTrackLoopToggle, "loop"},
		{protocol.CmdToggleMute, "mute"},
		{protocol.CmdVolumeIncrease, "master+"},
		{protocol.CmdVolumeDecrease, "master-"},
		{protocol.CmdVolumeEffectsIncrease, "effects+"},
		{protocol.CmdVolumeEffectsDecrease, "effects-"},
		{protocol.CmdVolumeMusicIncrease, "music+"},
		{protocol.CmdVolumeMusicDecrease, "music-"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
			p.connect(t)

			res := p.command(tt.code, 501)
			if !res.Changed {
				t.Errorf("Poll() = %+v, want change", res)
			}
			if !slices.Equal(p.player.calls, []string{tt.want}) {
				t.Errorf("player calls = %v, want [%s]", p.player.calls, tt.want)
			}
		})
	}
}

func TestPackPlayTrackOutsideWindow(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	p.connect(t)
	p.player.outside = true

	if res := p.command(protocol.CmdMusicPlayTrack, 9000); res.Changed || res.Rejected {
		t.Errorf("Poll() = %+v, want unchanged", res)
	}
	if !slices.Equal(p.player.calls, []string{"play"}) {
		t.Errorf("player calls = %v", p.player.calls)
	}
}

func TestPackSyncSendsHeldPreferences(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	p.store.frames[protocol.TagSmokePrefs] = protocol.Encode(protocol.AttenuatorToPack, protocol.SmokePrefs{SmokeEnabled: 1})
	if err := p.peer.Preferences().Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	p.peer.Preferences().SetWand(protocol.WandPrefs{LedWandCount: 5})

	p.command(protocol.CmdSyncStart, 0)

	var tags []protocol.Tag
	for _, fr := range p.transport.sent {
		tags = append(tags, fr.tag)
	}
	want := []protocol.Tag{
		protocol.TagCommand, protocol.TagFullSync, protocol.TagCommand, protocol.TagCommand,
		protocol.TagWandPrefs, protocol.TagSmokePrefs,
	}
	if !slices.Equal(tags, want) {
		t.Fatalf("sent tags = %v, want %v", tags, want)
	}

	// Replay the stream into an attenuator: the blobs land after sync end.
	a := newAttenuator(t)
	for _, fr := range p.transport.sent {
		a.transport.push(fr.tag, fr.data)
		if res := a.link.Poll(); res.Rejected || res.Err != nil {
			t.Fatalf("%v: Poll() = %+v", fr.tag, res)
		}
	}
	prefs := a.link.Preferences()
	if !prefs.Received(protocol.TagWandPrefs) || !prefs.Received(protocol.TagSmokePrefs) || prefs.Received(protocol.TagPackPrefs) {
		t.Error("attenuator did not receive exactly the held blobs")
	}
	if prefs.Wand().LedWandCount != 5 || prefs.Smoke().SmokeEnabled != 1 {
		t.Errorf("wand/smoke = %+v/%+v", prefs.Wand(), prefs.Smoke())
	}
}

func TestPackIgnoresPackSideCommands(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	p.connect(t)

	if res := p.command(protocol.CmdFiring, 0); res.Changed || res.Rejected {
		t.Errorf("Poll() = %+v, want ignored", res)
	}
	if len(p.player.calls) != 0 {
		t.Errorf("player calls = %v", p.player.calls)
	}
}

func TestPackSavePreferencesMessage(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	p.connect(t)

	frame := protocol.Encode(protocol.AttenuatorToPack, protocol.WandPrefs{LedWandCount: 5})
	p.transport.push(protocol.TagWandPrefs, frame)
	if res := p.peer.Poll(); res.Err != nil {
		t.Fatalf("Poll() error = %v", res.Err)
	}
	if p.peer.Preferences().Wand().LedWandCount != 5 {
		t.Fatal("wand preferences not applied")
	}

	delete(p.store.frames, protocol.TagWandPrefs)
	p.transport.push(protocol.TagData, protocol.EncodeMessage(protocol.AttenuatorToPack, protocol.MsgSavePrefsWand, [3]byte{}))
	if res := p.peer.Poll(); res.Err != nil {
		t.Fatalf("Poll() error = %v", res.Err)
	}
	if _, ok := p.store.frames[protocol.TagWandPrefs]; !ok {
		t.Error("save request did not persist wand preferences")
	}
}

func TestPackDisconnect(t *testing.T) {
	p := newPack(t, state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	p.connect(t)

	p.clock.Advance(timeout)
	if !p.peer.Disconnected() {
		t.Fatal("silent attenuator not reported")
	}
	p.peer.Reset()
	if p.peer.Connected() {
		t.Error("still connected after Reset()")
	}
}
