package link_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edumarques81/packlink/internal/bargraph"
	"github.com/edumarques81/packlink/internal/domain/state"
	"github.com/edumarques81/packlink/internal/link"
	"github.com/edumarques81/packlink/internal/protocol"
)

type frame struct {
	tag  protocol.Tag
	data []byte
}

// fakeTransport queues inbound frames and records outbound ones.
type fakeTransport struct {
	inbox   []frame
	current frame
	sent    []frame
}

func (f *fakeTransport) Available() int {
	if len(f.inbox) == 0 {
		f.current = frame{}
		return 0
	}
	f.current, f.inbox = f.inbox[0], f.inbox[1:]
	return len(f.current.data)
}

func (f *fakeTransport) CurrentPacketTag() protocol.Tag { return f.current.tag }
func (f *fakeTransport) Payload() []byte                { return f.current.data }

func (f *fakeTransport) Send(tag protocol.Tag, payload []byte) error {
	f.sent = append(f.sent, frame{tag, append([]byte(nil), payload...)})
	return nil
}

func (f *fakeTransport) push(tag protocol.Tag, data []byte) {
	f.inbox = append(f.inbox, frame{tag, data})
}

func (f *fakeTransport) pushCommand(dir protocol.Direction, code protocol.Command, arg uint16) {
	f.push(protocol.TagCommand, protocol.EncodeCommand(dir, code, arg))
}

// sentCommands decodes every outbound command frame.
func (f *fakeTransport) sentCommands(t *testing.T, dir protocol.Direction) []protocol.CommandPacket {
	t.Helper()
	var out []protocol.CommandPacket
	for _, fr := range f.sent {
		if fr.tag != protocol.TagCommand {
			continue
		}
		pkt, err := protocol.DecodeCommand(dir, fr.data)
		if err != nil {
			t.Fatalf("outbound command frame %x: %v", fr.data, err)
		}
		out = append(out, pkt)
	}
	return out
}

const timeout = 8 * time.Second

type attenuator struct {
	link      *link.Link
	transport *fakeTransport
	ctx       *state.Context
	bar       *bargraph.Model
	clock     interface{ Advance(time.Duration) }
}

func newAttenuator(t *testing.T) *attenuator {
	t.Helper()
	tr := &fakeTransport{}
	ctx := state.NewContext(state.NewSystem(), state.NewAudio(state.DefaultGains(), 100, 100, 100))
	bar := bargraph.New()
	clock := clockwork.NewFakeClock()

	l := link.New(tr, protocol.PackToAttenuator, ctx, bar, link.Options{
		Clock:       clock,
		PeerTimeout: timeout,
	})
	return &attenuator{link: l, transport: tr, ctx: ctx, bar: bar, clock: clock}
}

// command delivers one command from the pack and polls it.
func (a *attenuator) command(code protocol.Command, arg uint16) link.Result {
	a.transport.pushCommand(protocol.PackToAttenuator, code, arg)
	return a.link.Poll()
}

// synced completes the handshake and clears outbound traffic.
func (a *attenuator) synced(t *testing.T) {
	t.Helper()
	a.command(protocol.CmdSyncEnd, 0)
	if a.link.Liveness().Waiting() {
		t.Fatal("sync end did not complete the sync")
	}
	a.transport.sent = nil
}

func (a *attenuator) snapshot() (state.System, state.Audio) {
	return a.ctx.Snapshot()
}
