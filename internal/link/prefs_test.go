package link_test

import (
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/edumarques81/packlink/internal/link"
	"github.com/edumarques81/packlink/internal/protocol"
)

type memStore struct {
	frames map[protocol.Tag][]byte
	err    error
}

func newMemStore() *memStore {
	return &memStore{frames: make(map[protocol.Tag][]byte)}
}

func (m *memStore) SavePrefs(tag protocol.Tag, frame []byte) error {
	if m.err != nil {
		return m.err
	}
	m.frames[tag] = append([]byte(nil), frame...)
	return nil
}

func (m *memStore) LoadPrefs(tag protocol.Tag) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.frames[tag], nil
}

type prefsFixture struct {
	prefs     *link.Preferences
	live      *link.Liveness
	transport *fakeTransport
	store     *memStore
}

func newPrefsFixture() prefsFixture {
	tr := &fakeTransport{}
	live := link.NewLiveness(clockwork.NewFakeClock(), timeout)
	store := newMemStore()
	send := link.NewSender(tr, protocol.AttenuatorToPack)
	return prefsFixture{
		prefs:     link.NewPreferences(send, live, protocol.PackToAttenuator, store),
		live:      live,
		transport: tr,
		store:     store,
	}
}

func TestPreferencesRefusedBeforeSync(t *testing.T) {
	f := newPrefsFixture()
	frame := protocol.Encode(protocol.PackToAttenuator, protocol.WandPrefs{LedWandCount: 5})

	err := f.prefs.OnReceive(protocol.TagWandPrefs, frame)
	if !errors.Is(err, link.ErrNotSynced) {
		t.Fatalf("OnReceive() error = %v, want ErrNotSynced", err)
	}
	if f.prefs.Received(protocol.TagWandPrefs) || f.prefs.Wand() != (protocol.WandPrefs{}) {
		t.Error("refused blob was applied")
	}
	if len(f.store.frames) != 0 {
		t.Error("refused blob was persisted")
	}
}

func TestPreferencesReceive(t *testing.T) {
	tests := []struct {
		name  string
		rec   protocol.Record
		check func(*link.Preferences) bool
	}{
		{
			name:  "pack",
			rec:   protocol.PackPrefs{LedCycLidCount: 40, DefaultSystemVolume: 80},
			check: func(p *link.Preferences) bool { return p.Pack().LedCycLidCount == 40 && p.Pack().DefaultSystemVolume == 80 },
		},
		{
			name:  "wand",
			rec:   protocol.WandPrefs{LedWandCount: 5, QuickVenting: 1},
			check: func(p *link.Preferences) bool { return p.Wand().LedWandCount == 5 && p.Wand().QuickVenting == 1 },
		},
		{
			name:  "smoke",
			rec:   protocol.SmokePrefs{SmokeEnabled: 1, OverheatDelay: [5]uint8{60, 50, 40, 30, 20}},
			check: func(p *link.Preferences) bool { return p.Smoke().SmokeEnabled == 1 && p.Smoke().OverheatDelay[4] == 20 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPrefsFixture()
			f.live.Connect()
			frame := protocol.Encode(protocol.PackToAttenuator, tt.rec)

			if err := f.prefs.OnReceive(tt.rec.Tag(), frame); err != nil {
				t.Fatalf("OnReceive() error = %v", err)
			}
			if !tt.check(f.prefs) {
				t.Error("blob not applied")
			}
			if !f.prefs.Received(tt.rec.Tag()) {
				t.Error("blob not marked received")
			}
			if got := f.store.frames[tt.rec.Tag()]; string(got) != string(frame) {
				t.Errorf("stored frame = %x, want %x", got, frame)
			}
		})
	}
}

func TestPreferencesReceiveErrors(t *testing.T) {
	f := newPrefsFixture()
	f.live.Connect()

	if err := f.prefs.OnReceive(protocol.TagCommand, nil); !errors.Is(err, link.ErrNotPreferences) {
		t.Errorf("OnReceive(command) error = %v, want ErrNotPreferences", err)
	}

	short := protocol.Encode(protocol.PackToAttenuator, protocol.PackPrefs{})[:10]
	if err := f.prefs.OnReceive(protocol.TagPackPrefs, short); !errors.Is(err, protocol.ErrShortFrame) {
		t.Errorf("OnReceive(short) error = %v, want ErrShortFrame", err)
	}
	if f.prefs.Received(protocol.TagPackPrefs) {
		t.Error("short frame marked received")
	}

	f.store.err = errors.New("disk full")
	frame := protocol.Encode(protocol.PackToAttenuator, protocol.SmokePrefs{SmokeEnabled: 1})
	if err := f.prefs.OnReceive(protocol.TagSmokePrefs, frame); err == nil {
		t.Error("store failure not reported")
	}
	// The blob is still applied in memory.
	if f.prefs.Smoke().SmokeEnabled != 1 {
		t.Error("blob dropped on store failure")
	}
}

func TestPreferencesSend(t *testing.T) {
	f := newPrefsFixture()
	f.prefs.SetWand(protocol.WandPrefs{LedWandHue: 33})

	if err := f.prefs.Send(protocol.TagWandPrefs); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(f.transport.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(f.transport.sent))
	}

	sent := f.transport.sent[0]
	if sent.tag != protocol.TagWandPrefs {
		t.Errorf("tag = %v, want wand prefs", sent.tag)
	}
	rec, err := protocol.Decode(protocol.TagWandPrefs, protocol.AttenuatorToPack, sent.data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rec.(protocol.WandPrefs).LedWandHue != 33 {
		t.Errorf("sent blob = %+v", rec)
	}

	if err := f.prefs.Send(protocol.TagData); !errors.Is(err, link.ErrNotPreferences) {
		t.Errorf("Send(data) error = %v, want ErrNotPreferences", err)
	}
}

func TestPreferencesSaveAndRestore(t *testing.T) {
	f := newPrefsFixture()
	f.prefs.SetPack(protocol.PackPrefs{CyclotronDirection: 1})
	f.prefs.SetSmoke(protocol.SmokePrefs{SmokeEnabled: 1})

	for _, kind := range []protocol.Tag{protocol.TagPackPrefs, protocol.TagSmokePrefs} {
		if err := f.prefs.Save(kind); err != nil {
			t.Fatalf("Save(%v) error = %v", kind, err)
		}
	}

	send := link.NewSender(&fakeTransport{}, protocol.AttenuatorToPack)
	restored := link.NewPreferences(send, f.live, protocol.PackToAttenuator, f.store)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Pack().CyclotronDirection != 1 || restored.Smoke().SmokeEnabled != 1 {
		t.Errorf("restored pack=%+v smoke=%+v", restored.Pack(), restored.Smoke())
	}
	if restored.Wand() != (protocol.WandPrefs{}) {
		t.Error("missing wand blob was invented")
	}
	if restored.Received(protocol.TagPackPrefs) {
		t.Error("restored blob counted as received")
	}
}

func TestPreferencesRestoreSkipsCorruptFrames(t *testing.T) {
	f := newPrefsFixture()
	f.store.frames[protocol.TagWandPrefs] = []byte{0x00, 0x01}

	if err := f.prefs.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if f.prefs.Wand() != (protocol.WandPrefs{}) {
		t.Error("corrupt frame applied")
	}
}

func TestPreferencesWithoutStore(t *testing.T) {
	live := link.NewLiveness(clockwork.NewFakeClock(), timeout)
	live.Connect()
	p := link.NewPreferences(link.NewSender(&fakeTransport{}, protocol.AttenuatorToPack), live, protocol.PackToAttenuator, nil)

	frame := protocol.Encode(protocol.PackToAttenuator, protocol.WandPrefs{LedWandCount: 2})
	if err := p.OnReceive(protocol.TagWandPrefs, frame); err != nil {
		t.Errorf("OnReceive() error = %v", err)
	}
	if err := p.Save(protocol.TagWandPrefs); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := p.Restore(); err != nil {
		t.Errorf("Restore() error = %v", err)
	}
}
