package protocol_test

import (
	"errors"
	"testing"

	"github.com/edumarques81/packlink/internal/protocol"
)

func TestEncodeCommandLayout(t *testing.T) {
	frame := protocol.EncodeCommand(protocol.AttenuatorToPack, protocol.CmdMusicPlayTrack, 0x01F5)

	want := []byte{0x3C, byte(protocol.CmdMusicPlayTrack), 0xF5, 0x01, 0x3E}
	if len(frame) != protocol.CommandFrameSize {
		t.Fatalf("frame size = %d, want %d", len(frame), protocol.CommandFrameSize)
	}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, frame[i], want[i])
		}
	}

	pkt, err := protocol.DecodeCommand(protocol.AttenuatorToPack, frame)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if pkt.Code != protocol.CmdMusicPlayTrack || pkt.Arg != 501 {
		t.Errorf("decoded %+v, want code %v arg 501", pkt, protocol.CmdMusicPlayTrack)
	}
}

func TestEncodeMessageLayout(t *testing.T) {
	frame := protocol.EncodeMessage(protocol.PackToAttenuator, protocol.MsgVolumeSync, [3]byte{80, 60, 40})

	want := []byte{0x7B, byte(protocol.MsgVolumeSync), 80, 60, 40, 0x7D}
	if len(frame) != len(want) {
		t.Fatalf("frame size = %d, want %d", len(frame), len(want))
	}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, frame[i], want[i])
		}
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	dir := protocol.PackToAttenuator
	sync := protocol.Encode(dir, protocol.SyncData{PackOn: 1})
	prefs := protocol.Encode(dir, protocol.WandPrefs{LedWandCount: 5})

	tests := []struct {
		name string
		tag  protocol.Tag
		data []byte
		want error
	}{
		{
			name: "command bad start",
			tag:  protocol.TagCommand,
			data: []byte{0x00, byte(protocol.CmdPackOn), 0, 0, dir.End},
			want: protocol.ErrBadSentinel,
		},
		{
			name: "command bad end",
			tag:  protocol.TagCommand,
			data: []byte{dir.Start, byte(protocol.CmdPackOn), 0, 0, 0x00},
			want: protocol.ErrBadSentinel,
		},
		{
			name: "command from wrong direction",
			tag:  protocol.TagCommand,
			data: protocol.EncodeCommand(protocol.AttenuatorToPack, protocol.CmdPackOn, 0),
			want: protocol.ErrBadSentinel,
		},
		{
			name: "command zero code",
			tag:  protocol.TagCommand,
			data: []byte{dir.Start, 0, 7, 0, dir.End},
			want: protocol.ErrEmptyCommand,
		},
		{
			name: "message zero code",
			tag:  protocol.TagData,
			data: []byte{dir.Start, 0, 1, 2, 3, dir.End},
			want: protocol.ErrEmptyCommand,
		},
		{
			name: "message too short",
			tag:  protocol.TagData,
			data: []byte{dir.Start, byte(protocol.MsgVolumeSync)},
			want: protocol.ErrShortFrame,
		},
		{
			name: "sync bad end",
			tag:  protocol.TagFullSync,
			data: func() []byte {
				b := append([]byte(nil), sync...)
				b[len(b)-1] = 0xAA
				return b
			}(),
			want: protocol.ErrBadSentinel,
		},
		{
			name: "prefs bad start",
			tag:  protocol.TagWandPrefs,
			data: func() []byte {
				b := append([]byte(nil), prefs...)
				b[0] = 0xAA
				return b
			}(),
			want: protocol.ErrBadSentinel,
		},
		{
			name: "prefs truncated",
			tag:  protocol.TagWandPrefs,
			data: prefs[:len(prefs)-3],
			want: protocol.ErrShortFrame,
		},
		{
			name: "unknown tag",
			tag:  protocol.Tag(42),
			data: []byte{dir.Start, 1, dir.End},
			want: protocol.ErrUnknownTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := protocol.Decode(tt.tag, dir, tt.data)
			if err == nil {
				t.Fatalf("Decode() = %+v, want error", rec)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			var fe *protocol.FramingError
			if !errors.As(err, &fe) {
				t.Errorf("Decode() error %T is not a *FramingError", err)
			}
		})
	}
}

func TestSyncDataFrame(t *testing.T) {
	in := protocol.SyncData{
		SystemMode:      1,
		IonArmSwitch:    2,
		SystemYear:      3,
		PackOn:          1,
		PowerLevel:      4,
		StreamMode:      7,
		SpeedMultiplier: 3,
		MasterVolume:    90,
		TrackLooped:     2,
		CurrentTrack:    0x0203,
		MusicCount:      12,
	}

	frame := protocol.Encode(protocol.PackToAttenuator, in)
	if len(frame) != protocol.SyncFrameSize {
		t.Fatalf("sync frame size = %d, want %d", len(frame), protocol.SyncFrameSize)
	}

	// CurrentTrack follows the 23 single-byte fields, little-endian.
	if frame[24] != 0x03 || frame[25] != 0x02 {
		t.Errorf("current track bytes = %#x %#x, want 0x03 0x02", frame[24], frame[25])
	}

	rec, err := protocol.Decode(protocol.TagFullSync, protocol.PackToAttenuator, frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	out, ok := rec.(protocol.SyncData)
	if !ok {
		t.Fatalf("Decode() returned %T, want SyncData", rec)
	}
	if out != in {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

func TestPrefsFrameSizes(t *testing.T) {
	tests := []struct {
		rec  protocol.Record
		size int
	}{
		{protocol.PackPrefs{}, protocol.PackPrefsFrameSize},
		{protocol.WandPrefs{}, protocol.WandPrefsFrameSize},
		{protocol.SmokePrefs{}, protocol.SmokePrefsFrameSize},
	}

	for _, tt := range tests {
		t.Run(tt.rec.Tag().String(), func(t *testing.T) {
			frame := protocol.Encode(protocol.AttenuatorToPack, tt.rec)
			if len(frame) != tt.size {
				t.Errorf("frame size = %d, want %d", len(frame), tt.size)
			}
			if _, err := protocol.Decode(tt.rec.Tag(), protocol.AttenuatorToPack, frame); err != nil {
				t.Errorf("Decode() error = %v", err)
			}
		})
	}
}

func TestSmokePrefsForLevel(t *testing.T) {
	p := protocol.SmokePrefs{
		OverheatDelay: [5]uint8{50, 40, 30, 20, 10},
	}

	if _, _, _, delay := p.ForLevel(1); delay != 10 {
		t.Errorf("level 1 delay = %d, want 10", delay)
	}
	if _, _, _, delay := p.ForLevel(5); delay != 50 {
		t.Errorf("level 5 delay = %d, want 50", delay)
	}
	if c, d, l, delay := p.ForLevel(9); c+d+l+delay != 0 {
		t.Error("out of range level should return zeros")
	}
}

func TestCommandCodes(t *testing.T) {
	if protocol.CmdNone.Known() {
		t.Error("zero command must not be known")
	}
	if !protocol.CmdWandPowerAmps.Known() {
		t.Error("wand current command should be known")
	}
	if protocol.Command(250).Known() {
		t.Error("unassigned command should not be known")
	}
	if got := protocol.Command(250).String(); got != "command(250)" {
		t.Errorf("String() = %q", got)
	}
	if got := protocol.CmdHandshake.String(); got != "handshake" {
		t.Errorf("String() = %q", got)
	}
	if protocol.MsgSavePrefsSmoke.PrefsTag() != protocol.TagSmokePrefs {
		t.Error("save-prefs-smoke should map to the smoke prefs tag")
	}
	if protocol.MsgVolumeSync.PrefsTag() != protocol.TagUnknown {
		t.Error("volume sync is not a preferences message")
	}
}

func TestDirectionReverse(t *testing.T) {
	if protocol.PackToAttenuator.Reverse() != protocol.AttenuatorToPack {
		t.Error("reverse of pack->attenuator should be attenuator->pack")
	}
	if protocol.AttenuatorToPack.Reverse() != protocol.PackToAttenuator {
		t.Error("reverse of attenuator->pack should be pack->attenuator")
	}
}
