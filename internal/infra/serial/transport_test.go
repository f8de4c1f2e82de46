package serial_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/edumarques81/packlink/internal/infra/serial"
	"github.com/edumarques81/packlink/internal/protocol"
)

// trickle hands out at most one byte per Read.
type trickle struct {
	bytes.Buffer
}

func (t *trickle) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return t.Buffer.Read(p)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		tag     protocol.Tag
		payload []byte
	}{
		{"command", protocol.TagCommand, protocol.EncodeCommand(protocol.PackToAttenuator, protocol.CmdFiring, 0)},
		{"empty", protocol.TagCommand, nil},
		{"single start byte", protocol.TagData, []byte{0x7E}},
		{"start bytes", protocol.TagData, []byte{0x7E, 0x01, 0x7E, 0x7E, 0x02, 0x00, 0x7E}},
		{"stop byte inside", protocol.TagPackPrefs, []byte{0x81, 0x81, 0x00}},
		{"full sync", protocol.TagFullSync, protocol.Encode(protocol.PackToAttenuator, protocol.SyncData{CurrentTrack: 0x7E7E, MusicCount: 126})},
		{"max size", protocol.TagSmokePrefs, bytes.Repeat([]byte{0x7E, 0x55}, serial.MaxPayloadSize/2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tr := serial.New(&buf)

			if err := tr.Send(tt.tag, tt.payload); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if n := tr.Available(); n != len(tt.payload) {
				t.Fatalf("Available() = %d, want %d", n, len(tt.payload))
			}
			if tr.CurrentPacketTag() != tt.tag {
				t.Errorf("tag = %v, want %v", tr.CurrentPacketTag(), tt.tag)
			}
			if !bytes.Equal(tr.Payload(), tt.payload) {
				t.Errorf("payload = %x, want %x", tr.Payload(), tt.payload)
			}
			if tr.Available() != 0 {
				t.Error("second Available() found another packet")
			}
		})
	}
}

func TestFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	tr := serial.New(&buf)

	if err := tr.Send(protocol.TagData, []byte{0x01, 0x7E, 0x02, 0x7E}); err != nil {
		t.Fatal(err)
	}

	got := buf.Bytes()
	want := []byte{0x7E, byte(protocol.TagData), 0x01, 0x04, 0x01, 0x02, 0x02, 0x00}
	if !bytes.Equal(got[:len(want)], want) {
		t.Errorf("frame head = %x, want %x", got[:len(want)], want)
	}
	if got[len(got)-1] != 0x81 {
		t.Errorf("stop byte = %x", got[len(got)-1])
	}
}

func TestSplitReads(t *testing.T) {
	var src bytes.Buffer
	writer := serial.New(&src)
	payload := protocol.EncodeMessage(protocol.AttenuatorToPack, protocol.MsgVolumeSync, [3]byte{0x7E, 50, 0x7E})
	if err := writer.Send(protocol.TagData, payload); err != nil {
		t.Fatal(err)
	}

	in := &trickle{}
	in.Write(src.Bytes())
	tr := serial.New(in)

	// One byte per read means several polls before the packet is whole.
	if n := tr.Available(); n != len(payload) {
		t.Fatalf("Available() = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(tr.Payload(), payload) {
		t.Errorf("payload = %x, want %x", tr.Payload(), payload)
	}
}

func TestBackToBackFrames(t *testing.T) {
	var buf bytes.Buffer
	tr := serial.New(&buf)

	first := protocol.EncodeCommand(protocol.AttenuatorToPack, protocol.CmdHandshake, 0)
	second := protocol.EncodeCommand(protocol.AttenuatorToPack, protocol.CmdSyncEnd, 0)
	_ = tr.Send(protocol.TagCommand, first)
	_ = tr.Send(protocol.TagCommand, second)

	for i, want := range [][]byte{first, second} {
		if tr.Available() == 0 {
			t.Fatalf("packet %d missing", i)
		}
		if !bytes.Equal(tr.Payload(), want) {
			t.Errorf("packet %d = %x, want %x", i, tr.Payload(), want)
		}
	}
}

func TestCorruptFramesDropped(t *testing.T) {
	var good bytes.Buffer
	_ = serial.New(&good).Send(protocol.TagCommand, []byte{1, 2, 3})
	frame := good.Bytes()

	badCRC := append([]byte(nil), frame...)
	badCRC[len(badCRC)-2] ^= 0xFF

	badStop := append([]byte(nil), frame...)
	badStop[len(badStop)-1] = 0x00

	tests := []struct {
		name string
		data []byte
	}{
		{"bad crc", badCRC},
		{"bad stop", badStop},
		{"noise", []byte{0x00, 0x13, 0x37}},
		{"oversized length", []byte{0x7E, 0x01, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			buf.Write(tt.data)
			tr := serial.New(&buf)

			if n := tr.Available(); n != 0 {
				t.Errorf("Available() = %d, want 0", n)
			}
		})
	}

	// A good frame after a bad one still gets through.
	var buf bytes.Buffer
	buf.Write(badCRC)
	buf.Write(frame)
	tr := serial.New(&buf)
	if tr.Available() != 3 {
		t.Fatal("good frame after corrupt one was lost")
	}
	if tr.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", tr.Dropped())
	}
}

func TestSendTooLarge(t *testing.T) {
	var buf bytes.Buffer
	tr := serial.New(&buf)

	err := tr.Send(protocol.TagData, make([]byte, serial.MaxPayloadSize+1))
	if !errors.Is(err, serial.ErrPayloadTooLarge) {
		t.Errorf("Send() error = %v, want ErrPayloadTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Error("oversized payload was written")
	}
}
