package link

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/protocol"
)

// Sender encodes outbound frames with the sentinels of one direction.
type Sender struct {
	t   Transport
	dir protocol.Direction
}

// NewSender creates a sender writing frames for dir.
func NewSender(t Transport, dir protocol.Direction) *Sender {
	return &Sender{t: t, dir: dir}
}

// Command sends a command frame.
func (s *Sender) Command(code protocol.Command, arg uint16) error {
	if err := s.t.Send(protocol.TagCommand, protocol.EncodeCommand(s.dir, code, arg)); err != nil {
		return fmt.Errorf("send %s: %w", code, err)
	}
	log.Debug().Stringer("code", code).Uint16("arg", arg).Msg("Sent command")
	return nil
}

// Message sends a data frame.
func (s *Sender) Message(code protocol.Message, args [protocol.MessageArgs]byte) error {
	if err := s.t.Send(protocol.TagData, protocol.EncodeMessage(s.dir, code, args)); err != nil {
		return fmt.Errorf("send %s: %w", code, err)
	}
	log.Debug().Stringer("code", code).Msg("Sent message")
	return nil
}

// Record sends a sync or preferences record under its own tag.
func (s *Sender) Record(rec protocol.Record) error {
	if err := s.t.Send(rec.Tag(), protocol.Encode(s.dir, rec)); err != nil {
		return fmt.Errorf("send %s record: %w", rec.Tag(), err)
	}
	return nil
}

// NotifyCommand sends a command and logs failures. It lets the audio engine
// report playback changes without handling transport errors.
func (s *Sender) NotifyCommand(code protocol.Command, arg uint16) {
	if err := s.Command(code, arg); err != nil {
		log.Warn().Err(err).Msg("Failed to notify peer")
	}
}

// NotifyVolume sends the three volume percentages.
func (s *Sender) NotifyVolume(master, effects, music uint8) {
	if err := s.Message(protocol.MsgVolumeSync, [protocol.MessageArgs]byte{master, effects, music}); err != nil {
		log.Warn().Err(err).Msg("Failed to sync volume")
	}
}
