package protocol

import (
	"encoding/binary"
	"fmt"
)

// Encode frames rec with the sentinels of dir.
func Encode(dir Direction, rec Record) []byte {
	switch r := rec.(type) {
	case CommandPacket:
		return EncodeCommand(dir, r.Code, r.Arg)
	case MessagePacket:
		return EncodeMessage(dir, r.Code, r.Args)
	case *CommandPacket:
		return EncodeCommand(dir, r.Code, r.Arg)
	case *MessagePacket:
		return EncodeMessage(dir, r.Code, r.Args)
	default:
		return encodeRecord(dir, rec)
	}
}

// EncodeCommand frames a command packet.
func EncodeCommand(dir Direction, code Command, arg uint16) []byte {
	buf := make([]byte, CommandFrameSize)
	buf[0] = dir.Start
	buf[1] = byte(code)
	binary.LittleEndian.PutUint16(buf[2:4], arg)
	buf[4] = dir.End
	return buf
}

// EncodeMessage frames a data packet.
func EncodeMessage(dir Direction, code Message, args [MessageArgs]byte) []byte {
	buf := make([]byte, MessageFrameSize)
	buf[0] = dir.Start
	buf[1] = byte(code)
	copy(buf[2:5], args[:])
	buf[5] = dir.End
	return buf
}

func encodeRecord(dir Direction, rec Record) []byte {
	size := binary.Size(rec)
	if size < 0 {
		panic(fmt.Sprintf("protocol: %T is not a fixed-size record", rec))
	}
	buf := make([]byte, 0, size+SentinelSize)
	buf = append(buf, dir.Start)
	buf, err := binary.Append(buf, binary.LittleEndian, rec)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %T: %v", rec, err))
	}
	return append(buf, dir.End)
}

// Decode validates and decodes a frame received under tag, expecting the
// sentinels of dir. Failures are always *FramingError.
func Decode(tag Tag, dir Direction, data []byte) (Record, error) {
	switch tag {
	case TagCommand:
		return DecodeCommand(dir, data)
	case TagData:
		return DecodeMessage(dir, data)
	case TagFullSync:
		var rec SyncData
		err := decodeRecord(tag, dir, data, &rec)
		return rec, err
	case TagPackPrefs:
		var rec PackPrefs
		err := decodeRecord(tag, dir, data, &rec)
		return rec, err
	case TagWandPrefs:
		var rec WandPrefs
		err := decodeRecord(tag, dir, data, &rec)
		return rec, err
	case TagSmokePrefs:
		var rec SmokePrefs
		err := decodeRecord(tag, dir, data, &rec)
		return rec, err
	default:
		return nil, &FramingError{Tag: tag, Reason: ErrUnknownTag}
	}
}

// DecodeCommand validates and decodes a command frame.
func DecodeCommand(dir Direction, data []byte) (CommandPacket, error) {
	if err := checkFrame(TagCommand, dir, data, CommandFrameSize); err != nil {
		return CommandPacket{}, err
	}
	pkt := CommandPacket{
		Code: Command(data[1]),
		Arg:  binary.LittleEndian.Uint16(data[2:4]),
	}
	if pkt.Code == CmdNone {
		return CommandPacket{}, &FramingError{Tag: TagCommand, Reason: ErrEmptyCommand}
	}
	return pkt, nil
}

// DecodeMessage validates and decodes a data frame.
func DecodeMessage(dir Direction, data []byte) (MessagePacket, error) {
	if err := checkFrame(TagData, dir, data, MessageFrameSize); err != nil {
		return MessagePacket{}, err
	}
	pkt := MessagePacket{Code: Message(data[1])}
	copy(pkt.Args[:], data[2:5])
	if pkt.Code == MsgNone {
		return MessagePacket{}, &FramingError{Tag: TagData, Reason: ErrEmptyCommand}
	}
	return pkt, nil
}

func decodeRecord(tag Tag, dir Direction, data []byte, rec any) error {
	size := binary.Size(rec) + SentinelSize
	if err := checkFrame(tag, dir, data, size); err != nil {
		return err
	}
	if _, err := binary.Decode(data[1:size-1], binary.LittleEndian, rec); err != nil {
		return &FramingError{Tag: tag, Reason: fmt.Errorf("%w: %v", ErrShortFrame, err)}
	}
	return nil
}

// checkFrame verifies length and both sentinels. Trailing bytes beyond size
// are ignored; the end sentinel is read at its fixed offset.
func checkFrame(tag Tag, dir Direction, data []byte, size int) error {
	if len(data) < size {
		return &FramingError{Tag: tag, Reason: ErrShortFrame}
	}
	if data[0] != dir.Start || data[size-1] != dir.End {
		return &FramingError{Tag: tag, Reason: ErrBadSentinel}
	}
	return nil
}
