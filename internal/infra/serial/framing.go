package serial

import (
	"errors"

	"github.com/sigurn/crc8"
)

// Frame layout on the wire:
//
//	0x7E | id | overhead | len | payload (stuffed) | crc | 0x81
//
// Every 0x7E inside the payload is replaced by the distance to the next
// one (0 for the last); overhead holds the index of the first, or 0xFF
// when the payload has none. The CRC covers the stuffed payload.
const (
	startByte      = 0x7E
	stopByte       = 0x81
	noOverhead     = 0xFF
	MaxPayloadSize = 0xFE
	frameOverhead  = 6
)

var (
	// ErrPayloadTooLarge is returned by Send for payloads over MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrCRC is reported when a received frame fails its checksum.
	ErrCRC = errors.New("crc mismatch")
	// ErrStopByte is reported when a frame does not end with the stop byte.
	ErrStopByte = errors.New("missing stop byte")
)

var crcTable = crc8.MakeTable(crc8.Params{
	Poly:   0x9B,
	Init:   0x00,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xEA,
	Name:   "CRC-8/LTE",
})

func checksum(data []byte) uint8 {
	return crc8.Checksum(data, crcTable)
}

// encodeFrame builds a complete frame around payload.
func encodeFrame(id uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	stuffed := append([]byte(nil), payload...)
	overhead := stuff(stuffed)

	buf := make([]byte, 0, len(stuffed)+frameOverhead)
	buf = append(buf, startByte, id, overhead, uint8(len(stuffed)))
	buf = append(buf, stuffed...)
	return append(buf, checksum(stuffed), stopByte), nil
}

// stuff rewrites start bytes in place and returns the overhead byte.
func stuff(p []byte) uint8 {
	overhead := uint8(noOverhead)
	next := -1
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != startByte {
			continue
		}
		if next < 0 {
			p[i] = 0
		} else {
			p[i] = uint8(next - i)
		}
		next = i
		overhead = uint8(i)
	}
	return overhead
}

// unstuff restores start bytes in place. A chain that runs past the
// payload is left as is; the frame is already CRC checked at that point.
func unstuff(p []byte, overhead uint8) {
	if overhead == noOverhead {
		return
	}
	i := int(overhead)
	for i < len(p) {
		delta := int(p[i])
		p[i] = startByte
		if delta == 0 {
			return
		}
		i += delta
	}
}

type parseState uint8

const (
	findStart parseState = iota
	findID
	findOverhead
	findLen
	findPayload
	findCRC
	findStop
)

// parser reassembles frames one byte at a time.
type parser struct {
	state    parseState
	id       uint8
	overhead uint8
	length   int
	payload  []byte
	crc      uint8
}

// feed consumes one byte. It returns done once a frame is complete, and a
// non-nil error when a frame was discarded.
func (p *parser) feed(b byte) (done bool, err error) {
	switch p.state {
	case findStart:
		if b == startByte {
			p.state = findID
		}
	case findID:
		p.id = b
		p.state = findOverhead
	case findOverhead:
		p.overhead = b
		p.state = findLen
	case findLen:
		if b > MaxPayloadSize {
			p.reset()
			return false, ErrPayloadTooLarge
		}
		p.length = int(b)
		p.payload = p.payload[:0]
		if p.length == 0 {
			p.state = findCRC
		} else {
			p.state = findPayload
		}
	case findPayload:
		p.payload = append(p.payload, b)
		if len(p.payload) == p.length {
			p.state = findCRC
		}
	case findCRC:
		if checksum(p.payload) != b {
			p.reset()
			return false, ErrCRC
		}
		p.state = findStop
	case findStop:
		p.state = findStart
		if b != stopByte {
			return false, ErrStopByte
		}
		unstuff(p.payload, p.overhead)
		return true, nil
	}
	return false, nil
}

func (p *parser) reset() {
	p.state = findStart
	p.payload = p.payload[:0]
}
