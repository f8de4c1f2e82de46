// Package serial carries link packets over a UART using the framing of
// the SerialTransfer Arduino library, so the Go side can talk to stock
// pack and attenuator firmware.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/edumarques81/packlink/internal/protocol"
)

// DefaultBaudRate matches the firmware UART setup.
const DefaultBaudRate = 9600

// ReadTimeout bounds each non-blocking poll of the port.
const ReadTimeout = 5 * time.Millisecond

// Transport implements link.Transport on top of a byte stream.
type Transport struct {
	mu sync.Mutex
	rw io.ReadWriter

	parser  parser
	pending []byte
	readBuf [256]byte

	tag     protocol.Tag
	payload []byte

	dropped uint64
}

// New wraps an already open stream. Reads must not block for long; a
// serial port opened with Open is configured accordingly.
func New(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw}
}

// Open opens a serial device at the given baud rate.
func Open(path string, baud int) (*Transport, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	log.Info().Str("device", path).Int("baud", baud).Msg("Serial port opened")
	return New(port), nil
}

// Close closes the underlying stream when it supports closing.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Available reads whatever bytes are waiting and returns the payload length
// of the next complete packet, or zero if none is ready yet.
func (t *Transport) Available() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tag, t.payload = protocol.TagUnknown, nil

	for {
		if len(t.pending) == 0 {
			n, err := t.rw.Read(t.readBuf[:])
			if err != nil && !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("Serial read failed")
			}
			if n == 0 {
				return 0
			}
			t.pending = t.readBuf[:n]
		}

		for i, b := range t.pending {
			done, err := t.parser.feed(b)
			if err != nil {
				t.dropped++
				log.Debug().Err(err).Uint64("dropped", t.dropped).Msg("Discarded serial frame")
				continue
			}
			if done {
				t.pending = t.pending[i+1:]
				t.tag = protocol.Tag(t.parser.id)
				t.payload = append([]byte(nil), t.parser.payload...)
				return len(t.payload)
			}
		}
		t.pending = nil
	}
}

// CurrentPacketTag returns the tag of the packet found by Available.
func (t *Transport) CurrentPacketTag() protocol.Tag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tag
}

// Payload returns the packet found by Available.
func (t *Transport) Payload() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.payload
}

// Send frames and writes one packet.
func (t *Transport) Send(tag protocol.Tag, payload []byte) error {
	frame, err := encodeFrame(uint8(tag), payload)
	if err != nil {
		return fmt.Errorf("send %s: %w", tag, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.rw.Write(frame); err != nil {
		return fmt.Errorf("send %s: %w", tag, err)
	}
	return nil
}

// Dropped returns the number of frames discarded for bad framing.
func (t *Transport) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
