// Package link implements the peer protocol between the pack and the
// attenuator: command dispatch, liveness, state sync and preferences.
package link

import "github.com/edumarques81/packlink/internal/protocol"

// Transport delivers whole packets identified by a tag.
//
// Available reports the payload length of a complete packet, or zero when
// none is ready. The packet stays current until the next Available call.
type Transport interface {
	Available() int
	CurrentPacketTag() protocol.Tag
	Payload() []byte
	Send(tag protocol.Tag, payload []byte) error
}

// packet is one frame taken off the transport.
type packet struct {
	tag  protocol.Tag
	data []byte
}

func receive(t Transport) (packet, bool) {
	if t.Available() <= 0 {
		return packet{}, false
	}
	return packet{tag: t.CurrentPacketTag(), data: t.Payload()}, true
}
