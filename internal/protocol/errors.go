package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrBadSentinel  = errors.New("sentinel mismatch")
	ErrEmptyCommand = errors.New("empty command code")
	ErrShortFrame   = errors.New("frame shorter than record")
	ErrUnknownTag   = errors.New("unknown packet tag")
)

// FramingError reports a frame that failed validation. The frame is dropped
// by the receiver; the link's heartbeat takes care of retransmission.
type FramingError struct {
	Tag    Tag
	Reason error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("%s frame: %v", e.Tag, e.Reason)
}

func (e *FramingError) Unwrap() error {
	return e.Reason
}
