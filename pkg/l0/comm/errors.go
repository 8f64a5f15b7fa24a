package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeOverrun indicates a frame doesn't fit in the receive buffer.
	ErrSizeOverrun = errors.New("frame longer than max message size")
	// ErrDeserialization indicates the payload can't be decoded into
	// the message identified by the frame.
	ErrDeserialization = errors.New("failed parsing payload into message")
	// ErrNoReply indicates no ack received for a command.
	// This happens when an ack is received for a latter command, and all
	// previous commands fail with this error.
	ErrNoReply = errors.New("no reply")
	// ErrClosed indicates the client stopped before the command completed.
	ErrClosed = errors.New("closed")
)

// ChecksumError reports a complete frame failing checksum validation.
// Both values are packed as a + b*256.
type ChecksumError struct {
	Found    uint16
	Expected uint16
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("mismatched checksum: found %x, expected %x", e.Found, e.Expected)
}

// UnknownPacketIDError reports a frame with an id not in the catalog.
type UnknownPacketIDError struct {
	ID byte
}

// Error implements error.
func (e *UnknownPacketIDError) Error() string {
	return fmt.Sprintf("unrecognized packet id 0x%x", e.ID)
}
