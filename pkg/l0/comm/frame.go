package comm

import (
	"io"
)

// Frame is an unescaped message id with its payload.
type Frame struct {
	ID      byte
	Payload []byte
}

// FrameOf encodes a message into a Frame.
func FrameOf(msg Message) Frame {
	id, payload := EncodeMessage(msg)
	return Frame{ID: id, Payload: payload}
}

// Checksum computes the checksum over id and payload.
func (f Frame) Checksum() (a, b byte) {
	var c Checksum
	c.AddByte(f.ID)
	c.Add(f.Payload)
	return c.Sum()
}

// Bytes returns the escaped frame for sending, starting with the
// frame-start marker.
func (f Frame) Bytes() []byte {
	a, b := f.Checksum()
	// worst case every byte is escaped.
	out := make([]byte, 0, 1+(len(f.Payload)+3)*2)
	out = append(out, frameStart)
	out = appendEscaped(out, f.ID)
	for _, x := range f.Payload {
		out = appendEscaped(out, x)
	}
	out = appendEscaped(out, a)
	return appendEscaped(out, b)
}

// WriteTo writes encoded bytes.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// EncodeFrame encodes id and payload into bytes for sending.
func EncodeFrame(id byte, payload []byte) []byte {
	return Frame{ID: id, Payload: payload}.Bytes()
}

// Encode encodes a message into bytes for sending.
func Encode(msg Message) []byte {
	return FrameOf(msg).Bytes()
}

func appendEscaped(out []byte, x byte) []byte {
	if x == frameStart || x == frameEsc {
		return append(out, frameEsc, x^escXor)
	}
	return append(out, x)
}
