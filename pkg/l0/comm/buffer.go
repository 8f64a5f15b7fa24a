package comm

// MaxFrameSize is the capacity of the receive buffer: id, payload and
// the two checksum bytes of one unescaped frame.
const MaxFrameSize = 128

// RecvBuffer holds the unescaped bytes of one in-progress frame.
type RecvBuffer struct {
	count  int
	buffer [MaxFrameSize]byte
}

// Len returns the number of bytes held.
func (r *RecvBuffer) Len() int {
	return r.count
}

// Push appends a byte. It fails with ErrSizeOverrun when the buffer is
// full, and the byte is not stored.
func (r *RecvBuffer) Push(b byte) error {
	if r.count >= MaxFrameSize {
		return ErrSizeOverrun
	}
	r.buffer[r.count] = b
	r.count++
	return nil
}

// Reset discards all bytes.
func (r *RecvBuffer) Reset() {
	r.count = 0
}

// ID returns the message id once received.
func (r *RecvBuffer) ID() (byte, bool) {
	if r.count < 1 {
		return 0, false
	}
	return r.buffer[0], true
}

// Payload returns the bytes between the id and the checksum trailer.
// The returned slice aliases the buffer.
func (r *RecvBuffer) Payload() []byte {
	if r.count < 3 {
		return nil
	}
	return r.buffer[1 : r.count-2]
}

// Trailer returns the received checksum bytes.
func (r *RecvBuffer) Trailer() (a, b byte) {
	if r.count < 3 {
		return 0, 0
	}
	return r.buffer[r.count-2], r.buffer[r.count-1]
}

// CalcChecksum computes the checksum over id and payload.
func (r *RecvBuffer) CalcChecksum() (a, b byte) {
	if r.count < 3 {
		return 0, 0
	}
	return ChecksumOf(r.buffer[:r.count-2])
}

// IsComplete reports whether the buffer holds exactly one whole frame.
// The size probe sees every byte after the id, since until the frame is
// complete it can't tell payload from trailer.
func (r *RecvBuffer) IsComplete() bool {
	id, ok := r.ID()
	if !ok {
		return false
	}
	size, ok := SizeProbe(id, r.buffer[1:r.count])
	if !ok {
		return false
	}
	return r.count == size+3
}
