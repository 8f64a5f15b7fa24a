package comm

const (
	frameStart byte = 0x7e
	frameEsc   byte = 0x7d
	escXor     byte = 0x20
)

// Parser parses bytes received into messages.
// The zero value is ready to use. A Parser serves one stream and is not
// safe for concurrent use.
type Parser struct {
	escaping bool
	buffer   RecvBuffer
}

// Reset discards the in-progress frame.
func (p *Parser) Reset() {
	p.escaping = false
	p.buffer.Reset()
}

// Pending returns the number of unescaped bytes of the in-progress frame.
func (p *Parser) Pending() int {
	return p.buffer.Len()
}

// Parse consumes one byte. It returns a message when the byte completes
// a valid frame, or an error when the frame is rejected. Both are nil
// otherwise. After a message or an error, the parser starts a new frame.
func (p *Parser) Parse(b byte) (Message, error) {
	if p.escaping {
		b ^= escXor
		p.escaping = false
	} else if b == frameEsc {
		p.escaping = true
		return nil, nil
	} else if b == frameStart {
		p.Reset()
		return nil, nil
	}

	if err := p.buffer.Push(b); err != nil {
		// oversized frame is dropped silently.
		p.Reset()
		return nil, nil
	}
	if !p.buffer.IsComplete() {
		return nil, nil
	}

	defer p.Reset()
	foundA, foundB := p.buffer.Trailer()
	expA, expB := p.buffer.CalcChecksum()
	if foundA != expA || foundB != expB {
		return nil, &ChecksumError{Found: pack16(foundA, foundB), Expected: pack16(expA, expB)}
	}
	id, _ := p.buffer.ID()
	return DecodeMessage(id, p.buffer.Payload())
}
