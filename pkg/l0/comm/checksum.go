package comm

// Checksum is the running two-byte checksum used by frames.
// The zero value is ready to use.
type Checksum struct {
	a, b byte
}

// AddByte accumulates one byte.
func (c *Checksum) AddByte(x byte) {
	c.a += x
	c.b += c.a
}

// Add accumulates all bytes in p.
func (c *Checksum) Add(p []byte) {
	for _, x := range p {
		c.AddByte(x)
	}
}

// Sum returns the two accumulators.
func (c *Checksum) Sum() (a, b byte) {
	return c.a, c.b
}

// Sum16 packs the accumulators as a + b*256.
func (c *Checksum) Sum16() uint16 {
	return pack16(c.a, c.b)
}

// ChecksumOf computes the checksum of p.
func ChecksumOf(p []byte) (a, b byte) {
	var c Checksum
	c.Add(p)
	return c.Sum()
}

func pack16(lo, hi byte) uint16 {
	return uint16(lo) | uint16(hi)<<8
}
