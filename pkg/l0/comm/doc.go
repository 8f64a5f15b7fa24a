// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the host and the L0 controller
// firmware (electrode drivers, capacitance sensing, stepper motion) over
// a peer-to-peer byte stream, typically a UART.
//
// Each message is carried in one frame:
//
//	0x7E [id:1] [payload:N] [checksum_a:1] [checksum_b:1]
//
// 0x7E starts a frame and always resynchronizes the receiver. Any 0x7D or
// 0x7E inside id, payload or checksum is sent as 0x7D followed by the
// byte XOR 0x20. The checksum covers the unescaped id and payload.
// Payload length is derived from the id (and for some messages from the
// first payload bytes), so frames carry no length field.
//
// Parser consumes one byte at a time with a fixed 128-byte buffer and
// never allocates while buffering. FIFO and Client drive a Parser over an
// io.ReadWriter.
