package comm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type chanReadWriter struct {
	readCh  <-chan byte
	writeCh chan byte
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	p[0] = <-c.readCh
	return 1, nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		c.writeCh <- b
	}
	return len(p), nil
}

// timeoutReadWriter behaves like a serial port with VTIME set: a read
// without data returns (0, io.EOF) after a short wait.
type timeoutReadWriter struct {
	chanReadWriter
	failCh chan error
}

func (c *timeoutReadWriter) Read(p []byte) (int, error) {
	select {
	case b := <-c.readCh:
		p[0] = b
		return 1, nil
	case err := <-c.failCh:
		return 0, err
	case <-time.After(2 * time.Millisecond):
		return 0, io.EOF
	}
}

type fifoTestEnv struct {
	t       *testing.T
	readCh  chan byte
	writeCh chan byte
	msgCh   chan Message
	errCh   chan error
	fifo    *FIFO
	cancel  func()
}

func newFIFOTestEnv(t *testing.T) *fifoTestEnv {
	env := &fifoTestEnv{
		t:       t,
		readCh:  make(chan byte, 64),
		writeCh: make(chan byte, 64),
		msgCh:   make(chan Message, 4),
		errCh:   make(chan error, 4),
	}
	env.fifo = NewFIFO(&chanReadWriter{readCh: env.readCh, writeCh: env.writeCh})
	env.fifo.Handler = HandleMessageFunc(func(ctx context.Context, msg Message) {
		env.msgCh <- msg
	})
	env.fifo.ErrorHandler = HandleErrorFunc(func(ctx context.Context, err error) {
		env.errCh <- err
	})
	return env
}

func (e *fifoTestEnv) run() *fifoTestEnv {
	var ctx context.Context
	ctx, e.cancel = context.WithCancel(context.TODO())
	go e.fifo.Run(ctx)
	return e
}

func (e *fifoTestEnv) inject(bs ...byte) *fifoTestEnv {
	for _, b := range bs {
		e.readCh <- b
	}
	return e
}

func (e *fifoTestEnv) expectMessage(msg Message) *fifoTestEnv {
	select {
	case m := <-e.msgCh:
		require.Equal(e.t, msg, m)
	case err := <-e.errCh:
		e.t.Fatalf("unexpected error: %v", err)
	case <-time.After(500 * time.Millisecond):
		e.t.Fatal("expect message timeout")
	}
	return e
}

func (e *fifoTestEnv) expectError(err error) *fifoTestEnv {
	select {
	case m := <-e.msgCh:
		e.t.Fatalf("unexpected message: %#v", m)
	case actual := <-e.errCh:
		require.Equal(e.t, err, actual)
	case <-time.After(500 * time.Millisecond):
		e.t.Fatal("expect error timeout")
	}
	return e
}

func (e *fifoTestEnv) expectWritten(bs []byte) *fifoTestEnv {
	for i, b := range bs {
		select {
		case actual := <-e.writeCh:
			require.Equalf(e.t, b, actual, "written[%d] mismatch", i)
		case <-time.After(500 * time.Millisecond):
			e.t.Fatalf("written[%d] timeout", i)
		}
	}
	return e
}

func TestFIFOReceive(t *testing.T) {
	env := newFIFOTestEnv(t).run()
	defer env.cancel()
	bulk := &BulkCapacitance{StartIndex: 0, Values: []uint16{4, 5}}
	active := &ActiveCapacitance{Baseline: 0x7e7e, Measurement: 0x7d7d}
	env.inject(Encode(bulk)...).expectMessage(bulk).
		inject(Encode(active)...).expectMessage(active)
	require.Equal(t, uint64(2), env.fifo.Stats().Messages)
}

func TestFIFOErrors(t *testing.T) {
	env := newFIFOTestEnv(t).run()
	defer env.cancel()
	bad := Encode(&ActiveCapacitance{Baseline: 0x1110, Measurement: 0x1312})
	bad[2] ^= 0x01
	ack := &CommandAck{AckedID: MoveStepperID}
	env.inject(bad...).expectError(&ChecksumError{Found: 0xb949, Expected: 0xbd4a}).
		inject(EncodeFrame(0x42, nil)...).expectError(&UnknownPacketIDError{ID: 0x42}).
		inject(Encode(ack)...).expectMessage(ack)
	stats := env.fifo.Stats()
	require.Equal(t, uint64(1), stats.ChecksumErrors)
	require.Equal(t, uint64(1), stats.UnknownIDs)
	require.Equal(t, uint64(1), stats.Messages)
}

func TestFIFOSend(t *testing.T) {
	env := newFIFOTestEnv(t)
	msg := &MoveStepper{Steps: -10, Period: 500}
	require.NoError(t, env.fifo.Send(msg))
	env.expectWritten(Encode(msg))
	require.NoError(t, env.fifo.SendFrame(Frame{ID: 0x7e}))
	env.expectWritten([]byte{0x7e, 0x7d, 0x5e, 0x7d, 0x5e, 0x7d, 0x5e})
}

func TestFIFOIdleReset(t *testing.T) {
	env := newFIFOTestEnv(t)
	env.fifo.IdleTimeout = 10 * time.Millisecond
	env.run()
	defer env.cancel()
	msg := &ActiveCapacitance{Baseline: 1, Measurement: 2}
	data := Encode(msg)
	env.inject(data[:4]...)
	deadline := time.Now().Add(time.Second)
	for env.fifo.Stats().IdleResets == 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle reset timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
	env.inject(data...).expectMessage(msg)
}

func TestFIFORunCanceled(t *testing.T) {
	env := newFIFOTestEnv(t)
	ctx, cancel := context.WithCancel(context.TODO())
	errCh := make(chan error, 1)
	go func() {
		errCh <- env.fifo.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("run not stopped")
	}
}

func TestFIFOReadTimeoutEOF(t *testing.T) {
	env := newFIFOTestEnv(t)
	rw := &timeoutReadWriter{
		chanReadWriter: chanReadWriter{readCh: env.readCh, writeCh: env.writeCh},
		failCh:         make(chan error, 1),
	}
	env.fifo.ReadWriter, env.fifo.ReadTimeout = rw, true
	env.fifo.IdleTimeout = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- env.fifo.Run(ctx)
	}()

	msg := &ActiveCapacitance{Baseline: 0x1110, Measurement: 0x1312}
	data := Encode(msg)
	env.inject(data[:3]...)
	deadline := time.Now().Add(time.Second)
	for env.fifo.Stats().IdleResets == 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle reset timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	env.inject(data...).expectMessage(msg)

	select {
	case err := <-runErrCh:
		t.Fatalf("run stopped on empty read: %v", err)
	default:
	}

	errBroken := errors.New("port gone")
	rw.failCh <- errBroken
	select {
	case err := <-runErrCh:
		require.Equal(t, errBroken, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("run not stopped on read error")
	}
}
