package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// MessageHandler is called when a message is received.
type MessageHandler interface {
	HandleMessage(context.Context, Message)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(context.Context, Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// ErrorHandler is called when a received frame is rejected.
type ErrorHandler interface {
	HandleError(context.Context, error)
}

// HandleErrorFunc is func type of ErrorHandler.
type HandleErrorFunc func(context.Context, error)

// HandleError implements ErrorHandler.
func (f HandleErrorFunc) HandleError(ctx context.Context, err error) {
	f(ctx, err)
}

// Stats counts the outcome of received frames.
type Stats struct {
	Messages       uint64
	ChecksumErrors uint64
	UnknownIDs     uint64
	DecodeErrors   uint64
	IdleResets     uint64
}

// FIFO send/recv messages.
type FIFO struct {
	stats Stats // updated atomically, first for 64-bit alignment

	ReadWriter   io.ReadWriter
	Handler      MessageHandler
	ErrorHandler ErrorHandler
	// IdleTimeout discards a partially received frame when no byte
	// arrives within the duration. Zero disables it.
	IdleTimeout time.Duration
	ReadTimeout bool // set to true if ReadWriter already supports timeout with Read, empty io.EOF reads are timeouts

	sendLock  sync.Mutex
	idleTimer <-chan time.Time
	parser    Parser
}

// DefaultIdleTimeout is the default IdleTimeout of a FIFO.
const DefaultIdleTimeout = 100 * time.Millisecond

// NewFIFO creates a FIFO.
func NewFIFO(rw io.ReadWriter) *FIFO {
	return &FIFO{
		ReadWriter:  rw,
		IdleTimeout: DefaultIdleTimeout,
	}
}

// Stats returns a snapshot of the counters.
func (f *FIFO) Stats() Stats {
	return Stats{
		Messages:       atomic.LoadUint64(&f.stats.Messages),
		ChecksumErrors: atomic.LoadUint64(&f.stats.ChecksumErrors),
		UnknownIDs:     atomic.LoadUint64(&f.stats.UnknownIDs),
		DecodeErrors:   atomic.LoadUint64(&f.stats.DecodeErrors),
		IdleResets:     atomic.LoadUint64(&f.stats.IdleResets),
	}
}

// Send sends a message.
func (f *FIFO) Send(msg Message) error {
	return f.SendFrame(FrameOf(msg))
}

// SendFrame sends a raw frame.
func (f *FIFO) SendFrame(frame Frame) error {
	f.sendLock.Lock()
	defer f.sendLock.Unlock()
	if glog.V(2) {
		glog.Infof("SND id=%d len=%d", frame.ID, len(frame.Payload))
	}
	_, err := frame.WriteTo(f.ReadWriter)
	return err
}

// Run processes the FIFO in the background.
func (f *FIFO) Run(ctx context.Context) error {
	f.parser.Reset()
	f.idleTimer = nil

	if f.ReadTimeout {
		buf := make([]byte, 1)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.idleTimer:
				f.idle()
			default:
				n, err := f.ReadWriter.Read(buf)
				if n > 0 {
					f.parseByte(ctx, buf[0])
				}
				if err != nil && !isReadTimeout(n, err) {
					return err
				}
			}
		}
	}

	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, byteCh, errCh)
	for {
		select {
		case b := <-byteCh:
			f.parseByte(ctx, b)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-f.idleTimer:
			f.idle()
		}
	}
}

// isReadTimeout tells if a failed Read only timed out. Serial ports in
// non-canonical mode with VTIME report an empty read as io.EOF.
func isReadTimeout(n int, err error) bool {
	return os.IsTimeout(err) || (n == 0 && err == io.EOF)
}

func (f *FIFO) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 256)
	for {
		n, err := f.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			select {
			case byteCh <- b:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (f *FIFO) idle() {
	f.idleTimer = nil
	if f.parser.Pending() > 0 {
		glog.V(2).Infof("idle reset, %d bytes discarded", f.parser.Pending())
		atomic.AddUint64(&f.stats.IdleResets, 1)
		f.parser.Reset()
	}
}

func (f *FIFO) parseByte(ctx context.Context, b byte) {
	msg, err := f.parser.Parse(b)
	if f.IdleTimeout > 0 {
		if f.parser.Pending() > 0 {
			f.idleTimer = time.After(f.IdleTimeout)
		} else {
			f.idleTimer = nil
		}
	}
	if err != nil {
		f.countError(err)
		if h := f.ErrorHandler; h != nil {
			h.HandleError(ctx, err)
		} else {
			glog.V(1).Infof("frame dropped: %v", err)
		}
		return
	}
	if msg == nil {
		return
	}
	atomic.AddUint64(&f.stats.Messages, 1)
	if glog.V(2) {
		glog.Infof("RCV %s", MessageName(msg))
	}
	if h := f.Handler; h != nil {
		h.HandleMessage(ctx, msg)
	}
}

func (f *FIFO) countError(err error) {
	switch err.(type) {
	case *ChecksumError:
		atomic.AddUint64(&f.stats.ChecksumErrors, 1)
	case *UnknownPacketIDError:
		atomic.AddUint64(&f.stats.UnknownIDs, 1)
	default:
		atomic.AddUint64(&f.stats.DecodeErrors, 1)
	}
}
