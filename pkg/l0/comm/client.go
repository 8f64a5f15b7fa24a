package comm

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Result is the result of a command using Do.
type Result struct {
	Err error
	Ack *CommandAck
}

// Client provides host side operations over FIFO.
type Client struct {
	fifo     *FIFO
	eventCh  chan Message
	cmdsHead *Command
	cmdsTail *Command
	cmdsLock sync.Mutex
}

// Command represents a pending command waiting for ack.
type Command struct {
	msgID    byte
	resultCh chan Result
	next     *Command
}

// MsgID returns the id of the command message.
func (c *Command) MsgID() byte {
	return c.msgID
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// DefaultEventQueueSize is the buffered size of EventChan.
const DefaultEventQueueSize = 16

// NewClient creates client and wraps the fifo.
func NewClient(fifo *FIFO) *Client {
	c := &Client{
		fifo:    fifo,
		eventCh: make(chan Message, DefaultEventQueueSize),
	}
	c.fifo.Handler = c
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// EventChan retrieves the chan of messages which are not acks.
// Events are dropped when the chan is full.
func (c *Client) EventChan() <-chan Message {
	return c.eventCh
}

// DoWith sends a command and expects a result in the provided chan.
// Messages not acknowledged by the controller complete immediately.
func (c *Client) DoWith(msg Message, ch chan Result) *Command {
	cmd := &Command{msgID: msg.ID(), resultCh: ch}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	if err := c.fifo.Send(msg); err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	if !IsCommand(cmd.msgID) {
		cmd.resultCh <- Result{}
		return cmd
	}
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	return cmd
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(msg Message) *Command {
	return c.DoWith(msg, make(chan Result, 1))
}

// Cancel removes a command still waiting for ack, so a later ack with
// the same id completes the next command instead.
// It returns false if the command already completed.
func (c *Client) Cancel(cmd *Command) bool {
	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	var prev *Command
	for curr := c.cmdsHead; curr != nil; prev, curr = curr, curr.next {
		if curr != cmd {
			continue
		}
		if prev == nil {
			c.cmdsHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.cmdsTail == curr {
			c.cmdsTail = prev
		}
		curr.next = nil
		return true
	}
	return false
}

// HandleMessage implements MessageHandler.
func (c *Client) HandleMessage(ctx context.Context, msg Message) {
	ack, ok := msg.(*CommandAck)
	if !ok {
		select {
		case c.eventCh <- msg:
		default:
			glog.V(2).Infof("event %s dropped", MessageName(msg))
		}
		return
	}
	c.cmdsLock.Lock()
	head := c.cmdsHead
	curr := c.cmdsHead
	for ; curr != nil; curr = curr.next {
		if curr.msgID == ack.AckedID {
			if c.cmdsHead = curr.next; c.cmdsHead == nil {
				c.cmdsTail = nil
			}
			curr.next = nil
			break
		}
	}
	c.cmdsLock.Unlock()
	if curr == nil {
		glog.V(1).Infof("unexpected ack for id %d", ack.AckedID)
		return
	}
	for ; head != curr; head = head.next {
		head.resultCh <- Result{Err: ErrNoReply}
	}
	curr.resultCh <- Result{Ack: ack}
}

// Run wraps FIFO.Run to implement Runnable.
// Pending commands fail with ErrClosed when it returns.
func (c *Client) Run(ctx context.Context) error {
	err := c.fifo.Run(ctx)
	c.cmdsLock.Lock()
	head := c.cmdsHead
	c.cmdsHead, c.cmdsTail = nil, nil
	c.cmdsLock.Unlock()
	for ; head != nil; head = head.next {
		head.resultCh <- Result{Err: ErrClosed}
	}
	return err
}
