package sh

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/purpledrop.go/pkg/env"
	fx "github.com/robotalks/purpledrop.go/pkg/framework"
	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
	"github.com/robotalks/purpledrop.go/pkg/l1/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config

	connLock sync.Mutex
	conn     *Conn
}

// Conn is a running client over an opened device.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Device string
	Client *comm.Client

	doneCh chan struct{}
}

// Close stops the client and waits until the device is closed.
func (c *Conn) Close() {
	c.Cancel()
	<-c.doneCh
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// DefaultTimeout is the default time to wait for acks and events.
	DefaultTimeout = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = DefaultTimeout

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Time to wait for acks and events.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn() == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// PrintMessage prints a message in the selected output format.
func PrintMessage(c *ishell.Context, msg comm.Message) error {
	if ShellFrom(c).OutputJSON {
		out, err := msgs.MarshalJSON(msg)
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(out)
		return nil
	}
	c.Println(FormatMessage(msg))
	return nil
}

// FormatMessage prints a message into friendly string for display.
func FormatMessage(msg comm.Message) string {
	name := comm.MessageName(msg)
	switch m := msg.(type) {
	case *comm.ElectrodeEnable:
		return fmt.Sprintf("%s pins=%v", name, m.Pins())
	case *comm.DriveEnable:
		return fmt.Sprintf("%s enabled=%v", name, m.Enabled)
	case *comm.BulkCapacitance:
		return fmt.Sprintf("%s start=%d values=%v", name, m.StartIndex, m.Values)
	case *comm.ActiveCapacitance:
		return fmt.Sprintf("%s baseline=%d measurement=%d", name, m.Baseline, m.Measurement)
	case *comm.CommandAck:
		return fmt.Sprintf("%s acked=%d", name, m.AckedID)
	case *comm.MoveStepper:
		return fmt.Sprintf("%s steps=%d period=%d", name, m.Steps, m.Period)
	}
	return name
}

// DoCommand runs a command and waits for result.
func DoCommand(c *ishell.Context, msg comm.Message) (err error) {
	s := ShellFrom(c)
	conn := s.Conn()
	if conn == nil {
		err = fmt.Errorf("not connected")
		c.Err(err)
		return
	}
	res, err := WaitResult(conn.Client, conn.Client.Do(msg), s.Timeout)
	if err != nil {
		c.Err(fmt.Errorf("command timeout"))
		return err
	}
	if res.Err != nil {
		c.Err(res.Err)
		return res.Err
	}
	if res.Ack == nil {
		c.Println("SENT")
		return nil
	}
	if s.OutputJSON {
		return PrintMessage(c, res.Ack)
	}
	c.Println("OK")
	return nil
}

// WaitResult waits for the result of cmd. On timeout cmd is canceled so
// its ack can't be taken by a later command.
func WaitResult(client *comm.Client, cmd *comm.Command, timeout time.Duration) (comm.Result, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-cmd.ResultChan():
		return res, nil
	case <-timer.C:
		if client.Cancel(cmd) {
			return comm.Result{}, context.DeadlineExceeded
		}
		// completed while timing out
		return <-cmd.ResultChan(), nil
	}
}

// WaitEvent waits for the next event accepted by match.
// Events not accepted are discarded.
func WaitEvent(c *ishell.Context, match func(comm.Message) bool) (comm.Message, error) {
	s := ShellFrom(c)
	conn := s.Conn()
	if conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()
	for {
		select {
		case msg := <-conn.Client.EventChan():
			if match(msg) {
				return msg, nil
			}
		case <-timer.C:
			return nil, context.DeadlineExceeded
		case <-conn.Ctx.Done():
			return nil, comm.ErrClosed
		}
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens device, or the configured one if device is empty.
// Current connection is closed first.
func (s *Shell) Connect(device string) error {
	conf := *s.Config
	if device != "" {
		conf.Port.Device = device
	}
	s.Disconnect()
	fifo, closer, err := conf.OpenFIFO()
	if err != nil {
		return err
	}
	conn := &Conn{
		Device: conf.Port.Device,
		Client: comm.NewClient(fifo),
		doneCh: make(chan struct{}),
	}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	s.connLock.Lock()
	s.conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conn.Device))
	s.connLock.Unlock()
	go s.run(conn, closer)
	return nil
}

// Conn returns current connection, nil if not connected.
func (s *Shell) Conn() *Conn {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	return s.conn
}

func (s *Shell) run(conn *Conn, closer io.Closer) {
	defer close(conn.doneCh)
	err := fx.RunWithContextCloser(conn.Ctx, closer, func() error {
		return conn.Client.Run(conn.Ctx)
	})
	conn.Cancel()
	if s.detach(conn) && err != nil && err != context.Canceled {
		s.Shell.Printf("%s disconnected: %v\n", conn.Device, err)
	}
}

// detach clears conn if it's still the current connection.
func (s *Shell) detach(conn *Conn) bool {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	if s.conn != conn || conn == nil {
		return false
	}
	s.conn = nil
	s.Shell.SetPrompt(unconnectedPrompt)
	return true
}

// Disconnect disconnects current device.
func (s *Shell) Disconnect() {
	if conn := s.Conn(); s.detach(conn) {
		conn.Close()
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port.Device != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port.Device)
		}
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Port.Device, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if device == "" && s.Config.Port.Device == "" {
				c.Err(fmt.Errorf("DEVICE required"))
				return
			}
			if err := s.Connect(device); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// StatsCmd prints the receive counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			st := ShellFrom(c).Conn().Client.FIFO().Stats()
			c.Printf("messages=%d checksum_errors=%d unknown_ids=%d decode_errors=%d idle_resets=%d\n",
				st.Messages, st.ChecksumErrors, st.UnknownIDs, st.DecodeErrors, st.IdleResets)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := env.Load()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoConnect(true).Run(flag.Args()...)
}
