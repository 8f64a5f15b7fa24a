package electrode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/purpledrop.go/pkg/cli/sh"
	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
)

var (
	// ElectrodesCmd exposes ElectrodeEnable command.
	ElectrodesCmd = ishell.Cmd{
		Name:    "electrodes",
		Aliases: []string{"e"},
		Help:    "PIN... (none to disable all, ranges like 3-7 allowed)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := ParsePins(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}

	// DriveCmd exposes DriveEnable command.
	DriveCmd = ishell.Cmd{
		Name: "drive",
		Help: "on|off",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("on|off required"))
				return
			}
			var msg comm.DriveEnable
			switch strings.ToLower(c.Args[0]) {
			case "on", "1", "true":
				msg.Enabled = true
			case "off", "0", "false":
			default:
				c.Err(fmt.Errorf("Invalid argument: %s", c.Args[0]))
				return
			}
			sh.DoCommand(c, &msg)
		}),
	}
)

// ParsePins builds ElectrodeEnable from pin numbers or ranges.
func ParsePins(args []string) (*comm.ElectrodeEnable, error) {
	msg := &comm.ElectrodeEnable{}
	for _, arg := range args {
		from, to := arg, arg
		if n := strings.IndexByte(arg, '-'); n > 0 {
			from, to = arg[:n], arg[n+1:]
		}
		lo, err := parsePin(from)
		if err != nil {
			return nil, err
		}
		hi, err := parsePin(to)
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, fmt.Errorf("Invalid range: %s", arg)
		}
		for pin := lo; pin <= hi; pin++ {
			msg.Set(pin, true)
		}
	}
	return msg, nil
}

func parsePin(str string) (int, error) {
	pin, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("Invalid PIN: %v", err)
	}
	if pin < 0 || pin >= comm.NumElectrodes {
		return 0, fmt.Errorf("PIN out of range: %d", pin)
	}
	return pin, nil
}

func init() {
	sh.AddCmds(
		&ElectrodesCmd,
		&DriveCmd,
	)
}
