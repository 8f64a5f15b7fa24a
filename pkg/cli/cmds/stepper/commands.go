package stepper

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/purpledrop.go/pkg/cli/sh"
	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
)

var (
	// MoveCmd exposes MoveStepper command.
	MoveCmd = ishell.Cmd{
		Name:    "move",
		Aliases: []string{"mv"},
		Help:    "STEPS PERIOD",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("STEPS PERIOD required"))
				return
			}
			var msg comm.MoveStepper
			steps, err := strconv.ParseInt(c.Args[0], 0, 16)
			if err != nil {
				c.Err(fmt.Errorf("Invalid STEPS: %v", err))
				return
			}
			period, err := strconv.ParseUint(c.Args[1], 0, 16)
			if err != nil {
				c.Err(fmt.Errorf("Invalid PERIOD: %v", err))
				return
			}
			msg.Steps, msg.Period = int16(steps), uint16(period)
			sh.DoCommand(c, &msg)
		}),
	}
)

func init() {
	sh.AddCmds(&MoveCmd)
}
