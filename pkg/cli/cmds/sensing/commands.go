package sensing

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/purpledrop.go/pkg/cli/sh"
	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
)

var (
	// ActiveCapCmd prints the next ActiveCapacitance report.
	ActiveCapCmd = ishell.Cmd{
		Name:    "caps",
		Aliases: []string{"ac"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			waitAndPrint(c, comm.ActiveCapacitanceID)
		}),
	}

	// BulkCapCmd prints the next BulkCapacitance report.
	BulkCapCmd = ishell.Cmd{
		Name:    "bulk",
		Aliases: []string{"bc"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			waitAndPrint(c, comm.BulkCapacitanceID)
		}),
	}
)

func waitAndPrint(c *ishell.Context, id byte) {
	msg, err := sh.WaitEvent(c, func(msg comm.Message) bool {
		return msg.ID() == id
	})
	if err != nil {
		c.Err(fmt.Errorf("no report: %v", err))
		return
	}
	sh.PrintMessage(c, msg)
}

func init() {
	sh.AddCmds(
		&ActiveCapCmd,
		&BulkCapCmd,
	)
}
