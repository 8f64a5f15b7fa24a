// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/purpledrop.go/pkg/cli/cmds/electrode"
	_ "github.com/robotalks/purpledrop.go/pkg/cli/cmds/sensing"
	_ "github.com/robotalks/purpledrop.go/pkg/cli/cmds/stepper"
)
