// Package all registers all monitor commands.
package all

import (
	_ "github.com/robotalks/cpudbg/pkg/cli/cmds/frames"
)
