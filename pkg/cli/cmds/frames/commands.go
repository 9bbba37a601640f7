package frames

import (
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cpudbg/pkg/cli/sh"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

var (
	// LastCmd prints the latest frame.
	LastCmd = ishell.Cmd{
		Name:    "last",
		Aliases: []string{"f"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			f := s.Session.Last()
			if f == nil {
				c.Println("No frames received")
				return
			}
			printFrames(c, s, f)
		}),
	}

	// HistoryCmd prints the latest frames.
	HistoryCmd = ishell.Cmd{
		Name:    "history",
		Aliases: []string{"h"},
		Help:    "[COUNT]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			count := 10
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				count = n
			}
			printFrames(c, s, s.Session.History(count)...)
		}),
	}

	// StatsCmd prints the latest receiver counters.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			stats := sh.ShellFrom(c).Session.Stats()
			if stats == nil {
				c.Println("No stats received")
				return
			}
			c.Println(string(stats))
		}),
	}

	// FollowCmd prints frames as they arrive.
	FollowCmd = ishell.Cmd{
		Name:    "follow",
		Aliases: []string{"tail"},
		Help:    "[on|off]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			on := len(c.Args) == 0 || c.Args[0] == "on"
			if !on {
				s.Session.SetOnFrame(nil)
				return
			}
			s.Session.SetOnFrame(func(f *msgs.Frame) {
				printFrames(c, s, f)
			})
		}),
	}
)

func printFrames(c *ishell.Context, s *sh.Shell, frames ...*msgs.Frame) {
	if s.OutputJSON {
		if frames == nil {
			frames = []*msgs.Frame{}
		}
		sh.PrintJSON(c, frames)
		return
	}
	for _, f := range frames {
		c.Print(sh.FormatFrame(f))
	}
}

func init() {
	sh.AddCmds(
		&LastCmd,
		&HistoryCmd,
		&StatsCmd,
		&FollowCmd,
	)
}
