// Package sh provides the interactive monitor of receivers.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cpudbg/pkg/report"
	"github.com/robotalks/cpudbg/pkg/report/mqtt"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell   *ishell.Shell
	Config  *Config
	Monitor *mqtt.Monitor
	Session *Session
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

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

// MustBeConnected wraps command func requires a session.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints ReceiverInfo into friendly string for display.
func FormatInfo(info mqtt.ReceiverInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s [%s", info.ID, info.Meta.Encoding)
	if info.Meta.Sampler != "" {
		fmt.Fprintf(&w, ", %s", info.Meta.Sampler)
	}
	w.WriteString("]")
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	return w.String()
}

// FormatFrame prints a frame as text.
func FormatFrame(f *msgs.Frame) string {
	return fmt.Sprintf("#%d %s\n%s", f.Seq, f.Time().Format("15:04:05.000"), report.FormatText(f.Record()))
}

// PrintJSON prints v as JSON.
func PrintJSON(c *ishell.Context, v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return err
	}
	c.Println(string(out))
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

func (s *Shell) monitor() (*mqtt.Monitor, error) {
	if s.Monitor == nil {
		m, err := s.Config.NewMonitor()
		if err != nil {
			return nil, err
		}
		s.Monitor = m
	}
	return s.Monitor, nil
}

// DiscoverReceivers discovers receivers.
func (s *Shell) DiscoverReceivers(filter func(mqtt.ReceiverInfo) bool) ([]mqtt.ReceiverInfo, error) {
	m, err := s.monitor()
	if err != nil {
		return nil, err
	}
	infoList, err := m.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]mqtt.ReceiverInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectReceiver discovers receivers and asks for a choice.
func (s *Shell) SelectReceiver(filter func(mqtt.ReceiverInfo) bool) (*mqtt.ReceiverInfo, error) {
	infoList, err := s.DiscoverReceivers(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 receivers discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect follows the receiver.
func (s *Shell) Connect(info mqtt.ReceiverInfo) error {
	enc, err := msgs.EncodingByName(info.Meta.Encoding)
	if err != nil {
		return err
	}
	m, err := s.monitor()
	if err != nil {
		return err
	}
	s.Disconnect()
	session := NewSession(info, s.Config.HistorySize)
	session.subs = m.Watch(info.ID, enc, session.AddFrame, session.SetStats)
	s.Session = session
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", info.ID))
	return nil
}

// ConnectID finds the receiver by ID and follows it.
func (s *Shell) ConnectID(id string) error {
	info, err := s.SelectReceiver(func(info mqtt.ReceiverInfo) bool {
		return info.ID == id
	})
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("receiver %q not found", id)
	}
	return s.Connect(*info)
}

// Disconnect stops following the current receiver.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.ID != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.ID)
		}
		if err := s.ConnectID(s.Config.ID); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.ID, err)
		}
	}
	defer func() {
		s.Disconnect()
		if s.Monitor != nil {
			s.Monitor.Close()
		}
	}()

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
	// DiscoverCmd discovers receivers.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverReceivers(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				PrintJSON(c, infoList)
				return
			}
			if len(infoList) == 0 {
				c.Println("No receivers found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd follows a receiver.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				if err := s.ConnectID(c.Args[0]); err != nil {
					c.Err(err)
				}
				return
			}
			info, err := s.SelectReceiver(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if info == nil {
				c.Err(fmt.Errorf("no receiver discovered"))
				return
			}
			if err := s.Connect(*info); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd stops following the current receiver.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
