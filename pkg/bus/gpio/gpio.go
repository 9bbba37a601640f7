// Package gpio binds bus lines to host GPIO pins using periph.io.
package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/robotalks/cpudbg/pkg/bus"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the host drivers. It is safe to call multiple times.
func Init() error {
	initOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			initErr = fmt.Errorf("periph host init: %v", err)
			return
		}
		for _, drv := range state.Loaded {
			glog.V(2).Infof("gpio driver loaded: %s", drv)
		}
	})
	return initErr
}

// Input is a bus.Line backed by a GPIO pin.
type Input struct {
	pin gpio.PinIO
}

// OpenInput configures the named pin as a floating input with edge
// detection on both edges.
func OpenInput(name string) (*Input, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	if err := pin.In(gpio.Float, gpio.BothEdges); err != nil {
		// some pins can't do edge detection, polling still works.
		glog.Warningf("pin %s: edge detection unavailable: %v", name, err)
		if err = pin.In(gpio.Float, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("pin %s as input: %v", name, err)
		}
	}
	return &Input{pin: pin}, nil
}

// Read implements bus.Line.
func (i *Input) Read() bool {
	return i.pin.Read() == gpio.High
}

// WaitForEdge implements bus.EdgeWaiter.
func (i *Input) WaitForEdge(timeout time.Duration) bool {
	return i.pin.WaitForEdge(timeout)
}

// Name returns the pin name.
func (i *Input) Name() string {
	return i.pin.Name()
}

// Output is a bus.Output backed by a GPIO pin.
type Output struct {
	pin gpio.PinIO
}

// OpenOutput configures the named pin as an output driven low.
func OpenOutput(name string) (*Output, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("pin %s as output: %v", name, err)
	}
	return &Output{pin: pin}, nil
}

// Set implements bus.Output.
func (o *Output) Set(level bool) error {
	return o.pin.Out(gpio.Level(level))
}

// PinNames names the GPIO pin of each bus line.
type PinNames struct {
	CLK  string
	CIDO string
	CODI string
	CS   string
	CD   string
}

// OpenLines opens all bus lines as inputs. CIDO is optional.
func OpenLines(names PinNames) (*bus.Lines, error) {
	var (
		lines bus.Lines
		err   error
	)
	open := func(name string) bus.Line {
		if err != nil {
			return nil
		}
		var in *Input
		if in, err = OpenInput(name); err != nil {
			return nil
		}
		return in
	}
	lines.CLK = open(names.CLK)
	lines.CODI = open(names.CODI)
	lines.CS = open(names.CS)
	lines.CD = open(names.CD)
	if names.CIDO != "" {
		lines.CIDO = open(names.CIDO)
	}
	if err != nil {
		return nil, err
	}
	return &lines, nil
}

// OpenOutputs opens a list of pins as outputs.
func OpenOutputs(names []string) ([]bus.Output, error) {
	outs := make([]bus.Output, 0, len(names))
	for _, name := range names {
		out, err := OpenOutput(name)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}
