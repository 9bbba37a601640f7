// Package indicator visualizes bus activity.
package indicator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/bus"
)

// Indicator shows the most recent byte. Show must not block, updates may
// be dropped.
type Indicator interface {
	Show(value byte)
}

// ShowFunc is func form of Indicator.
type ShowFunc func(byte)

// Show implements Indicator.
func (f ShowFunc) Show(value byte) {
	f(value)
}

// Bargraph drives 8 LEDs one at a time so only a single LED draws current
// at any instant. A refresh cycle has 16 slots: slot i < 8 lights LED i
// with bit 7-i of the value, slot 8 turns off the last LED and the rest
// are dark.
type Bargraph struct {
	LEDs []bus.Output
	// Rate is the slot frequency.
	Rate int

	value atomic.Uint32
	slot  int
}

// Slots in a refresh cycle.
const Slots = 16

// DefaultRate is the default slot frequency in Hz.
const DefaultRate = 1024

// NewBargraph creates a Bargraph. Exactly 8 LEDs are expected, MSB first.
func NewBargraph(leds []bus.Output) *Bargraph {
	return &Bargraph{LEDs: leds, Rate: DefaultRate}
}

// Name implements framework.Named.
func (g *Bargraph) Name() string {
	return "bargraph"
}

// Show implements Indicator.
func (g *Bargraph) Show(value byte) {
	g.value.Store(uint32(value))
}

// Value returns the value being displayed.
func (g *Bargraph) Value() byte {
	return byte(g.value.Load())
}

// Run implements framework.Runnable.
func (g *Bargraph) Run(ctx context.Context) error {
	rate := g.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	defer g.off()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.Tick(); err != nil {
				glog.Warningf("bargraph: %v", err)
			}
		}
	}
}

// Tick advances one slot.
func (g *Bargraph) Tick() (err error) {
	n := len(g.LEDs)
	value := g.Value()
	switch {
	case g.slot < n:
		if g.slot > 0 {
			err = g.LEDs[g.slot-1].Set(false)
		}
		if err == nil {
			err = g.LEDs[g.slot].Set((value>>uint(7-g.slot))&1 != 0)
		}
	case g.slot == n && n > 0:
		err = g.LEDs[n-1].Set(false)
	}
	if g.slot++; g.slot >= Slots {
		g.slot = 0
	}
	return
}

func (g *Bargraph) off() {
	for _, led := range g.LEDs {
		led.Set(false)
	}
}
