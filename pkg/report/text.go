package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// FormatText renders a record for humans.
func FormatText(r *telemetry.Record) string {
	var w bytes.Buffer
	fmt.Fprintln(&w, "IP       BP       SP")
	fmt.Fprintf(&w, "%08X %08X %08X\n\n", r.IP, r.BP, r.SP)
	fmt.Fprintln(&w, "A    B    C    D")
	fmt.Fprintf(&w, "%04X %04X %04X %04X\n", r.A, r.B, r.C, r.D)
	fmt.Fprintln(&w, "I    J    K    L")
	fmt.Fprintf(&w, "%04X %04X %04X %04X\n\n", r.I, r.J, r.K, r.L)
	fmt.Fprintln(&w, "F    PF")
	fmt.Fprintf(&w, "%04X %04X\n\n", r.F, r.PF)
	fmt.Fprintf(&w, "OOP: %02X\n", r.OOP)
	fmt.Fprintf(&w, "COP: %02X\n", r.COP)
	fmt.Fprintf(&w, "RIM: %02X\n", r.RIM)
	fmt.Fprintf(&w, "BIO: %02X\n", r.BIO)
	fmt.Fprintf(&w, "IMM: %08X\n", r.IMM)
	fmt.Fprintf(&w, "EI8: %02X\n\n", r.EI8)
	fmt.Fprintf(&w, "Instruction Count: %d\n", r.ICount)
	fmt.Fprintf(&w, "Exec Clock Count:  %d\n", r.ECount)
	fmt.Fprintf(&w, "Mem Clock Count:   %d\n\n\n", r.MCount)
	return w.String()
}

// Text writes records as text.
type Text struct {
	Writer io.Writer

	lock sync.Mutex
}

// NewText creates a Text reporter.
func NewText(w io.Writer) *Text {
	return &Text{Writer: w}
}

// Report implements receiver.Reporter.
func (t *Text) Report(ctx context.Context, r *telemetry.Record) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	_, err := io.WriteString(t.Writer, FormatText(r))
	return err
}
