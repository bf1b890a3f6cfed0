// Package logger writes the per-tick RTT log and shutdown summary
// described in spec.md §6: a prelude naming every target, a timestamped
// row per tick of fixed-width RTT fields, and a final statistics summary.
package logger

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pingmesh/gridping/internal/stats"
	"github.com/pingmesh/gridping/internal/target"
)

// Logger appends rows to an underlying writer, typically an opened output
// file. It holds no engine state of its own beyond the writer.
type Logger struct {
	w io.Writer
}

// New wraps w, which the caller owns and closes.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// WritePrelude writes the target index, host, and display name for every
// target, once, before the first tick row.
func (l *Logger) WritePrelude(targets []*target.Target) {
	tw := tabwriter.NewWriter(l.w, 0, 4, 2, ' ', 0)
	for i, t := range targets {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, t.Host, t.Name)
	}
	tw.Flush()
}

// LogTick writes one timestamped row of per-target RTTs (in milliseconds,
// NoRTT as "-1.0") for the tick that just completed.
func (l *Logger) LogTick(targets []*target.Target) {
	fmt.Fprint(l.w, time.Now().Format("2006-01-02-15:04:05"))
	for _, t := range targets {
		rtt := t.LastRTT()
		if rtt == target.NoRTT {
			fmt.Fprint(l.w, " -1.0")
		} else {
			fmt.Fprintf(l.w, " %5.1f", rtt)
		}
	}
	fmt.Fprintln(l.w)
}

// WriteSummary writes the shutdown summary block for one target or hop:
// Replies, Lost, Late(>1s), Minimum, Average, Maximum, StdDev.
func (l *Logger) WriteSummary(name string, snap stats.Snapshot) {
	tw := tabwriter.NewWriter(l.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", name)
	fmt.Fprintf(tw, "Replies\t%d\n", snap.N)
	fmt.Fprintf(tw, "Lost\t%d\n", snap.Lost)
	fmt.Fprintf(tw, "Late(>1s)\t%d\n", snap.Late)
	fmt.Fprintf(tw, "Minimum\t%s\n", formatUndef(snap.Min))
	fmt.Fprintf(tw, "Average\t%s\n", formatUndef(snap.Avg))
	fmt.Fprintf(tw, "Maximum\t%s\n", formatUndef(snap.Max))
	fmt.Fprintf(tw, "StdDev\t%s\n", formatUndef(snap.StdDev))
	tw.Flush()
}

func formatUndef(v float64) string {
	if v == stats.Undefined {
		return "undefined"
	}
	return fmt.Sprintf("%.1f", v)
}
