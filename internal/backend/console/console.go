// Package console implements the human-readable reference backend.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/metcod/metcod/internal/registry"
)

// Backend writes a readable block of the frame's contents to Out.
type Backend struct {
	Out io.Writer
}

// New returns a Backend writing to standard output.
func New() *Backend {
	return &Backend{Out: os.Stdout}
}

// Publish writes the RFC-3339 timestamp followed by any of the
// Gauges/Counters/Timings sections that carry data.
func (b *Backend) Publish(_ context.Context, at time.Time, frame registry.TimeFrame) {
	w := b.Out
	fmt.Fprintln(w, at.Format(time.RFC3339))

	if len(frame.Gauges) > 0 {
		fmt.Fprintln(w, "Gauges:")
		for name, value := range frame.Gauges {
			fmt.Fprintf(w, "  %s - %d\n", name, value)
		}
	}

	if len(frame.Counters) > 0 {
		fmt.Fprintln(w, "Counters:")
		for name, s := range frame.Counters {
			fmt.Fprintf(w, "  %s\n", name)
			fmt.Fprintf(w, "    count: %d\n", s.Count())
			fmt.Fprintf(w, "    sum: %d\n", s.Sum())
			fmt.Fprintf(w, "    avg: %v\n", s.Average())
			fmt.Fprintf(w, "    std: %v\n", s.Std())
			fmt.Fprintf(w, "    median: %v\n", s.Median())
			fmt.Fprintf(w, "    p75: %d\n", s.Percentile(0.75))
			fmt.Fprintf(w, "    p90: %d\n", s.Percentile(0.90))
		}
	}

	if len(frame.Timings) > 0 {
		fmt.Fprintln(w, "Timings:")
		for name, s := range frame.Timings {
			fmt.Fprintf(w, "  %s\n", name)
			fmt.Fprintf(w, "    count: %d\n", s.Count())
			fmt.Fprintf(w, "    sum: %d\n", s.Sum())
			fmt.Fprintf(w, "    avg: %v\n", s.Average())
			fmt.Fprintf(w, "    std: %v\n", s.Std())
			fmt.Fprintf(w, "    median: %v\n", s.Median())
			fmt.Fprintf(w, "    p75: %d\n", s.Percentile(0.75))
			fmt.Fprintf(w, "    p90: %d\n", s.Percentile(0.90))
		}
	}
}
