// Package registry accumulates metric events into per-name buckets and
// finalizes them into immutable TimeFrame snapshots.
//
// A Registry is mutated exclusively by the daemon's ingest loop. At
// rotation, ownership of the old Registry transfers to a publisher
// goroutine while ingest continues against a fresh one seeded with the
// old one's gauge values - gauges are level metrics and must persist
// across frames.
package registry

import (
	"sync"

	"github.com/metcod/metcod/internal/protocol"
	"github.com/metcod/metcod/internal/stats"
)

// Registry is the mutable per-frame accumulator. There is never more
// than one writer; the mutex exists only so a concurrent reader (tests,
// introspection) can take a consistent snapshot without racing ingest.
type Registry struct {
	mu sync.Mutex

	counters map[string][]uint64
	timings  map[string][]uint64
	gauges   map[string]int64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		counters: make(map[string][]uint64),
		timings:  make(map[string][]uint64),
		gauges:   make(map[string]int64),
	}
}

// Add applies one decoded metric event to the registry. It returns
// false exactly when the event caused a semantic overflow (a gauge
// Modify whose checked addition overflows int64, or a timing whose
// nanosecond normalization overflows uint64); in that case the
// registry is left unmodified by the event.
func (r *Registry) Add(m protocol.Metric) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch m.Kind {
	case protocol.KindCounter:
		r.counters[m.Name] = append(r.counters[m.Name], m.Value)
		return true

	case protocol.KindTiming:
		ns, ok := m.NanoTiming()
		if !ok {
			return false
		}
		r.timings[m.Name] = append(r.timings[m.Name], ns)
		return true

	case protocol.KindGauge:
		switch m.Gauge.Kind {
		case protocol.GaugeSet:
			r.gauges[m.Name] = m.Gauge.Value
			return true

		case protocol.GaugeModify:
			current := r.gauges[m.Name]
			next := current + m.Gauge.Value
			// checked signed addition: overflow iff result's sign
			// doesn't match what adding same-signed operands implies
			if (m.Gauge.Value > 0 && next < current) || (m.Gauge.Value < 0 && next > current) {
				return false
			}
			r.gauges[m.Name] = next
			return true

		case protocol.GaugeRemove:
			delete(r.gauges, m.Name)
			return true
		}
	}

	return true
}

// NewWithGauges returns a fresh Registry whose counters and timings are
// empty and whose gauges are a by-value copy of this Registry's
// gauges, carrying level state across a rotation without carrying
// sample state.
func (r *Registry) NewWithGauges() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauges := make(map[string]int64, len(r.gauges))
	for k, v := range r.gauges {
		gauges[k] = v
	}

	return &Registry{
		counters: make(map[string][]uint64),
		timings:  make(map[string][]uint64),
		gauges:   gauges,
	}
}

// Finalize consumes the Registry and produces an immutable TimeFrame.
// Any counter or timing series whose checked sum overflows is silently
// omitted from the frame; gauges are carried verbatim.
func (r *Registry) Finalize() TimeFrame {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame := TimeFrame{
		Counters: make(map[string]stats.Statistics),
		Timings:  make(map[string]stats.Statistics),
		Gauges:   make(map[string]int64, len(r.gauges)),
	}

	for name, samples := range r.counters {
		if s, err := stats.New(samples); err == nil {
			frame.Counters[name] = s
		}
	}
	for name, samples := range r.timings {
		if s, err := stats.New(samples); err == nil {
			frame.Timings[name] = s
		}
	}
	for name, v := range r.gauges {
		frame.Gauges[name] = v
	}

	return frame
}

// TimeFrame is the immutable snapshot produced by finalizing a
// Registry. It is read by backends and discarded once every backend
// has had a chance to publish it.
type TimeFrame struct {
	Counters map[string]stats.Statistics
	Gauges   map[string]int64
	Timings  map[string]stats.Statistics
}

// Empty reports whether the frame carries no data in any category.
func (f TimeFrame) Empty() bool {
	return len(f.Counters) == 0 && len(f.Gauges) == 0 && len(f.Timings) == 0
}
