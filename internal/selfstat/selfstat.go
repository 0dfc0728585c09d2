// Package selfstat feeds the daemon's own runtime health back through
// its own ingest pipeline, the way the teacher library's gostat package
// fed Go runtime statistics into a Prometheus Register.
//
// Instead of a second egress mechanism, Capture pushes synthetic gauge
// events directly into the live Registry via the same Add
// path real UDP traffic uses, so every configured backend reports
// daemon health like any other metric without the wire protocol ever
// seeing it.
package selfstat

import (
	"runtime"
	"sync/atomic"

	"github.com/metcod/metcod/internal/protocol"
	"github.com/metcod/metcod/internal/registry"
)

const (
	nameGoroutines   = "metcod.goroutines"
	nameHeapAlloc    = "metcod.heap_alloc_bytes"
	namePacketsTotal = "metcod.packets_received"
	nameDropsTotal   = "metcod.packets_dropped"
)

// Counters tracks running totals updated by the ingest loop as it
// processes datagrams; Capture reads them as a point-in-time gauge
// rather than letting them accumulate as a counter series, since their
// running total - not a per-interval delta - is what operators want to
// see on a dashboard.
type Counters struct {
	packetsReceived uint64
	packetsDropped  uint64
}

// PacketReceived records one successfully parsed datagram.
func (c *Counters) PacketReceived() { atomic.AddUint64(&c.packetsReceived, 1) }

// PacketDropped records one datagram that failed to decode or validate.
func (c *Counters) PacketDropped() { atomic.AddUint64(&c.packetsDropped, 1) }

// Capture seeds a handful of gauges describing the process's current
// health into reg: goroutine count, heap allocation, and the running
// packet totals from counters.
func Capture(reg *registry.Registry, counters *Counters) {
	reg.Add(gaugeSet(nameGoroutines, int64(runtime.NumGoroutine())))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	reg.Add(gaugeSet(nameHeapAlloc, int64(mem.HeapAlloc)))

	reg.Add(gaugeSet(namePacketsTotal, int64(atomic.LoadUint64(&counters.packetsReceived))))
	reg.Add(gaugeSet(nameDropsTotal, int64(atomic.LoadUint64(&counters.packetsDropped))))
}

func gaugeSet(name string, value int64) protocol.Metric {
	return protocol.Metric{
		Name: name,
		Kind: protocol.KindGauge,
		Gauge: protocol.GaugeOp{
			Kind:  protocol.GaugeSet,
			Value: value,
		},
	}
}
