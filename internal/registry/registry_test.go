package registry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcod/metcod/internal/protocol"
)

func counter(name string, v uint64) protocol.Metric {
	return protocol.Metric{Name: name, Kind: protocol.KindCounter, Value: v}
}

func timing(name string, v uint64, res protocol.TimerResolution) protocol.Metric {
	return protocol.Metric{Name: name, Kind: protocol.KindTiming, Value: v, Res: res}
}

func gaugeSet(name string, v int64) protocol.Metric {
	return protocol.Metric{Name: name, Kind: protocol.KindGauge, Gauge: protocol.GaugeOp{Kind: protocol.GaugeSet, Value: v}}
}

func gaugeModify(name string, v int64) protocol.Metric {
	return protocol.Metric{Name: name, Kind: protocol.KindGauge, Gauge: protocol.GaugeOp{Kind: protocol.GaugeModify, Value: v}}
}

func gaugeRemove(name string) protocol.Metric {
	return protocol.Metric{Name: name, Kind: protocol.KindGauge, Gauge: protocol.GaugeOp{Kind: protocol.GaugeRemove}}
}

func TestCountersAccumulate(t *testing.T) {
	r := New()
	assert.True(t, r.Add(counter("test", 2)))
	assert.True(t, r.Add(counter("demo", 32)))
	assert.True(t, r.Add(counter("test", 7)))

	assert.ElementsMatch(t, []uint64{2, 7}, r.counters["test"])
	assert.ElementsMatch(t, []uint64{32}, r.counters["demo"])
}

func TestTimingsAreNormalizedToNanoseconds(t *testing.T) {
	r := New()
	assert.True(t, r.Add(timing("test", 2, protocol.Nanoseconds)))
	assert.True(t, r.Add(timing("demo", 32, protocol.Milliseconds)))
	assert.True(t, r.Add(timing("test", 7, protocol.Microseconds)))
	assert.True(t, r.Add(timing("demo", 64, protocol.Seconds)))

	assert.ElementsMatch(t, []uint64{2, 7_000}, r.timings["test"])
	assert.ElementsMatch(t, []uint64{32_000_000, 64_000_000_000}, r.timings["demo"])
}

func TestGaugeSetModifyRemove(t *testing.T) {
	r := New()

	assert.True(t, r.Add(gaugeModify("test", 10)))
	assert.Equal(t, int64(10), r.gauges["test"])

	assert.True(t, r.Add(gaugeModify("test", -20)))
	assert.Equal(t, int64(-10), r.gauges["test"])

	assert.True(t, r.Add(gaugeSet("test", 32)))
	assert.Equal(t, int64(32), r.gauges["test"])

	assert.True(t, r.Add(gaugeRemove("test")))
	_, present := r.gauges["test"]
	assert.False(t, present)
}

func TestGaugeModifyCompositionMatchesSingleModify(t *testing.T) {
	a, b := int64(5), int64(-3)

	stepwise := New()
	stepwise.Add(gaugeModify("g", a))
	stepwise.Add(gaugeModify("g", b))

	combined := New()
	combined.Add(gaugeModify("g", a+b))

	assert.Equal(t, combined.gauges["g"], stepwise.gauges["g"])
}

func TestGaugeModifyOverflowRejectedAndLeavesMapUnchanged(t *testing.T) {
	r := New()
	r.Add(gaugeSet("g", math.MaxInt64))

	ok := r.Add(gaugeModify("g", 1))
	assert.False(t, ok)
	assert.Equal(t, int64(math.MaxInt64), r.gauges["g"])
}

func TestTimingOverflowRejectedWithoutMutation(t *testing.T) {
	r := New()
	ok := r.Add(timing("t", math.MaxUint64/2+1, protocol.Seconds))
	assert.False(t, ok)
	_, present := r.timings["t"]
	assert.False(t, present)
}

func TestNewWithGaugesCarriesGaugesOnly(t *testing.T) {
	r := New()
	r.Add(counter("c", 1))
	r.Add(timing("t", 1, protocol.Nanoseconds))
	r.Add(gaugeSet("load", 100))

	next := r.NewWithGauges()
	assert.Empty(t, next.counters)
	assert.Empty(t, next.timings)
	assert.Equal(t, int64(100), next.gauges["load"])

	// mutating the copy must not affect the original
	next.Add(gaugeSet("load", 5))
	assert.Equal(t, int64(100), r.gauges["load"])
}

func TestFinalizeProducesTimeFrame(t *testing.T) {
	r := New()
	r.Add(counter("abc", 12))
	r.Add(counter("abc", 8))

	frame := r.Finalize()
	require.Contains(t, frame.Counters, "abc")
	s := frame.Counters["abc"]
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, uint64(20), s.Sum())
	assert.Equal(t, 10.0, s.Average())
	assert.Equal(t, 10.0, s.Median())
	assert.Equal(t, uint64(12), s.Percentile(0.75))
}

func TestFinalizeOmitsOverflowingCounterSeries(t *testing.T) {
	r := New()
	r.Add(counter("huge", math.MaxUint64))
	r.Add(counter("huge", 1))

	frame := r.Finalize()
	assert.NotContains(t, frame.Counters, "huge")
}

func TestFinalizeOmitsRemovedGauge(t *testing.T) {
	r := New()
	r.Add(gaugeSet("x", 42))
	r.Add(gaugeRemove("x"))

	frame := r.Finalize()
	assert.NotContains(t, frame.Gauges, "x")
}

func TestFinalizeCarriesGauge(t *testing.T) {
	r := New()
	r.Add(gaugeModify("g", 5))
	r.Add(gaugeModify("g", 5))
	r.Add(gaugeModify("g", -3))

	frame := r.Finalize()
	assert.Equal(t, int64(7), frame.Gauges["g"])
}
