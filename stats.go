package dpsim

// stats.go holds summary statistics over the delivery delays the network
// sampled during a run, one sample per scheduled copy.  Useful for
// checking that a configured delay distribution actually shaped the
// traffic a protocol was exercised under.

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// LatencySummary aggregates the sampled delivery delays of a run
type LatencySummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Median float64
	Pct95  float64
	Min    float64
	Max    float64
}

// LatencySummary computes the summary over every copy the network
// scheduled so far.  Dropped and filtered messages contribute nothing;
// duplicated copies contribute one sample each.
func (sys *System) LatencySummary() LatencySummary {
	return summarizeLatencies(sys.net.latencies)
}

func summarizeLatencies(samples []float64) LatencySummary {
	ls := LatencySummary{Count: len(samples)}
	if len(samples) == 0 {
		return ls
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	ls.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		ls.StdDev = stat.StdDev(sorted, nil)
	}
	ls.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	ls.Pct95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	ls.Min = sorted[0]
	ls.Max = sorted[len(sorted)-1]
	return ls
}
