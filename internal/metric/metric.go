package metric

import (
	"fmt"
	"sort"
)

// Kind identifies which extractor produces records for a metric.
type Kind string

const (
	KindMark   Kind = "mark"
	KindRate   Kind = "rate"
	KindSeries Kind = "series"
)

type Name string

// Mark events
const (
	CountMarkL4S     Name = "count_mark_l4s"
	CountMarkClassic Name = "count_mark_classic"
	CountDrop        Name = "count_drop"
)

// Derived throughput
const (
	ThroughputCubic  Name = "throughput_cubic"
	ThroughputPrague Name = "throughput_prague"
)

// TCP flow control
const (
	PragueCwnd Name = "prague_cwnd"
	PragueRTT  Name = "prague_rtt"
	CubicCwnd  Name = "cubic_cwnd"
	CubicRTT   Name = "cubic_rtt"
)

// DualQ queue
const (
	QueueSojournL4S     Name = "queue_sojourn_l4s"
	QueueSojournClassic Name = "queue_sojourn_classic"
	QueueProbCoupled    Name = "queue_prob_coupled"
	QueueProbClassic    Name = "queue_prob_classic"
	QueueProbL4S        Name = "queue_prob_l4s"
)

// ThroughputPrefix is prepended to a tracked source label to form its metric name.
const ThroughputPrefix = "throughput_"

type Definition struct {
	Name Name
	Kind Kind
	// Emitted is false for metrics that are recognized but never persisted.
	Emitted bool
}

var catalog = map[Name]Definition{
	CountMarkL4S:        {Name: CountMarkL4S, Kind: KindMark, Emitted: true},
	CountMarkClassic:    {Name: CountMarkClassic, Kind: KindMark, Emitted: true},
	CountDrop:           {Name: CountDrop, Kind: KindMark, Emitted: false},
	ThroughputCubic:     {Name: ThroughputCubic, Kind: KindRate, Emitted: true},
	ThroughputPrague:    {Name: ThroughputPrague, Kind: KindRate, Emitted: true},
	PragueCwnd:          {Name: PragueCwnd, Kind: KindSeries, Emitted: true},
	PragueRTT:           {Name: PragueRTT, Kind: KindSeries, Emitted: true},
	CubicCwnd:           {Name: CubicCwnd, Kind: KindSeries, Emitted: true},
	CubicRTT:            {Name: CubicRTT, Kind: KindSeries, Emitted: true},
	QueueSojournL4S:     {Name: QueueSojournL4S, Kind: KindSeries, Emitted: true},
	QueueSojournClassic: {Name: QueueSojournClassic, Kind: KindSeries, Emitted: true},
	QueueProbCoupled:    {Name: QueueProbCoupled, Kind: KindSeries, Emitted: true},
	QueueProbClassic:    {Name: QueueProbClassic, Kind: KindSeries, Emitted: true},
	QueueProbL4S:        {Name: QueueProbL4S, Kind: KindSeries, Emitted: true},
}

// Lookup returns the catalog entry for name.
func Lookup(name Name) (Definition, bool) {
	def, ok := catalog[name]
	return def, ok
}

// Resolve looks up name and checks that it belongs to the expected kind.
func Resolve(name Name, kind Kind) (Definition, error) {
	def, ok := catalog[name]
	if !ok {
		return Definition{}, fmt.Errorf("metric %q is not in the catalog", name)
	}
	if def.Kind != kind {
		return Definition{}, fmt.Errorf("metric %q is a %s metric, not %s", name, def.Kind, kind)
	}
	return def, nil
}

// ThroughputName builds the rate metric name for a tracked source label.
func ThroughputName(label string) Name {
	return Name(ThroughputPrefix + label)
}

// All returns every catalog entry ordered by name.
func All() []Definition {
	defs := make([]Definition, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Columns returns the output header for a metric dataset.
func (n Name) Columns() []string {
	return []string{"time", string(n), "run_id"}
}

func (n Name) String() string {
	return string(n)
}

// Record is one (time, value) observation of a metric within a run.
type Record struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
	RunID int     `json:"run_id"`
}
