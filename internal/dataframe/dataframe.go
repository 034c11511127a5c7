package dataframe

import (
	"fmt"
	"sort"
	"sync"

	"netsim-consolidate/internal/metric"
)

// DataFrames accumulates record batches per metric across every run of a
// batch. Appends are safe from concurrent run workers; ordering is imposed
// only by Finalize.
type DataFrames struct {
	metrics map[metric.Name]*MetricDataFrame
	mutex   sync.RWMutex
}

type MetricDataFrame struct {
	name    metric.Name
	batches []batchEntry
	rows    int
	mutex   sync.Mutex
}

type batchEntry struct {
	runID   int
	seq     int
	records []metric.Record
}

// Dataset is the canonical, ordered output for one metric.
type Dataset struct {
	Metric  metric.Name     `json:"metric"`
	Records []metric.Record `json:"records"`
}

func NewDataFrames() *DataFrames {
	return &DataFrames{
		metrics: make(map[metric.Name]*MetricDataFrame),
	}
}

func (df *DataFrames) getOrAdd(name metric.Name) *MetricDataFrame {
	df.mutex.RLock()
	mdf, ok := df.metrics[name]
	df.mutex.RUnlock()
	if ok {
		return mdf
	}

	df.mutex.Lock()
	defer df.mutex.Unlock()
	if mdf, ok = df.metrics[name]; !ok {
		mdf = &MetricDataFrame{name: name}
		df.metrics[name] = mdf
	}
	return mdf
}

// AddBatch appends the records one source of run runID produced for a metric.
// seq is the position of that source within the run and breaks ties when
// several sources feed the same metric. Empty batches are ignored; metrics
// outside the catalog, or recognized but never emitted, are rejected.
func (df *DataFrames) AddBatch(name metric.Name, runID, seq int, records []metric.Record) error {
	def, ok := metric.Lookup(name)
	if !ok {
		return fmt.Errorf("metric %q is not in the catalog", name)
	}
	if !def.Emitted {
		return fmt.Errorf("metric %q is not emitted", name)
	}
	if len(records) == 0 {
		return nil
	}

	mdf := df.getOrAdd(name)
	mdf.mutex.Lock()
	defer mdf.mutex.Unlock()
	mdf.batches = append(mdf.batches, batchEntry{runID: runID, seq: seq, records: records})
	mdf.rows += len(records)
	return nil
}

// GetMetric returns the accumulation for name, or nil if nothing was added.
func (df *DataFrames) GetMetric(name metric.Name) *MetricDataFrame {
	df.mutex.RLock()
	defer df.mutex.RUnlock()
	return df.metrics[name]
}

// Metrics lists the metrics that received at least one record, by name.
func (df *DataFrames) Metrics() []metric.Name {
	df.mutex.RLock()
	defer df.mutex.RUnlock()

	names := make([]metric.Name, 0, len(df.metrics))
	for name, mdf := range df.metrics {
		if mdf.RowCount() > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Finalize concatenates every metric's batches and stable-sorts the result by
// (run_id, time). Metrics without records are omitted. Datasets are returned
// ordered by metric name.
func (df *DataFrames) Finalize() []Dataset {
	names := df.Metrics()
	datasets := make([]Dataset, 0, len(names))
	for _, name := range names {
		datasets = append(datasets, df.GetMetric(name).Dataset())
	}
	return datasets
}

func (mdf *MetricDataFrame) RowCount() int {
	mdf.mutex.Lock()
	defer mdf.mutex.Unlock()
	return mdf.rows
}

// Dataset builds the ordered dataset from the batches collected so far.
func (mdf *MetricDataFrame) Dataset() Dataset {
	mdf.mutex.Lock()
	batches := make([]batchEntry, len(mdf.batches))
	copy(batches, mdf.batches)
	rows := mdf.rows
	mdf.mutex.Unlock()

	// Workers finish in any order; restore run order before concatenating.
	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].runID != batches[j].runID {
			return batches[i].runID < batches[j].runID
		}
		return batches[i].seq < batches[j].seq
	})

	records := make([]metric.Record, 0, rows)
	for _, b := range batches {
		records = append(records, b.records...)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RunID != records[j].RunID {
			return records[i].RunID < records[j].RunID
		}
		return records[i].Time < records[j].Time
	})

	return Dataset{Metric: mdf.name, Records: records}
}

// Runs returns the number of distinct runs contributing to the dataset.
func (d Dataset) Runs() int {
	n := 0
	last := -1
	for i, r := range d.Records {
		if i == 0 || r.RunID != last {
			n++
			last = r.RunID
		}
	}
	return n
}
