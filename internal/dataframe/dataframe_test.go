package dataframe

import (
	"sync"
	"testing"

	"netsim-consolidate/internal/metric"
)

func recs(runID int, times ...float64) []metric.Record {
	out := make([]metric.Record, len(times))
	for i, t := range times {
		out[i] = metric.Record{Time: t, Value: t * 10, RunID: runID}
	}
	return out
}

func assertOrdered(t *testing.T, d Dataset) {
	t.Helper()
	for i := 1; i < len(d.Records); i++ {
		prev, cur := d.Records[i-1], d.Records[i]
		if cur.RunID < prev.RunID || (cur.RunID == prev.RunID && cur.Time < prev.Time) {
			t.Fatalf("%s: ordering violated at %d: %+v then %+v", d.Metric, i, prev, cur)
		}
	}
}

func TestFinalize_SortsByRunThenTime(t *testing.T) {
	df := NewDataFrames()
	// added out of run order, each batch unsorted
	if err := df.AddBatch(metric.CubicRTT, 2, 0, recs(2, 3, 1, 2)); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if err := df.AddBatch(metric.CubicRTT, 0, 0, recs(0, 5, 4)); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	datasets := df.Finalize()
	if len(datasets) != 1 {
		t.Fatalf("expected one dataset, got %d", len(datasets))
	}
	d := datasets[0]
	assertOrdered(t, d)
	if len(d.Records) != 5 || d.Records[0].RunID != 0 || d.Records[0].Time != 4 {
		t.Fatalf("unexpected records %+v", d.Records)
	}
	if d.Runs() != 2 {
		t.Fatalf("expected 2 contributing runs, got %d", d.Runs())
	}
}

func TestFinalize_StableForEqualKeys(t *testing.T) {
	df := NewDataFrames()
	first := []metric.Record{{Time: 1, Value: 100, RunID: 0}}
	second := []metric.Record{{Time: 1, Value: 200, RunID: 0}}
	// seq decides the order, not insertion order
	_ = df.AddBatch(metric.QueueProbL4S, 0, 1, second)
	_ = df.AddBatch(metric.QueueProbL4S, 0, 0, first)

	d := df.Finalize()[0]
	if d.Records[0].Value != 100 || d.Records[1].Value != 200 {
		t.Fatalf("expected seq order to break the tie, got %+v", d.Records)
	}
}

func TestFinalize_OmitsEmptyMetrics(t *testing.T) {
	df := NewDataFrames()
	if err := df.AddBatch(metric.PragueCwnd, 0, 0, nil); err != nil {
		t.Fatalf("AddBatch(empty): %v", err)
	}
	if got := df.Finalize(); len(got) != 0 {
		t.Fatalf("expected no datasets, got %+v", got)
	}
	if df.GetMetric(metric.PragueCwnd) != nil {
		t.Fatalf("empty batch must not register the metric")
	}
}

func TestAddBatch_ClosedSet(t *testing.T) {
	df := NewDataFrames()
	if err := df.AddBatch("bbr_cwnd", 0, 0, recs(0, 1)); err == nil {
		t.Fatalf("expected unknown metric to be rejected")
	}
	if err := df.AddBatch(metric.CountDrop, 0, 0, recs(0, 1)); err == nil {
		t.Fatalf("expected non-emitted metric to be rejected")
	}
}

func TestAddBatch_ConcurrentRuns(t *testing.T) {
	df := NewDataFrames()
	var wg sync.WaitGroup
	for run := 0; run < 32; run++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			_ = df.AddBatch(metric.ThroughputCubic, run, 0, recs(run, 3, 2, 1))
			_ = df.AddBatch(metric.ThroughputPrague, run, 0, recs(run, 1))
		}(run)
	}
	wg.Wait()

	datasets := df.Finalize()
	if len(datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(datasets))
	}
	if datasets[0].Metric != metric.ThroughputCubic || len(datasets[0].Records) != 96 {
		t.Fatalf("unexpected cubic dataset: %s with %d records", datasets[0].Metric, len(datasets[0].Records))
	}
	for _, d := range datasets {
		assertOrdered(t, d)
		if d.Runs() != 32 {
			t.Fatalf("%s: expected 32 runs, got %d", d.Metric, d.Runs())
		}
	}
}
