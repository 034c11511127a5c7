package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netsim-consolidate/internal/dataframe"
	"netsim-consolidate/internal/metric"
)

func sampleDataset() dataframe.Dataset {
	return dataframe.Dataset{
		Metric: metric.ThroughputCubic,
		Records: []metric.Record{
			{Time: 0.5, Value: 0, RunID: 0},
			{Time: 1.5, Value: 8.123456789, RunID: 0},
			{Time: 0.5, Value: 0, RunID: 2},
			{Time: 1.5, Value: 1e-7, RunID: 2},
		},
	}
}

func TestEncodeDataset(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeDataset(&buf, sampleDataset(), 6); err != nil {
		t.Fatalf("EncodeDataset: %v", err)
	}

	want := "time,throughput_cubic,run_id\n" +
		"0.5,0,0\n" +
		"1.5,8.12346,0\n" +
		"0.5,0,2\n" +
		"1.5,1e-07,2\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		0:            "0",
		1:            "1",
		0.1:          "0.1",
		123456789:    "1.23457e+08",
		-2.5:         "-2.5",
		1.0000001:    "1",
		math.Inf(1):  "inf",
		math.Inf(-1): "-inf",
	}
	for in, want := range cases {
		if got := FormatFloat(in, 6); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
	if got := FormatFloat(math.NaN(), 6); got != "nan" {
		t.Errorf("FormatFloat(NaN) = %q, want \"nan\"", got)
	}
}

func TestWriteDataset_Idempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 6)

	first := w.WriteDataset(sampleDataset())
	if first.Err != nil {
		t.Fatalf("first write: %v", first.Err)
	}
	a, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	second := w.WriteDataset(sampleDataset())
	if second.Err != nil {
		t.Fatalf("second write: %v", second.Err)
	}
	b, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Fatalf("rewriting the same dataset changed the file")
	}
	if first.Checksum == "" || first.Checksum != second.Checksum {
		t.Fatalf("checksums differ: %q vs %q", first.Checksum, second.Checksum)
	}
	if first.Runs != 2 || first.Rows != 4 {
		t.Fatalf("unexpected counts: rows=%d runs=%d", first.Rows, first.Runs)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the dataset file, found %d entries", len(entries))
	}
}

func TestWriteAll_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	// A directory occupying the target name makes the rename fail.
	if err := os.Mkdir(filepath.Join(dir, FileName(string(metric.CubicRTT))), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	good := sampleDataset()
	bad := dataframe.Dataset{
		Metric:  metric.CubicRTT,
		Records: []metric.Record{{Time: 1, Value: 20, RunID: 0}},
	}

	results, err := NewWriter(dir, 6).WriteAll([]dataframe.Dataset{bad, good})
	if err == nil {
		t.Fatalf("expected an error for the blocked dataset")
	}
	if !strings.Contains(err.Error(), string(metric.CubicRTT)) {
		t.Fatalf("error does not name the failing metric: %v", err)
	}
	if len(results) != 2 || results[0].Err == nil || results[1].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
	if _, err := os.Stat(filepath.Join(dir, "throughput_cubic.csv")); err != nil {
		t.Fatalf("healthy dataset was not written: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp.*"))
	if len(matches) != 0 {
		t.Fatalf("temporary files left behind: %v", matches)
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("dualq", "abc123", "/data", 3)
	m.RunsFound = []int{0, 2}
	m.RunsMissing = []int{1}
	m.AddResults([]WriteResult{
		{Metric: "cubic_rtt", Rows: 10, Runs: 2, Checksum: "ff"},
		{Metric: "prague_rtt", Rows: 4, Runs: 1, Err: os.ErrPermission},
	})

	path, err := WriteManifest(dir, m)
	if err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got Manifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ConfigChecksum != "abc123" || len(got.RunsMissing) != 1 || got.RunsMissing[0] != 1 {
		t.Fatalf("unexpected manifest: %+v", got)
	}
	if len(got.Datasets) != 2 || got.Datasets[0].File != "cubic_rtt.csv" || got.Datasets[1].Error == "" {
		t.Fatalf("unexpected dataset entries: %+v", got.Datasets)
	}
	if got.Datasets[1].File != "" {
		t.Fatalf("failed dataset must not reference a file")
	}
}
