package dataparser

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/logging"
	"netsim-consolidate/internal/metric"
	"netsim-consolidate/internal/runset"

	"github.com/sirupsen/logrus"
)

// SeriesLoader reads the fixed-name two-column scalar traces of a run. Each
// configured file is isolated: a failure in one leaves its siblings intact.
type SeriesLoader struct {
	series []config.SeriesConfig
}

func NewSeriesLoader(series []config.SeriesConfig) *SeriesLoader {
	return &SeriesLoader{series: series}
}

func (sl *SeriesLoader) Name() string {
	return "series"
}

func (sl *SeriesLoader) Extract(run runset.Run) []Outcome {
	outcomes := make([]Outcome, 0, len(sl.series))
	for _, s := range sl.series {
		outcomes = append(outcomes, sl.load(run, s))
	}
	return outcomes
}

func (sl *SeriesLoader) load(run runset.Run, s config.SeriesConfig) Outcome {
	logger := logging.GetRunLogger()

	f, status, err := openInput(run.Path(s.File))
	switch status {
	case StatusAbsent:
		return absent(sl.Name(), run, s.File)
	case StatusFailed:
		return failed(sl.Name(), run, s.File, err)
	}
	defer f.Close()

	var rows [][]string
	if s.Format == config.FormatComma {
		rows, err = readCommaRows(f)
	} else {
		rows, err = readWhitespaceRows(f)
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"run_id": run.ID,
			"file":   s.File,
			"metric": s.Metric,
		}).WithError(err).Warn("Error reading series file")
		return failed(sl.Name(), run, s.File, err)
	}

	records, dropped := CoerceSeries(rows, run.ID)
	out := Outcome{Extractor: sl.Name(), RunID: run.ID, File: s.File, Status: StatusOK, Dropped: dropped}
	if len(records) > 0 {
		out.Batches = []Batch{{Metric: s.Metric, RunID: run.ID, Records: records}}
	}

	logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"file":    s.File,
		"metric":  s.Metric,
		"rows":    len(records),
		"dropped": dropped,
	}).Debug("Loaded series")

	return out
}

// CoerceSeries converts raw two-column rows to records. Rows without exactly
// two fields, or whose time or value is not a number, are dropped.
func CoerceSeries(rows [][]string, runID int) ([]metric.Record, int) {
	records := make([]metric.Record, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		if len(row) != 2 {
			dropped++
			continue
		}
		t, ok := toNumber(row[0])
		if !ok {
			dropped++
			continue
		}
		v, ok := toNumber(row[1])
		if !ok {
			dropped++
			continue
		}
		records = append(records, metric.Record{Time: t, Value: v, RunID: runID})
	}
	return records, dropped
}

func toNumber(field string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func readWhitespaceRows(r io.Reader) ([][]string, error) {
	var rows [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}
	return rows, scanner.Err()
}

func readCommaRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}
