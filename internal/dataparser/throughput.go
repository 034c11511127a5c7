package dataparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/logging"
	"netsim-consolidate/internal/metric"
	"netsim-consolidate/internal/runset"

	"github.com/sirupsen/logrus"
)

var ErrMalformedThroughput = errors.New("malformed throughput file")

// Column order of the flow monitor counter file; it has no header row.
const (
	colTime = iota
	colSource
	colDestination
	colTxPackets
	colTxBytes
	colLostPackets
	throughputColumns
)

// ThroughputSample is one cumulative flow counter row.
type ThroughputSample struct {
	Time        float64
	Source      string
	Destination string
	TxPackets   uint64
	TxBytes     float64
	LostPackets uint64
}

// ThroughputDeriver turns cumulative per-flow byte counters into a Mbps rate
// series per tracked source identity.
type ThroughputDeriver struct {
	file    string
	sources []config.SourceConfig
}

func NewThroughputDeriver(cfg config.ThroughputConfig) *ThroughputDeriver {
	return &ThroughputDeriver{file: cfg.File, sources: cfg.Sources}
}

func (td *ThroughputDeriver) Name() string {
	return "throughput"
}

func (td *ThroughputDeriver) Extract(run runset.Run) []Outcome {
	return []Outcome{td.extract(run)}
}

func (td *ThroughputDeriver) extract(run runset.Run) Outcome {
	logger := logging.GetRunLogger()

	f, status, err := openInput(run.Path(td.file))
	switch status {
	case StatusAbsent:
		return absent(td.Name(), run, td.file)
	case StatusFailed:
		return failed(td.Name(), run, td.file, err)
	}
	defer f.Close()

	samples, err := ReadThroughputSamples(f)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"run_id": run.ID,
			"file":   td.file,
		}).WithError(err).Warn("Error processing throughput file")
		return failed(td.Name(), run, td.file, err)
	}

	out := Outcome{Extractor: td.Name(), RunID: run.ID, File: td.file, Status: StatusOK}
	for _, src := range td.sources {
		records := DeriveRates(samples, src.Identity, run.ID)
		if len(records) == 0 {
			continue
		}
		out.Batches = append(out.Batches, Batch{Metric: src.Metric(), RunID: run.ID, Records: records})
	}

	logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"file":    td.file,
		"samples": len(samples),
		"rows":    out.Rows(),
	}).Debug("Derived throughput")

	return out
}

// ReadThroughputSamples parses a headerless counter CSV. Any row with the
// wrong number of fields, a non-numeric or NaN time, or a non-numeric byte
// counter fails the whole file. A NaN byte counter is kept.
func ReadThroughputSamples(r io.Reader) ([]ThroughputSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = throughputColumns
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var samples []ThroughputSample
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedThroughput, err)
		}
		line, _ := reader.FieldPos(0)

		t, err := strconv.ParseFloat(strings.TrimSpace(record[colTime]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: time: %v", ErrMalformedThroughput, line, err)
		}
		if math.IsNaN(t) {
			return nil, fmt.Errorf("%w: line %d: time is NaN", ErrMalformedThroughput, line)
		}
		txBytes, err := strconv.ParseFloat(strings.TrimSpace(record[colTxBytes]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: tx_bytes: %v", ErrMalformedThroughput, line, err)
		}
		// packet counters are informational; unparsable values read as zero
		txPackets, _ := strconv.ParseUint(strings.TrimSpace(record[colTxPackets]), 10, 64)
		lost, _ := strconv.ParseUint(strings.TrimSpace(record[colLostPackets]), 10, 64)

		samples = append(samples, ThroughputSample{
			Time:        t,
			Source:      strings.TrimSpace(record[colSource]),
			Destination: strings.TrimSpace(record[colDestination]),
			TxPackets:   txPackets,
			TxBytes:     txBytes,
			LostPackets: lost,
		})
	}
	return samples, nil
}

// DeriveRates filters samples by exact source identity, orders them by time
// and converts consecutive cumulative byte deltas to Mbps. The first sample
// has no predecessor and is reported as rate 0, as is any delta involving a
// NaN counter. One record is emitted per matching sample.
func DeriveRates(samples []ThroughputSample, identity string, runID int) []metric.Record {
	var flow []ThroughputSample
	for _, s := range samples {
		if s.Source == identity {
			flow = append(flow, s)
		}
	}
	if len(flow) == 0 {
		return nil
	}
	sort.SliceStable(flow, func(i, j int) bool {
		return flow[i].Time < flow[j].Time
	})

	records := make([]metric.Record, len(flow))
	for k, s := range flow {
		rate := 0.0
		if k > 0 {
			delta := s.TxBytes - flow[k-1].TxBytes
			if !math.IsNaN(delta) {
				rate = (delta * 8) / 1_000_000
			}
		}
		records[k] = metric.Record{Time: s.Time, Value: rate, RunID: runID}
	}
	return records
}
