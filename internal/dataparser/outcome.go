package dataparser

import (
	"errors"
	"io/fs"
	"os"

	"netsim-consolidate/internal/metric"
	"netsim-consolidate/internal/runset"
)

// Status classifies what one extractor produced for one input file of a run.
type Status int

const (
	// StatusOK means the file was read; it may still have contributed no rows.
	StatusOK Status = iota
	// StatusAbsent means the file does not exist in the run directory.
	StatusAbsent
	// StatusFailed means the file exists but could not be parsed; its
	// contribution for this run is empty.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Batch is the time series one extractor produced for one metric of one run.
type Batch struct {
	Metric  metric.Name
	RunID   int
	Records []metric.Record
}

// Outcome is the result of extracting one input file of a run.
type Outcome struct {
	Extractor string
	RunID     int
	File      string
	Status    Status
	Err       error
	Batches   []Batch
	// Dropped counts malformed rows skipped while parsing.
	Dropped int
}

// Rows returns the number of records across all batches.
func (o Outcome) Rows() int {
	n := 0
	for _, b := range o.Batches {
		n += len(b.Records)
	}
	return n
}

// Extractor reads one family of input files from a run directory.
type Extractor interface {
	Name() string
	Extract(run runset.Run) []Outcome
}

func absent(extractor string, run runset.Run, file string) Outcome {
	return Outcome{Extractor: extractor, RunID: run.ID, File: file, Status: StatusAbsent}
}

func failed(extractor string, run runset.Run, file string, err error) Outcome {
	return Outcome{Extractor: extractor, RunID: run.ID, File: file, Status: StatusFailed, Err: err}
}

// openInput opens a per-run file, reporting a missing file as absence rather
// than as an error.
func openInput(path string) (*os.File, Status, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, StatusAbsent, nil
		}
		return nil, StatusFailed, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, StatusFailed, err
	}
	if info.IsDir() {
		f.Close()
		return nil, StatusFailed, &fs.PathError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}
	return f, StatusOK, nil
}
