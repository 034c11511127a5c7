package storage

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"

	"netsim-consolidate/internal/dataframe"
	"netsim-consolidate/internal/logging"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// WriteResult describes the persistence of one metric dataset.
type WriteResult struct {
	Metric   string
	Path     string
	Rows     int
	Runs     int
	Checksum string
	Err      error
}

// Writer persists one CSV file per metric dataset under a directory.
type Writer struct {
	dir       string
	precision int
}

func NewWriter(dir string, precision int) *Writer {
	return &Writer{dir: dir, precision: precision}
}

func (w *Writer) Dir() string {
	return w.dir
}

// FileName returns the dataset file name for a metric.
func FileName(metricName string) string {
	return metricName + ".csv"
}

// WriteAll writes every dataset, continuing past failures. The returned error
// combines the failures of all datasets that could not be persisted.
func (w *Writer) WriteAll(datasets []dataframe.Dataset) ([]WriteResult, error) {
	logger := logging.GetLogger()

	results := make([]WriteResult, 0, len(datasets))
	var errs error
	for _, d := range datasets {
		res := w.WriteDataset(d)
		results = append(results, res)
		if res.Err != nil {
			logger.WithField("metric", res.Metric).WithError(res.Err).Error("Failed to write dataset")
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", res.Metric, res.Err))
			continue
		}
		logger.WithFields(logrus.Fields{
			"metric": res.Metric,
			"file":   res.Path,
			"rows":   res.Rows,
			"runs":   res.Runs,
		}).Info("Wrote dataset")
	}
	return results, errs
}

// WriteDataset persists one dataset atomically: either the complete sorted
// file replaces the previous one, or nothing changes on disk.
func (w *Writer) WriteDataset(d dataframe.Dataset) WriteResult {
	res := WriteResult{Metric: d.Metric.String(), Rows: len(d.Records), Runs: d.Runs()}

	hash := md5.New()
	path, err := WriteFileAtomic(w.dir, FileName(res.Metric), func(out io.Writer) error {
		return EncodeDataset(io.MultiWriter(out, hash), d, w.precision)
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Path = path
	res.Checksum = hex.EncodeToString(hash.Sum(nil))
	return res
}

// EncodeDataset renders a dataset as CSV with columns time, <metric>, run_id.
// Floats use precision significant digits.
func EncodeDataset(out io.Writer, d dataframe.Dataset, precision int) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(d.Metric.Columns()); err != nil {
		return err
	}

	row := make([]string, 3)
	for _, r := range d.Records {
		row[0] = FormatFloat(r.Time, precision)
		row[1] = FormatFloat(r.Value, precision)
		row[2] = strconv.Itoa(r.RunID)
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatFloat renders v like C's %.<precision>g, including its inf and nan
// spellings.
func FormatFloat(v float64, precision int) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', precision, 64)
}
