package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/database"
	"netsim-consolidate/internal/dataframe"
	"netsim-consolidate/internal/dataparser"
	"netsim-consolidate/internal/host"
	"netsim-consolidate/internal/logging"
	"netsim-consolidate/internal/runset"
	"netsim-consolidate/internal/storage"
	"netsim-consolidate/internal/telemetry"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const exportTimeout = 2 * time.Minute

// Exporter ships finalized datasets to an external store.
type Exporter interface {
	WriteDatasets(ctx context.Context, batch string, datasets []dataframe.Dataset) error
}

type Option func(*Consolidator)

// WithExporter replaces the InfluxDB exporter the configuration would create.
func WithExporter(e Exporter) Option {
	return func(c *Consolidator) { c.exporter = e }
}

// WithExtractors replaces the configured extractors.
func WithExtractors(extractors ...dataparser.Extractor) Option {
	return func(c *Consolidator) { c.extractors = extractors }
}

type Consolidator struct {
	config     *config.ConsolidateConfig
	runs       *runset.RunSet
	extractors []dataparser.Extractor
	dataframes *dataframe.DataFrames
	telemetry  *telemetry.Collector
	exporter   Exporter

	mu       sync.Mutex
	outcomes map[int][]dataparser.Outcome
}

// Summary is the best-effort account of a batch.
type Summary struct {
	RunsFound         []int
	RunsMissing       []int
	Outcomes          []dataparser.Outcome
	ExtractorFailures int
	Results           []storage.WriteResult
	Written           int
	Failed            int
	ManifestPath      string
	SpoolPath         string
	Exported          bool
}

// NoData reports whether the batch produced nothing to persist.
func (s *Summary) NoData() bool {
	return len(s.Results) == 0
}

func New(cfg *config.ConsolidateConfig, opts ...Option) *Consolidator {
	c := &Consolidator{
		config:     cfg,
		runs:       runset.New(cfg),
		extractors: dataparser.NewExtractors(cfg),
		dataframes: dataframe.NewDataFrames(),
		telemetry:  telemetry.NewCollector(),
		outcomes:   make(map[int][]dataparser.Outcome),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consolidator) Telemetry() *telemetry.Collector {
	return c.telemetry
}

// Run consolidates every present run of the batch. A Consolidator is
// single-use. No run or metric failure
// stops the batch; the returned error combines the failures to persist
// datasets, the manifest, the spool artifact or the telemetry file.
func (c *Consolidator) Run(ctx context.Context) (*Summary, error) {
	logger := logging.GetLogger()

	logger.WithFields(logrus.Fields{
		"batch":    c.config.Name,
		"base_dir": c.config.BaseDir,
		"runs":     c.runs.Size(),
		"workers":  c.config.Workers,
	}).Info("Consolidating runs")

	found, err := c.extractRuns(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunsFound:   found,
		RunsMissing: c.runs.Missing(),
		Outcomes:    c.orderedOutcomes(),
	}
	for _, id := range summary.RunsMissing {
		c.telemetry.RunSeen(telemetry.RunMissing)
		logging.GetRunLogger().WithField("run_id", id).Debug("Run directory missing, skipping")
	}
	for _, o := range summary.Outcomes {
		if o.Status == dataparser.StatusFailed {
			summary.ExtractorFailures++
		}
	}

	datasets := c.dataframes.Finalize()
	if len(datasets) == 0 {
		logger.WithFields(logrus.Fields{
			"runs_found":   len(summary.RunsFound),
			"runs_missing": len(summary.RunsMissing),
		}).Warn("No data found")
		return summary, c.writeTelemetry()
	}

	var errs error

	writer := storage.NewWriter(c.config.MetricsPath(), c.config.Precision)
	results, writeErr := writer.WriteAll(datasets)
	errs = multierr.Append(errs, writeErr)
	summary.Results = results
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			c.telemetry.Dataset(telemetry.DatasetFailed)
		} else {
			summary.Written++
			c.telemetry.Dataset(telemetry.DatasetWritten)
		}
	}

	if c.config.Manifest {
		path, err := storage.WriteManifest(writer.Dir(), c.buildManifest(summary))
		if err != nil {
			logger.WithError(err).Error("Failed to write manifest")
			errs = multierr.Append(errs, fmt.Errorf("manifest: %w", err))
		} else {
			summary.ManifestPath = path
		}
	}

	errs = multierr.Append(errs, c.export(ctx, datasets, summary))
	errs = multierr.Append(errs, c.writeTelemetry())

	c.logSummary(summary)
	return summary, errs
}

func (c *Consolidator) extractRuns(ctx context.Context) ([]int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	var found []int
	for run := range c.runs.Runs() {
		if gctx.Err() != nil {
			break
		}
		found = append(found, run.ID)
		c.telemetry.RunSeen(telemetry.RunFound)
		g.Go(func() error {
			c.processRun(run)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("consolidation interrupted: %w", err)
	}
	if found == nil {
		found = []int{}
	}
	return found, nil
}

// processRun runs every extractor against one run. Batches get a sequence
// number in source order so that the final sort is independent of which
// worker finished first.
func (c *Consolidator) processRun(run runset.Run) {
	logger := logging.GetRunLogger()

	var outcomes []dataparser.Outcome
	seq := 0
	for _, ex := range c.extractors {
		for _, o := range safeExtract(ex, run) {
			for _, b := range o.Batches {
				if err := c.dataframes.AddBatch(b.Metric, run.ID, seq, b.Records); err != nil {
					logger.WithFields(logrus.Fields{
						"run_id":    run.ID,
						"extractor": o.Extractor,
						"metric":    b.Metric,
					}).WithError(err).Warn("Discarding batch")
					continue
				}
				c.telemetry.Rows(b.Metric.String(), len(b.Records))
				seq++
			}

			c.telemetry.Extraction(o.Extractor, o.Status.String(), o.Dropped)
			if o.Status == dataparser.StatusFailed {
				logger.WithFields(logrus.Fields{
					"run_id":    run.ID,
					"extractor": o.Extractor,
					"file":      o.File,
				}).WithError(o.Err).Warn("Extraction failed, run contributes nothing for this file")
			}

			// Records are already in the dataframes.
			o.Batches = nil
			outcomes = append(outcomes, o)
		}
	}

	c.mu.Lock()
	c.outcomes[run.ID] = outcomes
	c.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"outcomes": len(outcomes),
	}).Debug("Run processed")
}

// safeExtract turns a panicking extractor into a failed outcome for the run.
func safeExtract(ex dataparser.Extractor, run runset.Run) (outcomes []dataparser.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcomes = []dataparser.Outcome{{
				Extractor: ex.Name(),
				RunID:     run.ID,
				Status:    dataparser.StatusFailed,
				Err:       fmt.Errorf("extractor panicked: %v", r),
			}}
		}
	}()
	return ex.Extract(run)
}

func (c *Consolidator) orderedOutcomes() []dataparser.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int, 0, len(c.outcomes))
	for id := range c.outcomes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var all []dataparser.Outcome
	for _, id := range ids {
		all = append(all, c.outcomes[id]...)
	}
	return all
}

func (c *Consolidator) buildManifest(summary *Summary) *storage.Manifest {
	checksum, err := config.Checksum(c.config)
	if err != nil {
		logging.GetLogger().WithError(err).Warn("Failed to compute config checksum")
	}

	m := storage.NewManifest(c.config.Name, checksum, c.config.BaseDir, c.runs.Size())
	m.Host = host.Get()
	m.RunsFound = summary.RunsFound
	m.RunsMissing = summary.RunsMissing
	for _, o := range summary.Outcomes {
		entry := storage.ExtractionEntry{
			RunID:     o.RunID,
			Extractor: o.Extractor,
			File:      o.File,
			Status:    o.Status.String(),
			Rows:      o.Rows(),
			Dropped:   o.Dropped,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		m.Extractions = append(m.Extractions, entry)
	}
	m.AddResults(summary.Results)
	return m
}

// export sends the datasets to InfluxDB when enabled. A failed export is
// spooled to disk for a later replay and is only an error if spooling fails.
func (c *Consolidator) export(ctx context.Context, datasets []dataframe.Dataset, summary *Summary) error {
	influxCfg := c.config.Export.InfluxDB

	exporter := c.exporter
	if exporter == nil {
		if !influxCfg.Enabled {
			return nil
		}
		client, err := database.NewInfluxDBClient(influxCfg)
		if err != nil {
			return c.spool(datasets, summary, err)
		}
		defer client.Close()
		exporter = client
	}

	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	if err := exporter.WriteDatasets(ctx, c.config.Name, datasets); err != nil {
		return c.spool(datasets, summary, err)
	}
	summary.Exported = true
	return nil
}

func (c *Consolidator) spool(datasets []dataframe.Dataset, summary *Summary, cause error) error {
	logger := logging.GetLogger()
	logger.WithError(cause).Warn("Export failed, spooling datasets")

	checksum, _ := config.Checksum(c.config)
	artifact := database.BuildSpoolArtifact(c.config.Name, checksum, datasets)
	path, err := database.WriteSpoolArtifact(c.config.Export.InfluxDB.SpoolDir, artifact)
	if err != nil {
		logger.WithError(err).Error("Failed to write spool artifact")
		return fmt.Errorf("spool: %w", multierr.Combine(cause, err))
	}
	summary.SpoolPath = path
	logger.WithField("file", path).Info("Datasets spooled for replay")
	return nil
}

func (c *Consolidator) writeTelemetry() error {
	if c.config.TelemetryFile == "" {
		return nil
	}
	if err := c.telemetry.WriteTextfile(c.config.TelemetryFile); err != nil {
		logging.GetLogger().WithField("file", c.config.TelemetryFile).WithError(err).Error("Failed to write telemetry")
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (c *Consolidator) logSummary(summary *Summary) {
	logger := logging.GetLogger()

	fields := logrus.Fields{
		"batch":              c.config.Name,
		"datasets_written":   summary.Written,
		"datasets_failed":    summary.Failed,
		"runs_found":         len(summary.RunsFound),
		"runs_missing":       len(summary.RunsMissing),
		"extractor_failures": summary.ExtractorFailures,
		"output_dir":         c.config.MetricsPath(),
	}
	if summary.SpoolPath != "" {
		fields["spool"] = summary.SpoolPath
	}
	if summary.Failed > 0 {
		logger.WithFields(fields).Warn("Consolidation finished with failures")
		return
	}
	logger.WithFields(fields).Info("Consolidation finished")
}
