package config

import "netsim-consolidate/internal/metric"

const (
	DefaultBaseDir      = "exps/results"
	DefaultRuns         = 30
	DefaultRunDirFormat = "run_%d"
	DefaultMetricsDir   = "metrics"
	DefaultPrecision    = 6
	DefaultSpoolDir     = "spool"
)

// Default returns the configuration used for the DualQ coupled PI2 scenario
// when no file is given. LoadConfig decodes YAML on top of it, so a file only
// needs to name what it changes.
func Default() *ConsolidateConfig {
	return &ConsolidateConfig{
		Name:         "dualq-scenario",
		BaseDir:      DefaultBaseDir,
		Runs:         DefaultRuns,
		RunDirFormat: DefaultRunDirFormat,
		MetricsDir:   DefaultMetricsDir,
		Precision:    DefaultPrecision,
		Workers:      1,
		LogLevel:     "info",
		RunLogLevel:  "info",
		LogFormat:    "text",
		Manifest:     true,
		Marks: MarksConfig{
			File: "queue-marks.txt",
			Keywords: []KeywordConfig{
				{Keyword: "L4S", Metric: metric.CountMarkL4S},
				{Keyword: "classic", Metric: metric.CountMarkClassic},
				{Keyword: "drop", Metric: metric.CountDrop},
				{Keyword: "Drop", Metric: metric.CountDrop},
			},
		},
		Throughput: ThroughputConfig{
			File: "throughput.csv",
			Sources: []SourceConfig{
				{Identity: "10.1.4.2", Label: "cubic"},
				{Identity: "10.1.5.2", Label: "prague"},
			},
		},
		Series: []SeriesConfig{
			{File: "prague-cwnd.txt", Metric: metric.PragueCwnd, Format: FormatComma},
			{File: "prague-rtt.txt", Metric: metric.PragueRTT, Format: FormatComma},
			{File: "cubic-cwnd.txt", Metric: metric.CubicCwnd, Format: FormatComma},
			{File: "cubic-rtt.txt", Metric: metric.CubicRTT, Format: FormatComma},
			{File: "queue-sojourn-l4s.txt", Metric: metric.QueueSojournL4S, Format: FormatWhitespace},
			{File: "queue-sojourn-classic.txt", Metric: metric.QueueSojournClassic, Format: FormatWhitespace},
			{File: "queue-prob-cl.txt", Metric: metric.QueueProbCoupled, Format: FormatWhitespace},
			{File: "queue-prob-c.txt", Metric: metric.QueueProbClassic, Format: FormatWhitespace},
			{File: "queue-prob-l.txt", Metric: metric.QueueProbL4S, Format: FormatWhitespace},
		},
		Export: ExportConfig{
			InfluxDB: InfluxDBConfig{
				Host:     "${INFLUXDB_HOST}",
				Token:    "${INFLUXDB_TOKEN}",
				Org:      "${INFLUXDB_ORG}",
				Bucket:   "${INFLUXDB_BUCKET}",
				SpoolDir: DefaultSpoolDir,
			},
		},
	}
}
