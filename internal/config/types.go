package config

import (
	"fmt"
	"path/filepath"

	"netsim-consolidate/internal/metric"
)

type ConsolidateConfig struct {
	Name          string           `yaml:"name"`
	BaseDir       string           `yaml:"base_dir"`
	Runs          int              `yaml:"runs"`
	RunDirFormat  string           `yaml:"run_dir_format"`
	MetricsDir    string           `yaml:"metrics_dir"`
	Precision     int              `yaml:"precision"`
	Workers       int              `yaml:"workers"`
	LogLevel      string           `yaml:"log_level"`
	RunLogLevel   string           `yaml:"run_log_level"`
	LogFormat     string           `yaml:"log_format"`
	Manifest      bool             `yaml:"manifest"`
	TelemetryFile string           `yaml:"telemetry_file"`
	Marks         MarksConfig      `yaml:"marks"`
	Throughput    ThroughputConfig `yaml:"throughput"`
	Series        []SeriesConfig   `yaml:"series"`
	Export        ExportConfig     `yaml:"export"`
}

type MarksConfig struct {
	File     string          `yaml:"file"`
	Keywords []KeywordConfig `yaml:"keywords"`
}

type KeywordConfig struct {
	Keyword string      `yaml:"keyword"`
	Metric  metric.Name `yaml:"metric"`
}

type ThroughputConfig struct {
	File    string         `yaml:"file"`
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig maps a flow source identity (IP address) to an output label.
type SourceConfig struct {
	Identity string `yaml:"identity"`
	Label    string `yaml:"label"`
}

func (s SourceConfig) Metric() metric.Name {
	return metric.ThroughputName(s.Label)
}

type SeriesFormat string

const (
	FormatWhitespace SeriesFormat = "whitespace"
	FormatComma      SeriesFormat = "comma"
)

type SeriesConfig struct {
	File   string       `yaml:"file"`
	Metric metric.Name  `yaml:"metric"`
	Format SeriesFormat `yaml:"format"`
}

type ExportConfig struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

type InfluxDBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Token    string `yaml:"token"`
	Org      string `yaml:"org"`
	Bucket   string `yaml:"bucket"`
	SpoolDir string `yaml:"spool_dir"`
}

// RunDir resolves the working directory of run id.
func (c *ConsolidateConfig) RunDir(id int) string {
	return filepath.Join(c.BaseDir, fmt.Sprintf(c.RunDirFormat, id))
}

func (c *ConsolidateConfig) MetricsPath() string {
	return filepath.Join(c.BaseDir, c.MetricsDir)
}

// InputFiles lists every per-run file name the extractors may read.
func (c *ConsolidateConfig) InputFiles() []string {
	files := []string{c.Marks.File, c.Throughput.File}
	for _, s := range c.Series {
		files = append(files, s.File)
	}
	return files
}
