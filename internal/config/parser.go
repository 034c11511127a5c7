package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"netsim-consolidate/internal/logging"
	"netsim-consolidate/internal/metric"

	"gopkg.in/yaml.v3"
)

var ErrUnknownMetric = errors.New("unknown metric")

func LoadConfig(filepath string) (*ConsolidateConfig, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

func LoadConfigWithContent(filepath string) (*ConsolidateConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)

	config, err := Parse([]byte(originalContent))
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, "", err
	}

	return config, originalContent, nil
}

// Parse decodes YAML on top of Default() and validates the result.
func Parse(data []byte) (*ConsolidateConfig, error) {
	expanded := expandEnvVars(string(data))

	config := Default()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}
	config.Export.InfluxDB = expandInfluxDB(config.Export.InfluxDB)

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

// The influx defaults carry ${VAR} placeholders that never passed through the
// YAML text, so they are expanded separately.
func expandInfluxDB(db InfluxDBConfig) InfluxDBConfig {
	db.Host = expandEnvVars(db.Host)
	db.Token = expandEnvVars(db.Token)
	db.Org = expandEnvVars(db.Org)
	db.Bucket = expandEnvVars(db.Bucket)
	return db
}

func Validate(config *ConsolidateConfig) error {
	if config.BaseDir == "" {
		return fmt.Errorf("base_dir is required")
	}

	if config.Runs < 0 {
		return fmt.Errorf("runs must not be negative")
	}

	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if config.Precision < 1 || config.Precision > 17 {
		return fmt.Errorf("precision must be between 1 and 17, got %d", config.Precision)
	}

	if config.MetricsDir == "" {
		return fmt.Errorf("metrics_dir is required")
	}

	if strings.Count(config.RunDirFormat, "%d") != 1 || strings.Contains(fmt.Sprintf(config.RunDirFormat, 0), "%!") {
		return fmt.Errorf("run_dir_format must contain exactly one %%d verb, got %q", config.RunDirFormat)
	}

	if err := validateMarks(config.Marks); err != nil {
		return err
	}
	if err := validateThroughput(config.Throughput); err != nil {
		return err
	}
	if err := validateSeries(config.Series); err != nil {
		return err
	}

	db := config.Export.InfluxDB
	if db.Enabled {
		if db.Host == "" || db.Token == "" || db.Org == "" || db.Bucket == "" {
			return fmt.Errorf("incomplete influxdb export configuration")
		}
		if hasPlaceholder(db.Host) || hasPlaceholder(db.Token) || hasPlaceholder(db.Org) || hasPlaceholder(db.Bucket) {
			return fmt.Errorf("influxdb export configuration references unset environment variables")
		}
	}

	return nil
}

func hasPlaceholder(s string) bool {
	return strings.Contains(s, "${")
}

func validateMarks(marks MarksConfig) error {
	if marks.File == "" {
		return fmt.Errorf("marks.file is required")
	}
	for i, kw := range marks.Keywords {
		if kw.Keyword == "" {
			return fmt.Errorf("marks.keywords[%d]: keyword is required", i)
		}
		if _, err := metric.Resolve(kw.Metric, metric.KindMark); err != nil {
			return fmt.Errorf("marks.keywords[%d]: %w: %v", i, ErrUnknownMetric, err)
		}
	}
	return nil
}

func validateThroughput(thr ThroughputConfig) error {
	if thr.File == "" {
		return fmt.Errorf("throughput.file is required")
	}
	identities := make(map[string]bool)
	labels := make(map[string]bool)
	for i, src := range thr.Sources {
		if src.Identity == "" || src.Label == "" {
			return fmt.Errorf("throughput.sources[%d]: identity and label are required", i)
		}
		if identities[src.Identity] {
			return fmt.Errorf("throughput.sources[%d]: identity %s is already tracked", i, src.Identity)
		}
		identities[src.Identity] = true
		if labels[src.Label] {
			return fmt.Errorf("throughput.sources[%d]: label %s is already used", i, src.Label)
		}
		labels[src.Label] = true
		if _, err := metric.Resolve(src.Metric(), metric.KindRate); err != nil {
			return fmt.Errorf("throughput.sources[%d]: %w: %v", i, ErrUnknownMetric, err)
		}
	}
	return nil
}

func validateSeries(series []SeriesConfig) error {
	files := make(map[string]bool)
	for i, s := range series {
		if s.File == "" {
			return fmt.Errorf("series[%d]: file is required", i)
		}
		if files[s.File] {
			return fmt.Errorf("series[%d]: file %s is already mapped", i, s.File)
		}
		files[s.File] = true
		if _, err := metric.Resolve(s.Metric, metric.KindSeries); err != nil {
			return fmt.Errorf("series[%d]: %w: %v", i, ErrUnknownMetric, err)
		}
		switch s.Format {
		case FormatWhitespace, FormatComma:
		default:
			return fmt.Errorf("series[%d]: unknown format %q", i, s.Format)
		}
	}
	return nil
}
