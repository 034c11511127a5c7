package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netsim-consolidate/internal/metric"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "consolidate.yml")
	if err := os.WriteFile(path, []byte(`
name: scenario-2
base_dir: exps/results_scenario_2_modif
runs: 12
throughput:
  sources:
    - identity: 10.1.5.2
      label: prague
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Runs != 12 || cfg.BaseDir != "exps/results_scenario_2_modif" {
		t.Fatalf("unexpected runs/base_dir: %d %q", cfg.Runs, cfg.BaseDir)
	}
	if len(cfg.Throughput.Sources) != 1 || cfg.Throughput.Sources[0].Label != "prague" {
		t.Fatalf("expected sources to be replaced, got %+v", cfg.Throughput.Sources)
	}
	// untouched sections keep their defaults
	if cfg.Throughput.File != "throughput.csv" {
		t.Fatalf("expected default throughput file, got %q", cfg.Throughput.File)
	}
	if len(cfg.Series) != len(Default().Series) {
		t.Fatalf("expected default series mapping, got %d entries", len(cfg.Series))
	}
	if cfg.Precision != DefaultPrecision || !cfg.Manifest {
		t.Fatalf("expected default precision and manifest, got %d %v", cfg.Precision, cfg.Manifest)
	}
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("NETSIM_TEST_BASE", "/data/batch-7")
	cfg, err := Parse([]byte("base_dir: ${NETSIM_TEST_BASE}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.BaseDir != "/data/batch-7" {
		t.Fatalf("expected expanded base_dir, got %q", cfg.BaseDir)
	}
}

func TestParse_InfluxPlaceholdersFromDefaults(t *testing.T) {
	t.Setenv("INFLUXDB_HOST", "http://influx:8086")
	t.Setenv("INFLUXDB_TOKEN", "tok")
	t.Setenv("INFLUXDB_ORG", "lab")
	t.Setenv("INFLUXDB_BUCKET", "l4s")

	cfg, err := Parse([]byte("export:\n  influxdb:\n    enabled: true\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	db := cfg.Export.InfluxDB
	if db.Host != "http://influx:8086" || db.Token != "tok" || db.Org != "lab" || db.Bucket != "l4s" {
		t.Fatalf("expected influx settings from environment, got %+v", db)
	}
	if db.SpoolDir != DefaultSpoolDir {
		t.Fatalf("expected default spool dir, got %q", db.SpoolDir)
	}
}

func TestParse_InfluxEnabledWithoutEnvironment(t *testing.T) {
	t.Setenv("INFLUXDB_HOST", "")
	_, err := Parse([]byte("export:\n  influxdb:\n    enabled: true\n"))
	if err == nil {
		t.Fatalf("expected error when influx variables are unset")
	}
}

func TestParse_UnknownMetric(t *testing.T) {
	cases := map[string]string{
		"series": `
series:
  - file: bbr-cwnd.txt
    metric: bbr_cwnd
    format: comma
`,
		"marks": `
marks:
  keywords:
    - keyword: CE
      metric: count_mark_ce
`,
		"throughput": `
throughput:
  sources:
    - identity: 10.1.6.2
      label: bbr
`,
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected error for metric outside the catalog", name)
		}
		if !errors.Is(err, ErrUnknownMetric) {
			t.Fatalf("%s: expected ErrUnknownMetric, got %v", name, err)
		}
	}
}

func TestParse_KindMismatch(t *testing.T) {
	_, err := Parse([]byte(`
series:
  - file: marks.txt
    metric: count_mark_l4s
    format: whitespace
`))
	if !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("expected a mark metric to be rejected as a series, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ConsolidateConfig)
		want   string
	}{
		{"negative runs", func(c *ConsolidateConfig) { c.Runs = -1 }, "runs"},
		{"zero workers", func(c *ConsolidateConfig) { c.Workers = 0 }, "workers"},
		{"precision", func(c *ConsolidateConfig) { c.Precision = 0 }, "precision"},
		{"run dir format", func(c *ConsolidateConfig) { c.RunDirFormat = "run" }, "run_dir_format"},
		{"format", func(c *ConsolidateConfig) { c.Series[0].Format = "tab" }, "unknown format"},
		{"duplicate file", func(c *ConsolidateConfig) { c.Series[1].File = c.Series[0].File }, "already mapped"},
		{"duplicate identity", func(c *ConsolidateConfig) {
			c.Throughput.Sources[1].Identity = c.Throughput.Sources[0].Identity
		}, "already tracked"},
		{"empty keyword", func(c *ConsolidateConfig) { c.Marks.Keywords[0].Keyword = "" }, "keyword is required"},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		err := Validate(cfg)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRunDir(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = "/tmp/batch"
	if got := cfg.RunDir(7); got != filepath.Join("/tmp/batch", "run_7") {
		t.Fatalf("unexpected run dir %q", got)
	}
	if got := cfg.MetricsPath(); got != filepath.Join("/tmp/batch", "metrics") {
		t.Fatalf("unexpected metrics path %q", got)
	}
}

func TestDefault_MarksIncludeDropKeywords(t *testing.T) {
	var drops int
	for _, kw := range Default().Marks.Keywords {
		if kw.Metric == metric.CountDrop {
			drops++
		}
	}
	if drops != 2 {
		t.Fatalf("expected drop and Drop keywords, got %d", drops)
	}
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "consolidate.example.yml"))
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if cfg.Workers != 4 || len(cfg.Series) != 9 || len(cfg.Throughput.Sources) != 2 {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
}
