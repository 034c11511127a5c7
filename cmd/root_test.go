package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRoot_SubcommandsPresent(t *testing.T) {
	have := map[string]bool{}
	for _, c := range NewRootCommand().Commands() {
		have[c.Name()] = true
		if c.Name() == "config" {
			sub := map[string]bool{}
			for _, sc := range c.Commands() {
				sub[sc.Name()] = true
			}
			if !sub["show"] || !sub["metrics"] {
				t.Fatalf("config subcommands missing: %v", sub)
			}
		}
	}
	for _, want := range []string{"run", "validate", "inspect", "config", "replay"} {
		if !have[want] {
			t.Fatalf("missing subcommand %s", want)
		}
	}
}

func TestCommands_HaveDescriptions(t *testing.T) {
	var check func(*cobra.Command)
	check = func(cmd *cobra.Command) {
		if cmd.Short == "" || cmd.Long == "" {
			t.Fatalf("command %s missing Short/Long", cmd.Name())
		}
		for _, sc := range cmd.Commands() {
			if sc.Name() == "help" || sc.Name() == "completion" {
				continue
			}
			check(sc)
		}
	}
	check(NewRootCommand())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consolidate.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	good := writeConfig(t, "name: test\nruns: 5\nbase_dir: /data/results\n")
	if _, err := execute(t, "validate", "-c", good); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := writeConfig(t, "precision: 40\n")
	if _, err := execute(t, "validate", "-c", bad); err == nil {
		t.Fatalf("expected invalid precision to be rejected")
	}

	if _, err := execute(t, "validate"); err == nil {
		t.Fatalf("expected --config to be required")
	}
}

func TestRun_WritesDatasets(t *testing.T) {
	base := t.TempDir()
	runDir := filepath.Join(base, "run_0")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "cubic-rtt.txt"), []byte("1.0,20\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := execute(t, "run", "--base-dir", base, "--runs", "2", "--metrics-dir", "out"); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, "out", "cubic_rtt.csv"))
	if err != nil {
		t.Fatalf("dataset not written: %v", err)
	}
	if string(data) != "time,cubic_rtt,run_id\n1,20,0\n" {
		t.Fatalf("unexpected dataset:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(base, "out", "manifest.json")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
}

func TestRun_NoDataSucceeds(t *testing.T) {
	base := t.TempDir()
	if _, err := execute(t, "run", "--base-dir", base, "--runs", "3"); err != nil {
		t.Fatalf("an empty batch must not fail: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "metrics")); !os.IsNotExist(err) {
		t.Fatalf("metrics dir should not exist: %v", err)
	}
}

func TestRun_RejectsInvalidOverride(t *testing.T) {
	if _, err := execute(t, "run", "--base-dir", t.TempDir(), "--workers", "-1"); err == nil {
		t.Fatalf("expected negative workers to be rejected")
	}
}

func TestInspect_EnvironmentOverride(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "run_0"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "run_0", "throughput.csv"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("NETSIM_BASE_DIR", base)
	t.Setenv("NETSIM_RUNS", "2")

	out, err := execute(t, "inspect")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "1 of 2 runs present") {
		t.Fatalf("unexpected inspect output:\n%s", out)
	}
	if !strings.Contains(out, "missing") || !strings.Contains(out, "queue-marks.txt") {
		t.Fatalf("inspect should list the missing run and files:\n%s", out)
	}
}

func TestConfigMetrics(t *testing.T) {
	out, err := execute(t, "config", "metrics")
	if err != nil {
		t.Fatalf("config metrics: %v", err)
	}
	if !strings.Contains(out, "count_drop") || !strings.Contains(out, "recognized") {
		t.Fatalf("catalog listing incomplete:\n%s", out)
	}
}

func TestConfigShow(t *testing.T) {
	out, err := execute(t, "config", "show", "--runs", "7")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "checksum: ") {
		t.Fatalf("checksum not printed:\n%s", out)
	}
}

func TestReplay_RequiresInfluxSettings(t *testing.T) {
	t.Setenv("INFLUXDB_HOST", "")
	if _, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.json.gz")); err == nil {
		t.Fatalf("expected replay without InfluxDB settings to fail")
	}
}
