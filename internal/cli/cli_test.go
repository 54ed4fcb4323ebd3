package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig drops a minimal config into dir and returns its path.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	cfg := fmt.Sprintf(`simulation:
  start_date: "2020-01-01"
  days: 1
  interval_minutes: 1
  seed: 7
output:
  path: %q
database:
  path: %q
logging:
  level: error
  format: json
%s`,
		filepath.Join(dir, "dataset.csv"),
		filepath.Join(dir, "runs.db"),
		extra)

	path := filepath.Join(dir, "sensorsim.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommandWithIO(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	out, err := run(t, "generate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "rows written") {
		t.Errorf("unexpected output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "dataset.csv")); err != nil {
		t.Errorf("dataset missing: %v", err)
	}
}

func TestGenerateRecordsRunInRegistry(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	if _, err := run(t, "generate", "--config", cfgPath); err != nil {
		t.Fatalf("generate: %v", err)
	}

	out, err := run(t, "runs", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out, "generate") || !strings.Contains(out, "completed") {
		t.Errorf("run not listed: %q", out)
	}
}

func TestInjectCommand(t *testing.T) {
	dir := t.TempDir()
	clean := writeConfig(t, dir, "")
	if _, err := run(t, "generate", "--config", clean); err != nil {
		t.Fatalf("generate: %v", err)
	}

	labeled := filepath.Join(dir, "labeled.csv")
	anomalies := `anomalies:
  - kind: spike
    column: temperature
    periods: 3
`
	cfgPath := writeConfig(t, t.TempDir(), anomalies)
	out, err := run(t, "inject", filepath.Join(dir, "dataset.csv"),
		"--config", cfgPath, "--output", labeled)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if !strings.Contains(out, "anomaly windows injected") {
		t.Errorf("unexpected output: %q", out)
	}
	if _, err := os.Stat(labeled); err != nil {
		t.Errorf("labeled dataset missing: %v", err)
	}
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	anomalies := `anomalies:
  - kind: spike
    column: temperature
    periods: 3
detection:
  sensitivity: 0.5
  window_rows: 0
  forest_trees: 10
  forest_subsample: 64
  forest_threshold: 0.6
`
	cfgPath := writeConfig(t, dir, anomalies)
	if _, err := run(t, "generate", "--config", cfgPath); err != nil {
		t.Fatalf("generate: %v", err)
	}

	out, err := run(t, "detect", filepath.Join(dir, "dataset.csv"), "--config", cfgPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !strings.Contains(out, "baseline:") || !strings.Contains(out, "forest:") {
		t.Errorf("missing method sections: %q", out)
	}
	if !strings.Contains(out, "overall") {
		t.Errorf("missing overall row: %q", out)
	}
}

func TestSeedOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	out, err := run(t, "generate", "--config", cfgPath, "--seed", "99")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "seed 99") {
		t.Errorf("seed override ignored: %q", out)
	}
}

func TestRunsShowMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	if _, err := run(t, "runs", "show", "nope", "--config", cfgPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  days: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := run(t, "generate", "--config", path); err == nil {
		t.Fatal("expected validation error")
	}
}
