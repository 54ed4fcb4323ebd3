// Package cli wires the sensorsim commands: generate, inject, detect, and
// the runs registry inspection group.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homesense/sensorsim/internal/config"
	"github.com/homesense/sensorsim/internal/db"
	"github.com/homesense/sensorsim/internal/logging"
	"github.com/homesense/sensorsim/internal/metrics"
)

type app struct {
	configPath  string
	outputPath  string
	seed        int64
	metricsAddr string
	noStore     bool

	cfg    *config.Config
	log    *zap.Logger
	store  db.Store
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the sensorsim root command bound to the process
// streams.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

// NewRootCommandWithIO builds the root command with explicit output streams,
// mainly for tests.
func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "sensorsim",
		Short:         "Synthetic smart-home sensor dataset generator",
		Long:          "sensorsim generates labeled smart-home telemetry datasets: environmental sensors, per-person behavior, apartment-level aggregation, and configurable anomaly injection, with baseline detectors for evaluating the labels.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "sensorsim.yaml", "path to the config file")
	cmd.PersistentFlags().StringVarP(&a.outputPath, "output", "o", "", "override the output dataset path")
	cmd.PersistentFlags().Int64Var(&a.seed, "seed", 0, "override the simulation seed")
	cmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address for the duration of the run")
	cmd.PersistentFlags().BoolVar(&a.noStore, "no-store", false, "skip recording the run in the registry")

	cmd.AddCommand(
		newGenerateCmd(a),
		newInjectCmd(a),
		newDetectCmd(a),
		newRunsCmd(a),
	)

	cmd.SetErrPrefix("sensorsim: ")
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return cmd
}

// setup loads and validates the config, applies CLI overrides, and builds the
// logger and run registry. Every subcommand calls it once in RunE.
func (a *app) setup(cmd *cobra.Command) error {
	mgr, err := config.NewManager(a.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = mgr.Get(ctx)

	if a.outputPath != "" {
		a.cfg.Output.Path = a.outputPath
	}
	if a.seed != 0 {
		a.cfg.Simulation.Seed = a.seed
	}
	if a.metricsAddr != "" {
		a.cfg.Metrics.Enabled = true
		a.cfg.Metrics.Addr = a.metricsAddr
	}

	if errs := a.cfg.Validate(); len(errs) > 0 {
		for _, e := range errs[1:] {
			fmt.Fprintf(a.stderr, "config: %v\n", e)
		}
		return fmt.Errorf("config: %w", errs[0])
	}

	a.log, err = logging.New(logging.Options{
		Level:      a.cfg.Logging.Level,
		Format:     a.cfg.Logging.Format,
		File:       a.cfg.Logging.File,
		MaxSizeMB:  a.cfg.Logging.MaxSizeMB,
		MaxBackups: a.cfg.Logging.MaxBackups,
		MaxAgeDays: a.cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if !a.noStore {
		if err := a.openStore(); err != nil {
			return err
		}
	}

	a.serveMetrics()
	return nil
}

func (a *app) openStore() error {
	if dir := filepath.Dir(a.cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	store, err := db.NewSQLiteStore(a.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open run registry: %w", err)
	}
	a.store = store
	return nil
}

// serveMetrics starts the metrics endpoint in the background when enabled.
// The listener dies with the process; runs are short-lived, so there is no
// graceful shutdown path.
func (a *app) serveMetrics() {
	if !a.cfg.Metrics.Enabled {
		return
	}
	addr := a.cfg.Metrics.Addr
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.log.Info("serving metrics", zap.String("addr", addr))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.log.Warn("metrics endpoint failed", zap.Error(err))
		}
	}()
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// ensureOutputDir creates the directory holding the output dataset.
func (a *app) ensureOutputDir() error {
	dir := filepath.Dir(a.cfg.Output.Path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
