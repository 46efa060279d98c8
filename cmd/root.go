// =============================================================================
// pain.001 File Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI and the runtime that
// every subcommand shares: configuration, logging and the converter with its
// collaborators.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pain001)
//   ├── convertCmd  (pain001 convert)
//   ├── processCmd  (pain001 process)
//   ├── validateCmd (pain001 validate)
//   ├── versionsCmd (pain001 versions)
//   └── versionCmd  (pain001 version)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vinaygupta2050/painFileGenerator/internal/aggregate"
	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/conformance"
	"github.com/vinaygupta2050/painFileGenerator/internal/converter"
	"github.com/vinaygupta2050/painFileGenerator/internal/metrics"
	"github.com/vinaygupta2050/painFileGenerator/internal/storage"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "pain001",
	Short: "pain.001 File Generator - Build ISO 20022 payment initiation files from tabular data",
	Long: `pain001 converts payment records held in CSV, XLSX or database tables into
ISO 20022 pain.001 customer credit transfer initiation messages.

Key Features:
  - Seven message versions, pain.001.001.03 to pain.001.001.09
  - Record validation with row-level findings
  - Group header aggregates (NbOfTxs, CtrlSum) computed from the data
  - Optional XSD conformance check
  - Batch processing with profiles, archival and summaries

Example Usage:
  pain001 convert -t pain.001.001.03 -d payments.csv -s pain.001.001.03.xsd
  pain001 process --config ./config.yaml
  pain001 validate -t pain.001.001.09 -d payments.csv
  pain001 versions`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED RUNTIME
// =============================================================================

// appRuntime bundles what a subcommand needs to convert files.
type appRuntime struct {
	cfg     *config.MainConfig
	logger  *logrus.Logger
	logFile *os.File

	// registry collects the conversion metrics of this invocation.
	registry *prometheus.Registry
}

// loadRuntime reads the configuration and sets up logging. The config file
// is only required when --config was given explicitly.
func loadRuntime(cmd *cobra.Command) (*appRuntime, error) {
	required := cmd.Flags().Changed("config")

	cfg, err := config.LoadMainConfig(cfgFile, required)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	logger, logFile, err := newLogger(cfg, verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &appRuntime{
		cfg:      cfg,
		logger:   logger,
		logFile:  logFile,
		registry: prometheus.NewRegistry(),
	}, nil
}

// Close flushes the metrics snapshot and closes the log file.
func (rt *appRuntime) Close() {
	if rt.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(rt.cfg.MetricsFile, rt.registry); err != nil {
			rt.logger.WithError(err).Warn("Failed to write metrics file")
		}
	}
	if rt.logFile != nil {
		rt.logFile.Close()
	}
}

// newLogger builds the logger from the logging settings.
//
// RETURNS:
//   - The logger, writing to stderr and, when log_file is set, to that file.
//   - The opened log file, or nil.
//   - An error for an unknown level or an unwritable log file.
func newLogger(cfg *config.MainConfig, verbose bool, stderr io.Writer) (*logrus.Logger, *os.File, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log_level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.LogFile == "" {
		logger.SetOutput(stderr)
		return logger, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(stderr, file))

	return logger, file, nil
}

// newConverter wires the converter to the configured collaborators.
func (rt *appRuntime) newConverter(ctx context.Context) (*converter.Converter, error) {
	policy, err := aggregate.ParseCountPolicy(rt.cfg.CountPolicy)
	if err != nil {
		return nil, err
	}

	recorder, err := metrics.NewRecorder(rt.registry)
	if err != nil {
		return nil, err
	}

	opts := converter.Options{
		OutputDir:    rt.cfg.OutputDir,
		TemplatesDir: rt.cfg.TemplatesDir,
		CountPolicy:  policy,
		Database:     rt.cfg.Database,
		Checker:      conformance.NewSchemaChecker(rt.cfg.XSDValidator, rt.logger),
		Metrics:      recorder,
		Logger:       rt.logger,
	}

	if rt.cfg.Storage.Enabled() {
		store, err := storage.NewMinIO(ctx, rt.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		opts.Storage = store
		opts.StoragePrefix = rt.cfg.Storage.Prefix
	}

	return converter.New(opts)
}
