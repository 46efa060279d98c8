// =============================================================================
// pain.001 File Generator - Process Command
// =============================================================================
//
// This file defines the 'process' command, which converts every input file in
// the input directory. It orchestrates discovery, profile matching, concurrent
// conversion, archival and reporting.
//
// COMMAND USAGE:
//   pain001 process [flags]
//
// FLAGS:
//   --dry-run            : Load and validate only; write no artifacts
//   --file               : Process a single file instead of the input directory
//   --profile            : Process only files matching this profile code
//   --archive-by-date    : Archive into YYYY/MM/DD subdirectories
//   --archive-retention  : Remove archived files older than this duration
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and the profiles
//   2. Discover input files (.csv, .xlsx, .db, .sqlite, .sqlite3)
//   3. Match each file to a profile (or the default profile)
//   4. Convert the files concurrently, at most max_concurrency at a time
//   5. Archive inputs and artifacts
//   6. Write the error log, the processing summary and the metrics file
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/converter"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
	"github.com/vinaygupta2050/painFileGenerator/internal/validation"
	"github.com/vinaygupta2050/painFileGenerator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

type processOptions struct {
	dryRun        bool
	file          string
	profile       string
	archiveByDate bool
	retention     time.Duration
}

var processOpts processOptions

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every input file in the input directory",
	Long: `The process command scans the input directory for payment files, matches
each one to a profile by file name and converts it to the profile's message
version. Files are converted concurrently, at most max_concurrency at a time.

On success:
  - The generated XML is placed in the output directory and copied to the output archive
  - The input file is moved to the input archive

On error:
  - An entry is added to the error log in the output directory
  - The input file remains in the input directory
  - Other files continue unless continue_on_error is false

A non-conformant artifact is kept and archived, but its input stays in place.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, processOpts)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	f := processCmd.Flags()
	f.BoolVar(&processOpts.dryRun, "dry-run", false, "Load and validate only; write no artifacts")
	f.StringVar(&processOpts.file, "file", "", "Process a single file instead of the input directory")
	f.StringVar(&processOpts.profile, "profile", "", "Process only files matching this profile code")
	f.BoolVar(&processOpts.archiveByDate, "archive-by-date", false, "Archive into YYYY/MM/DD subdirectories")
	f.DurationVar(&processOpts.retention, "archive-retention", 0, "Remove archived files older than this duration (e.g. 720h)")
}

// =============================================================================
// PROCESSING TYPES
// =============================================================================

// runner is the part of the converter the batch needs.
type runner interface {
	Run(ctx context.Context, req converter.Request) converter.Result
	Validate(ctx context.Context, req converter.Request) (*validation.Report, error)
}

// job is one planned conversion.
type job struct {
	path    string
	profile *config.Profile
	request converter.Request
}

// fileOutcome is the result of one job.
type fileOutcome struct {
	job     job
	result  converter.Result
	skipped bool
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command, opts processOptions) error {
	startTime := time.Now()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	fmt.Fprintln(out, "=== pain.001 File Generator ===")

	profiles, err := config.LoadProfiles(cfg.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	fmt.Fprintf(out, "Loaded %d profile(s)\n", len(profiles))

	fm := utils.NewFileManager(cfg.InputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.UseTimestampSubdirs = opts.archiveByDate
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	var files []string
	if opts.file != "" {
		files = []string{opts.file}
	} else if files, err = fm.DiscoverInputFiles(); err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}

	jobs := planJobs(files, profiles, cfg, opts.profile)
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No input files found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(jobs))

	conv, err := rt.newConverter(ctx)
	if err != nil {
		return err
	}

	outcomes := processFiles(ctx, conv, jobs, cfg.MaxConcurrency, cfg.ShouldContinueOnError(), opts.dryRun, rt.logger)

	var archiver *utils.FileManager
	if !opts.dryRun {
		archiver = fm
	}
	summary, entries := summarize(outcomes, archiver, rt.logger)
	summary.StartTime = startTime
	summary.EndTime = time.Now()

	for _, o := range outcomes {
		name := filepath.Base(o.job.path)
		switch {
		case o.skipped:
			fmt.Fprintf(out, "  - %s: skipped\n", name)
		case o.result.Error != nil:
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, o.result.Error)
		case o.result.ConformanceError != nil:
			fmt.Fprintf(out, "  ! %s -> %s (not conformant)\n", name, o.result.OutputFile)
		case opts.dryRun:
			fmt.Fprintf(out, "  ✓ %s: valid\n", name)
		default:
			fmt.Fprintf(out, "  ✓ %s -> %s\n", name, o.result.OutputFile)
		}
	}

	if path, err := utils.WriteErrorLog(entries, cfg.OutputDir); err != nil {
		rt.logger.WithError(err).Warn("Failed to write error log")
	} else if path != "" {
		fmt.Fprintf(out, "Errors have been logged to %s\n", path)
	}

	if !opts.dryRun {
		if path, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
			rt.logger.WithError(err).Warn("Failed to write summary")
		} else {
			rt.logger.WithField("path", path).Debug("Wrote processing summary")
		}
	}

	if opts.retention > 0 {
		for _, dir := range []string{cfg.InputArchiveDir, cfg.OutputArchiveDir} {
			removed, err := utils.CleanOldArchives(dir, opts.retention)
			if err != nil {
				rt.logger.WithError(err).WithField("dir", dir).Warn("Failed to clean archive")
				continue
			}
			rt.logger.WithFields(logrus.Fields{"dir": dir, "removed": removed}).Info("Cleaned archive")
		}
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Non-conformant:  %d\n", summary.NonConformantFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// PLANNING
// =============================================================================

// planJobs matches each file to a profile and builds its request.
//
// PARAMETERS:
//   - files: The input files.
//   - profiles: The loaded profiles.
//   - cfg: The main configuration (default version, schemas directory).
//   - only: When set, files whose profile code differs are left out.
func planJobs(files []string, profiles map[string]*config.Profile, cfg *config.MainConfig, only string) []job {
	var jobs []job

	for _, file := range files {
		profile, ok := config.MatchProfile(filepath.Base(file), profiles)
		if !ok {
			profile = config.DefaultProfile(cfg.DefaultVersion)
		}
		if only != "" && profile.ProfileCode != only {
			continue
		}

		version := profile.Version
		if version == "" {
			version = cfg.DefaultVersion
		}

		schema := profile.SchemaFile
		if schema == "" {
			candidate := filepath.Join(cfg.SchemasDir, version+".xsd")
			if utils.FileExists(candidate) {
				schema = candidate
			}
		}

		jobs = append(jobs, job{
			path:    file,
			profile: profile,
			request: converter.Request{
				Version:      version,
				DataPath:     file,
				TemplatePath: profile.TemplateFile,
				SchemaPath:   schema,
				Table:        profile.Table,
				Profile:      profile,
			},
		})
	}

	return jobs
}

// =============================================================================
// CONCURRENT PROCESSING
// =============================================================================

// processFiles runs the jobs with at most concurrency in flight. When
// continueOnError is false the first fatal failure cancels the jobs that have
// not started yet; they come back marked skipped. Outcomes keep job order.
func processFiles(ctx context.Context, conv runner, jobs []job, concurrency int, continueOnError, dryRun bool, logger logrus.FieldLogger) []fileOutcome {
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]fileOutcome, len(jobs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				outcomes[i] = fileOutcome{job: j, skipped: true}
				return
			}

			var result converter.Result
			if dryRun {
				result = validateOnly(ctx, conv, j.request)
			} else {
				result = conv.Run(ctx, j.request)
			}
			outcomes[i] = fileOutcome{job: j, result: result}

			if result.Error != nil && !continueOnError {
				logger.WithField("file", j.path).Warn("Stopping after failure")
				cancel()
			}
		}(i, j)
	}

	wg.Wait()
	return outcomes
}

// validateOnly runs the validation steps and reports them as a Result.
func validateOnly(ctx context.Context, conv runner, req converter.Request) converter.Result {
	result := converter.Result{Version: req.Version, InputPath: req.DataPath}

	report, err := conv.Validate(ctx, req)
	if err == nil {
		err = report.Err()
		result.Stats.RowsLoaded = report.RowsChecked
	}
	result.Error = err
	result.Success = err == nil

	return result
}

// =============================================================================
// REPORTING AND ARCHIVAL
// =============================================================================

// summarize builds the processing summary and error log entries, archiving
// files along the way. A nil archiver archives nothing.
func summarize(outcomes []fileOutcome, archiver *utils.FileManager, logger logrus.FieldLogger) (utils.ProcessingSummary, []utils.ErrorLogEntry) {
	var summary utils.ProcessingSummary
	var entries []utils.ErrorLogEntry

	for _, o := range outcomes {
		if o.skipped {
			continue
		}
		summary.TotalFiles++
		r := o.result

		if r.Error != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				RunID:        r.RunID,
				InputFile:    o.job.path,
				Version:      r.Version,
				ErrorKind:    types.KindOf(r.Error).String(),
				ErrorMessage: r.Error.Error(),
			})
			entries = append(entries, errorEntry(o, r.Error))
			continue
		}

		if r.ConformanceError != nil {
			summary.NonConformantFiles++
			entries = append(entries, errorEntry(o, r.ConformanceError))
		} else {
			summary.SuccessfulFiles++
		}
		summary.TotalRows += r.Stats.RowsLoaded
		summary.TotalTransactions += r.Stats.Transactions

		info := utils.ProcessedFileInfo{
			RunID:        r.RunID,
			InputFile:    o.job.path,
			OutputFile:   r.OutputFile,
			Version:      r.Version,
			Rows:         r.Stats.RowsLoaded,
			Transactions: r.Stats.Transactions,
			CtrlSum:      r.Stats.CtrlSum,
			Conformant:   r.Conformant,
			ProcessTime:  r.Stats.ProcessingTime,
		}

		if archiver != nil {
			info.ArchivePath = archive(archiver, o, logger)
		}
		summary.ProcessedFiles = append(summary.ProcessedFiles, info)
	}

	return summary, entries
}

// archive copies the artifact to the output archive and, when the artifact
// passed, moves the input to the input archive. It returns the artifact's
// archive path.
func archive(fm *utils.FileManager, o fileOutcome, logger logrus.FieldLogger) string {
	log := logger.WithField("file", o.job.path)

	var archived string
	if o.result.OutputFile != "" {
		path, err := fm.ArchiveOutputFile(o.result.OutputFile)
		if err != nil {
			log.WithError(err).Warn("Failed to archive artifact")
		}
		archived = path
	}

	if o.result.ConformanceError == nil && utils.FileExists(o.job.path) {
		if _, err := fm.ArchiveInputFile(o.job.path); err != nil {
			log.WithError(err).Warn("Failed to archive input file")
		}
	}

	return archived
}

// errorEntry turns a failure into an error log entry.
func errorEntry(o fileOutcome, err error) utils.ErrorLogEntry {
	entry := utils.ErrorLogEntry{
		Timestamp: time.Now(),
		RunID:     o.result.RunID,
		FileName:  filepath.Base(o.job.path),
		Version:   o.result.Version,
		ErrorKind: types.KindOf(err).String(),
		Message:   err.Error(),
	}

	var ce *types.ConversionError
	if errors.As(err, &ce) {
		entry.Message = ce.Message
		if ce.Err != nil {
			entry.Message += ": " + ce.Err.Error()
		}
		entry.RowNumber = ce.Row
		entry.Value = ce.Value
		entry.Details = ce.Details
	}

	return entry
}
