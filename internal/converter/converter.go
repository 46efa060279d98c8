// =============================================================================
// pain.001 File Generator - Converter Module
// =============================================================================
//
// This module contains the conversion pipeline. It turns one input file into
// one pain.001 artifact for one message version.
//
// CONVERSION PIPELINE:
//   1. Look up the message version (fails fast)
//   2. Check that the template, schema and data inputs exist
//   3. Load the records (CSV, XLSX, SQLite or PostgreSQL)
//   4. Apply static fields and transformation rules
//   5. Validate the records against the column contract
//   6. Build the document model
//   7. Render the model and check that the text is well-formed XML
//   8. Write the artifact next to the requested output path
//   9. Check the artifact against the schema (non-fatal)
//  10. Publish the artifact to object storage (non-fatal)
//
// CONCURRENCY:
//   A Converter holds no per-run state and can serve concurrent Run calls.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vinaygupta2050/painFileGenerator/internal/aggregate"
	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/conformance"
	"github.com/vinaygupta2050/painFileGenerator/internal/csvparser"
	"github.com/vinaygupta2050/painFileGenerator/internal/dbloader"
	"github.com/vinaygupta2050/painFileGenerator/internal/locator"
	"github.com/vinaygupta2050/painFileGenerator/internal/metrics"
	"github.com/vinaygupta2050/painFileGenerator/internal/model"
	"github.com/vinaygupta2050/painFileGenerator/internal/registry"
	"github.com/vinaygupta2050/painFileGenerator/internal/storage"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
	"github.com/vinaygupta2050/painFileGenerator/internal/validation"
	"github.com/vinaygupta2050/painFileGenerator/internal/xlsxparser"
	"github.com/vinaygupta2050/painFileGenerator/internal/xmlwriter"
	"github.com/vinaygupta2050/painFileGenerator/pkg/utils"
)

// =============================================================================
// REQUEST AND RESULT STRUCTURES
// =============================================================================

// Request describes one conversion.
type Request struct {
	// Version is the message version identifier, e.g. "pain.001.001.03".
	Version string

	// DataPath is the input: a .csv, .xlsx, .db/.sqlite/.sqlite3 file or a
	// postgres:// URL.
	DataPath string

	// TemplatePath renders with this template instead of the version's own.
	TemplatePath string

	// SchemaPath is the XSD for the conformance check. Empty skips the check.
	SchemaPath string

	// OutputPath is the base output path. Empty means <output_dir>/<data stem>.xml.
	// The version identifier is always inserted before the extension.
	OutputPath string

	// Table is read from tabular stores. Empty uses the configured table.
	Table string

	// Sheet is read from XLSX inputs. Empty means the first sheet.
	Sheet string

	// Profile supplies parsing settings, transformations and the contract.
	// Nil uses the defaults.
	Profile *config.Profile
}

// Result represents the outcome of one conversion.
type Result struct {
	// RunID identifies the run in logs, summaries and storage metadata.
	RunID string

	Version   string
	InputPath string

	// OutputFile is the written artifact; empty when nothing was written.
	OutputFile string

	// Success is true when the artifact was written.
	Success bool

	// Conformant is true when the conformance check ran and passed.
	Conformant bool

	// Error is the fatal error that stopped the run.
	Error error

	// ConformanceError is the non-fatal conformance failure, if any.
	ConformanceError error

	// ObjectKey is the storage key of the published artifact.
	ObjectKey string

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsLoaded is the number of records read from the input.
	RowsLoaded int

	// Transactions is the number of CdtTrfTxInf elements rendered.
	Transactions int

	// CtrlSum is the rendered control sum.
	CtrlSum string

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options configures a Converter.
type Options struct {
	// OutputDir is used when a request has no OutputPath.
	OutputDir string

	// TemplatesDir holds template overrides. Empty means built-ins only.
	TemplatesDir string

	// CountPolicy applies when a profile does not set one.
	CountPolicy aggregate.CountPolicy

	// Database configures tabular-store inputs.
	Database config.DatabaseConfig

	// Checker runs the conformance check. Nil skips it.
	Checker conformance.Checker

	// Storage receives published artifacts. Nil disables publishing.
	Storage       storage.Storage
	StoragePrefix string

	// Metrics records outcomes. Nil records nothing.
	Metrics *metrics.Recorder

	// Logger receives structured logs. Nil discards them.
	Logger logrus.FieldLogger
}

// Converter runs conversions.
type Converter struct {
	opts      Options
	templates *xmlwriter.TemplateSet
}

// New creates a Converter and loads the template set.
func New(opts Options) (*Converter, error) {
	if opts.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		opts.Logger = l
	}
	if opts.CountPolicy == "" {
		opts.CountPolicy = aggregate.PolicyStrict
	}

	templates, err := xmlwriter.NewTemplateSet(opts.TemplatesDir)
	if err != nil {
		return nil, err
	}

	return &Converter{opts: opts, templates: templates}, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for one request.
//
// RETURNS:
//   - A Result. Result.Error holds the first fatal error; a conformance
//     failure is reported in Result.ConformanceError and leaves the artifact
//     in place.
func (c *Converter) Run(ctx context.Context, req Request) (result Result) {
	start := time.Now()
	result = Result{
		RunID:     uuid.NewString(),
		Version:   req.Version,
		InputPath: req.DataPath,
	}
	log := c.opts.Logger.WithFields(logrus.Fields{
		"run_id":  result.RunID,
		"version": req.Version,
		"file":    req.DataPath,
	})

	defer func() {
		result.Stats.ProcessingTime = time.Since(start)
		c.record(&result)
	}()

	fail := func(err error) Result {
		result.Error = err
		log.WithError(err).WithField("kind", types.KindOf(err).String()).Error("Conversion failed")
		return result
	}

	// =========================================================================
	// STEP 1: VERSION LOOKUP
	// =========================================================================

	spec, err := registry.Lookup(req.Version)
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 2: INPUT EXISTENCE CHECKS
	// =========================================================================

	if err := checkInputs(req); err != nil {
		return fail(err)
	}

	log.Info("Processing file")

	// =========================================================================
	// STEPS 3-5: LOAD, TRANSFORM, VALIDATE
	// =========================================================================

	records, report, err := c.prepare(ctx, req, spec, log)
	if err != nil {
		return fail(err)
	}
	result.Stats.RowsLoaded = len(records)
	if err := report.Err(); err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 6: BUILD DOCUMENT MODEL
	// =========================================================================

	policy := c.opts.CountPolicy
	if req.Profile != nil && req.Profile.CountPolicy != "" {
		if policy, err = aggregate.ParseCountPolicy(req.Profile.CountPolicy); err != nil {
			return fail(err)
		}
	}

	doc, err := model.NewBuilder(policy, log).Build(records, spec)
	if err != nil {
		return fail(err)
	}
	result.Stats.Transactions = len(doc.Transactions)
	result.Stats.CtrlSum = doc.CtrlSum

	// =========================================================================
	// STEP 7: RENDER
	// =========================================================================

	renderer, templateID, err := c.rendererFor(req, spec)
	if err != nil {
		return fail(err)
	}

	data, err := xmlwriter.NewDispatcher(renderer).Render(doc, templateID)
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 8: WRITE ARTIFACT
	// =========================================================================

	base := req.OutputPath
	if base == "" {
		base = locator.DefaultBase(c.opts.OutputDir, req.DataPath)
	}
	outputPath := locator.OutputPath(base, spec.ID)

	if err := xmlwriter.WriteArtifact(outputPath, data); err != nil {
		return fail(err)
	}
	result.OutputFile = outputPath
	result.Success = true
	log.WithFields(logrus.Fields{
		"output":       outputPath,
		"transactions": doc.NbOfTxs,
		"ctrl_sum":     doc.CtrlSum,
	}).Info("Wrote artifact")

	// =========================================================================
	// STEP 9: CONFORMANCE
	// =========================================================================

	if req.SchemaPath != "" && c.opts.Checker != nil {
		report, err := c.opts.Checker.Check(ctx, outputPath, req.SchemaPath, spec.Namespace)
		switch {
		case err != nil:
			result.ConformanceError = types.WrapError(types.KindConformance, err, "conformance check could not run")
		case !report.Conformant:
			result.ConformanceError = report.Err()
		default:
			result.Conformant = true
		}
		if result.ConformanceError != nil {
			log.WithError(result.ConformanceError).Warn("Artifact is not conformant")
		}
	}

	// =========================================================================
	// STEP 10: PUBLISH
	// =========================================================================

	if c.opts.Storage != nil {
		info, err := storage.Publish(ctx, c.opts.Storage, c.opts.StoragePrefix, outputPath, map[string]string{
			"run-id":  result.RunID,
			"version": spec.ID,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to publish artifact")
		} else {
			result.ObjectKey = info.Key
			log.WithField("key", info.Key).Info("Published artifact")
		}
	}

	return result
}

// Validate runs only the loading, transformation and validation steps.
func (c *Converter) Validate(ctx context.Context, req Request) (*validation.Report, error) {
	spec, err := registry.Lookup(req.Version)
	if err != nil {
		return nil, err
	}
	if err := checkInputs(Request{DataPath: req.DataPath}); err != nil {
		return nil, err
	}

	log := c.opts.Logger.WithFields(logrus.Fields{"version": req.Version, "file": req.DataPath})
	_, report, err := c.prepare(ctx, req, spec, log)
	return report, err
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// checkInputs reports the first missing input as a MissingInput error.
func checkInputs(req Request) error {
	if req.DataPath == "" {
		return types.NewError(types.KindMissingInput, "no data file given")
	}

	inputs := []struct{ kind, path string }{
		{"template", req.TemplatePath},
		{"schema", req.SchemaPath},
		{"data", req.DataPath},
	}
	for _, in := range inputs {
		if in.path == "" || isURL(in.path) {
			continue
		}
		if !utils.FileExists(in.path) {
			return types.NewError(types.KindMissingInput, "%s '%s' does not exist", in.kind, in.path)
		}
	}
	return nil
}

func isURL(path string) bool {
	return strings.Contains(path, "://")
}

// prepare loads, transforms and validates the records of a request.
func (c *Converter) prepare(ctx context.Context, req Request, spec *registry.Spec, log logrus.FieldLogger) ([]types.FlatRecord, *validation.Report, error) {
	profile := req.Profile
	if profile == nil {
		profile = config.DefaultProfile(spec.ID)
	}

	records, err := c.load(ctx, req, profile)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("rows", len(records)).Debug("Loaded records")

	records, err = NewTransformer(profile.TransformationRules, profile.StaticFields).Apply(records)
	if err != nil {
		return nil, nil, err
	}

	rules := profile.Contract
	if profile.ContractFile != "" {
		if rules, err = xlsxparser.ParseContract(profile.ContractFile); err != nil {
			return nil, nil, types.WrapError(types.KindMissingInput, err, "contract '%s' could not be read", profile.ContractFile)
		}
	}

	report := validation.Validate(records, spec.ContractWith(rules))
	if !report.Valid {
		log.WithField("rows_with_findings", len(report.Rows)).Warn("Validation failed")
	}
	return records, report, nil
}

// load reads the records of the request's input.
func (c *Converter) load(ctx context.Context, req Request, profile *config.Profile) ([]types.FlatRecord, error) {
	path := req.DataPath

	if dbloader.IsSource(path) {
		table := req.Table
		if table == "" {
			table = profile.Table
		}
		if table == "" {
			table = c.opts.Database.Table
		}

		db, err := dbloader.Open(ctx, path, c.opts.Database.Driver)
		if err != nil {
			return nil, types.WrapError(types.KindDataValidation, err, "failed to open %s", path)
		}
		defer db.Close()

		records, err := dbloader.Load(ctx, db, table)
		if err != nil {
			return nil, types.WrapError(types.KindDataValidation, err, "failed to load records from %s", path)
		}
		return records, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		book, err := xlsxparser.LoadRecords(path, req.Sheet)
		if err != nil {
			return nil, types.WrapError(types.KindDataValidation, err, "failed to load records from %s", path)
		}
		return book.Rows, nil

	default:
		data, err := csvparser.Parse(path, profile.CSVSettings)
		if err != nil {
			return nil, types.WrapError(types.KindDataValidation, err, "failed to load records from %s", path)
		}
		return data.Rows, nil
	}
}

// rendererFor returns the shared template set, or a set extended with the
// request's explicit template.
func (c *Converter) rendererFor(req Request, spec *registry.Spec) (xmlwriter.Renderer, string, error) {
	if req.TemplatePath == "" {
		return c.templates, spec.TemplateID, nil
	}

	set, err := xmlwriter.NewTemplateSet(c.opts.TemplatesDir)
	if err != nil {
		return nil, "", err
	}
	id := filepath.Base(req.TemplatePath)
	if err := set.AddFile(id, req.TemplatePath); err != nil {
		return nil, "", err
	}
	return set, id, nil
}

func (c *Converter) record(result *Result) {
	outcome := metrics.OutcomeSuccess
	switch {
	case result.Error != nil:
		outcome = metrics.OutcomeFailed
		c.opts.Metrics.Error(types.KindOf(result.Error).String())
	case result.ConformanceError != nil:
		outcome = metrics.OutcomeNonConformant
		c.opts.Metrics.Error(types.KindConformance.String())
	}

	version := result.Version
	if !registry.IsSupported(version) {
		version = ""
	}
	c.opts.Metrics.Conversion(version, outcome, result.Stats.Transactions, result.Stats.ProcessingTime)
}

// IsFatal reports whether err should stop a run. Conformance failures are not fatal.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, types.ErrConformance)
}
