// =============================================================================
// pain.001 File Generator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. With --data it loads one input,
// applies the profile transformations and prints the record validation
// findings without rendering anything. Without --data it checks the main
// configuration and every profile.
//
// COMMAND USAGE:
//   pain001 validate --type <version> --data <file> [--profile <code>]
//   pain001 validate
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vinaygupta2050/painFileGenerator/internal/aggregate"
	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/converter"
	"github.com/vinaygupta2050/painFileGenerator/internal/registry"
	"github.com/vinaygupta2050/painFileGenerator/internal/validation"
	"github.com/vinaygupta2050/painFileGenerator/pkg/utils"
)

type validateOptions struct {
	version string
	data    string
	table   string
	sheet   string
	profile string
}

var validateOpts validateOptions

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an input file, or the configuration when no file is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, validateOpts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	f := validateCmd.Flags()
	f.StringVarP(&validateOpts.version, "type", "t", "", "Message version, e.g. pain.001.001.03")
	f.StringVarP(&validateOpts.data, "data", "d", "", "Input file or postgres:// URL")
	f.StringVar(&validateOpts.table, "table", "", "Table to read from database inputs")
	f.StringVar(&validateOpts.sheet, "sheet", "", "Sheet to read from XLSX inputs")
	f.StringVar(&validateOpts.profile, "profile", "", "Profile code from configs_dir")
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	if opts.version != "" {
		if _, err := registry.Lookup(opts.version); err != nil {
			return err
		}
	}

	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()

	if opts.data == "" {
		return validateConfiguration(out, rt.cfg)
	}

	profile, err := findProfile(rt.cfg, opts.profile)
	if err != nil {
		return err
	}

	version := opts.version
	if version == "" && profile != nil {
		version = profile.Version
	}
	if version == "" {
		version = rt.cfg.DefaultVersion
	}

	conv, err := rt.newConverter(cmd.Context())
	if err != nil {
		return err
	}

	report, err := conv.Validate(cmd.Context(), converter.Request{
		Version:  version,
		DataPath: opts.data,
		Table:    opts.table,
		Sheet:    opts.sheet,
		Profile:  profile,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, validation.FormatReport(report))
	return report.Err()
}

// validateConfiguration checks the main configuration and every profile and
// prints one line per problem.
func validateConfiguration(out io.Writer, cfg *config.MainConfig) error {
	var problems []string

	if !registry.IsSupported(cfg.DefaultVersion) {
		problems = append(problems, fmt.Sprintf("main config: unsupported default_version '%s'", cfg.DefaultVersion))
	}
	if _, err := aggregate.ParseCountPolicy(cfg.CountPolicy); err != nil {
		problems = append(problems, "main config: "+err.Error())
	}

	profiles, err := config.LoadProfiles(cfg.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		for _, p := range checkProfile(profiles[code]) {
			problems = append(problems, fmt.Sprintf("profile %s: %s", code, p))
		}
	}

	if len(problems) == 0 {
		fmt.Fprintf(out, "Configuration is valid: %d profile(s) checked.\n", len(profiles))
		return nil
	}

	for _, p := range problems {
		fmt.Fprintf(out, "  ✗ %s\n", p)
	}
	return fmt.Errorf("configuration has %d problem(s)", len(problems))
}

func checkProfile(p *config.Profile) []string {
	var problems []string

	if p.Version != "" && !registry.IsSupported(p.Version) {
		problems = append(problems, fmt.Sprintf("unsupported version '%s'", p.Version))
	}
	if p.CountPolicy != "" {
		if _, err := aggregate.ParseCountPolicy(p.CountPolicy); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(p.FileMatchingPatterns) == 0 {
		problems = append(problems, "no file_matching_patterns")
	}
	for _, file := range []string{p.SchemaFile, p.TemplateFile, p.ContractFile} {
		if file != "" && !utils.FileExists(file) {
			problems = append(problems, fmt.Sprintf("file '%s' does not exist", file))
		}
	}
	for _, rule := range p.TransformationRules {
		for _, action := range rule.Actions {
			if !converter.IsKnownTransformation(action.Type) {
				problems = append(problems, fmt.Sprintf("field %s: unknown transformation type '%s'", rule.Field, action.Type))
			}
		}
	}

	return problems
}
