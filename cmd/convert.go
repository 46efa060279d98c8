// =============================================================================
// pain.001 File Generator - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which converts a single input into
// one pain.001 message.
//
// COMMAND USAGE:
//   pain001 convert --type <version> --data <file> [--schema <xsd>]
//                   [--template <file>] [--output <file>]
//
// EXIT STATUS:
//   0 when the artifact was written, even if it is not conformant
//   1 on any fatal error
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/converter"
	"github.com/vinaygupta2050/painFileGenerator/internal/registry"
)

type convertOptions struct {
	version  string
	data     string
	schema   string
	template string
	output   string
	table    string
	sheet    string
	profile  string
}

var convertOpts convertOptions

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one input file into a pain.001 message",
	Long: `The convert command reads payment records from a CSV, XLSX or SQLite file
(or a postgres:// URL), validates them, computes the group header aggregates
and renders the message for the requested version.

The output file name always carries the version identifier, e.g.
payments_pain.001.001.03.xml. When --schema is given the written artifact is
checked against it; a failed check is reported but the artifact is kept.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, convertOpts)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.StringVarP(&convertOpts.version, "type", "t", "", "Message version, e.g. pain.001.001.03")
	f.StringVarP(&convertOpts.data, "data", "d", "", "Input file or postgres:// URL")
	f.StringVarP(&convertOpts.schema, "schema", "s", "", "XSD for the conformance check")
	f.StringVar(&convertOpts.template, "template", "", "Template to render with instead of the built-in one")
	f.StringVarP(&convertOpts.output, "output", "o", "", "Base output path (default <output_dir>/<input name>.xml)")
	f.StringVar(&convertOpts.table, "table", "", "Table to read from database inputs")
	f.StringVar(&convertOpts.sheet, "sheet", "", "Sheet to read from XLSX inputs")
	f.StringVar(&convertOpts.profile, "profile", "", "Profile code from configs_dir for parsing and transformations")

	convertCmd.MarkFlagRequired("type")
	convertCmd.MarkFlagRequired("data")
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	// The version is checked before any directory or file is touched.
	if _, err := registry.Lookup(opts.version); err != nil {
		return err
	}

	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	profile, err := findProfile(rt.cfg, opts.profile)
	if err != nil {
		return err
	}

	conv, err := rt.newConverter(cmd.Context())
	if err != nil {
		return err
	}

	result := conv.Run(cmd.Context(), converter.Request{
		Version:      opts.version,
		DataPath:     opts.data,
		TemplatePath: opts.template,
		SchemaPath:   opts.schema,
		OutputPath:   opts.output,
		Table:        opts.table,
		Sheet:        opts.sheet,
		Profile:      profile,
	})

	out := cmd.OutOrStdout()
	if result.Error != nil {
		return result.Error
	}

	fmt.Fprintf(out, "Wrote %s (%d transaction(s), control sum %s)\n",
		result.OutputFile, result.Stats.Transactions, result.Stats.CtrlSum)
	if result.ConformanceError != nil {
		fmt.Fprintf(out, "Warning: %v\n", result.ConformanceError)
	}
	if result.ObjectKey != "" {
		fmt.Fprintf(out, "Published as %s\n", result.ObjectKey)
	}

	return nil
}

// findProfile loads the profile with the given code. An empty code means none.
func findProfile(cfg *config.MainConfig, code string) (*config.Profile, error) {
	if code == "" {
		return nil, nil
	}

	profiles, err := config.LoadProfiles(cfg.ConfigsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	profile, ok := profiles[code]
	if !ok {
		return nil, fmt.Errorf("no profile '%s' in %s", code, cfg.ConfigsDir)
	}
	return profile, nil
}
