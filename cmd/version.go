// =============================================================================
// pain.001 File Generator - Version Commands
// =============================================================================
//
// This file defines two informational commands:
//   pain001 version   - application version and build information
//   pain001 versions  - the supported pain.001 message versions
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vinaygupta2050/painFileGenerator/internal/registry"
)

// Version and BuildDate are set at build time using ldflags:
//
//	go build -ldflags "-X 'github.com/vinaygupta2050/painFileGenerator/cmd.Version=1.2.0'"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "pain.001 File Generator")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the supported message versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersions(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(versionsCmd)
}

// printVersions writes one line per supported version.
func printVersions(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAMESPACE\tHEADER ROW")

	for _, id := range registry.Versions() {
		spec, err := registry.Lookup(id)
		if err != nil {
			return err
		}
		row0 := "header only"
		if spec.IncludeHeaderRow {
			row0 = "also a transaction"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", spec.ID, spec.Namespace, row0)
	}

	return w.Flush()
}
