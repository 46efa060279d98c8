// =============================================================================
// pain.001 File Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   pain001 convert    - Convert one input into a pain.001 message
//   pain001 process    - Convert every file in the input directory
//   pain001 validate   - Validate an input file or the configuration
//   pain001 versions   - List the supported message versions
//   pain001 version    - Display the application version
//
// LAYOUT:
//   cmd/       : CLI command definitions (Cobra)
//   internal/  : Conversion engine
//   pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/vinaygupta2050/painFileGenerator/cmd"
)

func main() {
	cmd.Execute()
}
