// Package locator derives output artifact paths. It performs no I/O.
package locator

import (
	"path/filepath"
	"strings"
)

// OutputPath inserts the version identifier, dots replaced with underscores,
// before the extension of path. The directory is preserved.
//
// Example: ("a/b/file.xml", "pain.001.001.04") -> "a/b/file_pain_001_001_04.xml"
func OutputPath(path, version string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_" + strings.ReplaceAll(version, ".", "_") + ext
}

// DefaultBase returns "<dir>/<stem of input>.xml", the base path used when no
// output path is requested.
func DefaultBase(dir, inputPath string) string {
	stem := filepath.Base(inputPath)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	return filepath.Join(dir, stem+".xml")
}
