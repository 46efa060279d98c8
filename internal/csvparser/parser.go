// =============================================================================
// pain.001 File Generator - CSV Record Source
// =============================================================================
//
// This module reads delimited payment files into flat records. The first
// data row is the header record carrying the batch-level attributes; every
// row (including the first) may carry transaction columns.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, pipe, tab)
//   - Multi-line column headers merged into one header per column
//   - Custom data start row
//   - UTF-8 byte order mark stripped from the first header
//   - Blank rows skipped
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed CSV file.
type CSVData struct {
	// Headers contains the merged column headers.
	Headers []string

	// Rows contains the data rows, header record first.
	Rows []types.FlatRecord

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the profile configuration.
//
// RETURNS:
//   - The parsed data. A file with headers but no rows yields no records,
//     which the validator reports as empty input.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(bufio.NewReader(file), settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader parses CSV content from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*CSVData, error) {
	csvReader := csv.NewReader(r)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return &CSVData{Rows: []types.FlatRecord{}}, nil
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	return &CSVData{
		Headers: headers,
		Rows:    extractDataRows(allRows, headers, settings),
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Non-empty values of each column across the header rows are joined
//   with an underscore, so
//
//   Row 1: "debtor", "",       "creditor"
//   Row 2: "name",   "amount", "name"
//
//   gives "debtor_name", "amount", "creditor_name".
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	headerRows := settings.HeaderRows
	if headerRows <= 0 {
		headerRows = 1
	}

	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	first := make([]string, len(allRows[0]))
	copy(first, allRows[0])
	if len(first) > 0 {
		first[0] = string(bytes.TrimPrefix([]byte(first[0]), []byte("\uFEFF")))
	}

	if headerRows == 1 {
		return cleanHeaders(first), nil
	}

	rows := append([][]string{first}, allRows[1:headerRows]...)

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range rows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, "_")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims headers and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// extractDataRows converts rows to flat records.
// DataStartRow is 1-indexed; zero means the row after the headers.
func extractDataRows(allRows [][]string, headers []string, settings config.CSVSettings) []types.FlatRecord {
	headerRows := settings.HeaderRows
	if headerRows <= 0 {
		headerRows = 1
	}

	startIndex := settings.DataStartRow - 1
	if startIndex < headerRows {
		startIndex = headerRows
	}

	records := []types.FlatRecord{}
	if startIndex >= len(allRows) {
		return records
	}

	for _, row := range allRows[startIndex:] {
		if isRowEmpty(row) {
			continue
		}

		record := make(types.FlatRecord, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				record[header] = strings.TrimSpace(row[colIndex])
			} else {
				record[header] = ""
			}
		}
		records = append(records, record)
	}

	return records
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
