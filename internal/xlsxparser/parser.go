// =============================================================================
// pain.001 File Generator - XLSX Record Source and Contract Sheets
// =============================================================================
//
// This module reads two kinds of workbook:
//
//   1. Payment workbooks: the first row holds column names and every following
//      row becomes one flat record, exactly like a CSV input.
//
//   2. Contract workbooks: one validation rule per row.
//
//   | Column A        | Column B | Column C  | Column D    |
//   |-----------------|----------|-----------|-------------|
//   | Column          | Type     | Required  | Scope       |
//   | id              | int      | required  | header      |
//   | payment_amount  | decimal  | required  | transaction |
//   | purpose_code    | text     | optional  | transaction |
//
//   Column positions are configurable via ContractColumns.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
	"github.com/vinaygupta2050/painFileGenerator/internal/validation"
)

// =============================================================================
// PAYMENT WORKBOOKS
// =============================================================================

// Workbook is a payment workbook read into flat records.
type Workbook struct {
	// Sheet is the sheet the records came from.
	Sheet string

	// Headers are the column names from the first row.
	Headers []string

	// Rows are the data rows, header record first.
	Rows []types.FlatRecord
}

// LoadRecords reads a payment workbook.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - sheet: The sheet to read. Empty means the first sheet.
//
// RETURNS:
//   - The workbook contents. A sheet with only a header row has no records.
//   - An error if the file or sheet cannot be read.
func LoadRecords(path, sheet string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	book := &Workbook{Sheet: sheet, Rows: []types.FlatRecord{}}
	if len(rows) == 0 {
		return book, nil
	}

	book.Headers = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		book.Headers[i] = h
	}

	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}

		record := make(types.FlatRecord, len(book.Headers))
		for i, header := range book.Headers {
			record[header] = cell(row, i)
		}
		book.Rows = append(book.Rows, record)
	}

	return book, nil
}

// =============================================================================
// CONTRACT WORKBOOKS
// =============================================================================

// ContractColumns defines which columns of a contract sheet hold which data.
// Column indices are 0-based (A=0, B=1, C=2, etc.)
type ContractColumns struct {
	ColumnColumn   int
	TypeColumn     int
	RequiredColumn int
	ScopeColumn    int

	// DataStartRow is the row number where rules begin (0-based).
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultContractColumns returns the layout shown in the file header.
func DefaultContractColumns() ContractColumns {
	return ContractColumns{
		ColumnColumn:   0, // Column A
		TypeColumn:     1, // Column B
		RequiredColumn: 2, // Column C
		ScopeColumn:    3, // Column D
		DataStartRow:   1, // Row 2
	}
}

// ParseContract reads the rules of a contract workbook using the default layout.
func ParseContract(path string) ([]validation.ColumnRule, error) {
	return ParseContractWithColumns(path, DefaultContractColumns())
}

// ParseContractWithColumns reads the rules of a contract workbook.
//
// PARAMETERS:
//   - path: The path to the XLSX contract file.
//   - columns: The column layout of the first sheet.
//
// RETURNS:
//   - One rule per non-empty row, in sheet order.
//   - An error if the file cannot be read or holds no rules.
func ParseContractWithColumns(path string, columns ContractColumns) ([]validation.ColumnRule, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open contract file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("contract file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var rules []validation.ColumnRule
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		column := cell(row, columns.ColumnColumn)
		if column == "" {
			return nil, fmt.Errorf("error parsing row %d: column name is empty", i+1)
		}

		rules = append(rules, validation.ColumnRule{
			Column:   column,
			Type:     validation.NormalizeType(cell(row, columns.TypeColumn)),
			Required: validation.NormalizeRequired(cell(row, columns.RequiredColumn)),
			Scope:    validation.NormalizeScope(cell(row, columns.ScopeColumn)),
		})
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("contract file %s defines no rules", path)
	}

	return rules, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func cell(row []string, index int) string {
	if index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
