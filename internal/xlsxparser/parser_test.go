package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vinaygupta2050/painFileGenerator/internal/validation"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &r))
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadRecords(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"id", "payment_amount", "", "creditor_name"},
		{"MSG-1", "500.50", "x", " ACME "},
		{},
		{"MSG-1", "250.25"},
	})

	book, err := LoadRecords(path, "")
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", book.Sheet)
	assert.Equal(t, []string{"id", "payment_amount", "Column_3", "creditor_name"}, book.Headers)
	require.Len(t, book.Rows, 2)
	assert.Equal(t, "ACME", book.Rows[0]["creditor_name"])
	assert.Equal(t, "x", book.Rows[0]["Column_3"])
	assert.Equal(t, "250.25", book.Rows[1]["payment_amount"])
	assert.Equal(t, "", book.Rows[1]["creditor_name"])
}

func TestLoadRecordsHeaderOnly(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"id", "payment_amount"}})

	book, err := LoadRecords(path, "")
	require.NoError(t, err)
	assert.Empty(t, book.Rows)
}

func TestLoadRecordsUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"id"}})

	_, err := LoadRecords(path, "Payments")
	assert.Error(t, err)
}

func TestLoadRecordsMissingFile(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "absent.xlsx"), "")
	assert.Error(t, err)
}

func TestParseContract(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Column", "Type", "Required", "Scope"},
		{"id", "Integer", "Y", "batch"},
		{"payment_amount", "money", "mandatory", "tx"},
		{},
		{"purpose_code", "", "optional", ""},
	})

	rules, err := ParseContract(path)
	require.NoError(t, err)

	assert.Equal(t, []validation.ColumnRule{
		{Column: "id", Type: validation.TypeInt, Required: true, Scope: validation.ScopeHeader},
		{Column: "payment_amount", Type: validation.TypeDecimal, Required: true, Scope: validation.ScopeTransaction},
		{Column: "purpose_code", Type: validation.TypeText, Required: false, Scope: validation.ScopeAll},
	}, rules)
}

func TestParseContractCustomColumns(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Notes", "Column", "Type", "Required", "Scope"},
		{"", "date", "date", "required", "header"},
	})

	columns := ContractColumns{ColumnColumn: 1, TypeColumn: 2, RequiredColumn: 3, ScopeColumn: 4, DataStartRow: 1}
	rules, err := ParseContractWithColumns(path, columns)
	require.NoError(t, err)

	require.Len(t, rules, 1)
	assert.Equal(t, validation.TypeDate, rules[0].Type)
}

func TestParseContractErrors(t *testing.T) {
	empty := writeWorkbook(t, [][]any{{"Column", "Type", "Required", "Scope"}})
	_, err := ParseContract(empty)
	assert.Error(t, err)

	unnamed := writeWorkbook(t, [][]any{
		{"Column", "Type", "Required", "Scope"},
		{"", "int", "required", "header"},
	})
	_, err = ParseContract(unnamed)
	assert.Error(t, err)
}
