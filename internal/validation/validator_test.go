package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

var testContract = Contract{
	Rules: []ColumnRule{
		{Column: "id", Type: TypeInt, Required: true, Scope: ScopeHeader},
		{Column: "date", Type: TypeDate, Required: true, Scope: ScopeHeader},
		{Column: "batch_booking", Type: TypeBoolean, Required: false, Scope: ScopeHeader},
		{Column: "payment_amount", Type: TypeDecimal, Required: true, Scope: ScopeTransaction},
		{Column: "creditor_name", Type: TypeText, Required: true, Scope: ScopeTransaction},
	},
}

func TestValidateEmptyInput(t *testing.T) {
	report := Validate(nil, testContract)

	assert.False(t, report.Valid)
	assert.True(t, report.Empty)
	assert.Empty(t, report.Rows)

	err := report.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDataValidation))
	assert.True(t, errors.Is(err, types.ErrEmptyInput))
}

func TestValidateValidBatch(t *testing.T) {
	records := []types.FlatRecord{
		{"id": "1", "date": "2024-02-27", "batch_booking": "TRUE"},
		{"payment_amount": "500.50", "creditor_name": "ACME"},
		{"payment_amount": "250.25", "creditor_name": "Globex"},
	}

	report := Validate(records, testContract)

	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.RowsChecked)
	assert.NoError(t, report.Err())
}

func TestValidateCollectsAllRows(t *testing.T) {
	records := []types.FlatRecord{
		{"id": "abc", "date": "2024-02-27"},
		{"payment_amount": "", "creditor_name": "ACME"},
		{"payment_amount": "N/A"},
	}

	report := Validate(records, testContract)
	require.False(t, report.Valid)
	require.Len(t, report.Rows, 3)

	assert.Equal(t, 1, report.Rows[0].Row)
	assert.Empty(t, report.Rows[0].Missing)
	assert.Equal(t, []string{"id"}, report.Rows[0].InvalidColumns())

	assert.Equal(t, 2, report.Rows[1].Row)
	assert.Equal(t, []string{"payment_amount"}, report.Rows[1].Missing)

	assert.Equal(t, 3, report.Rows[2].Row)
	assert.Equal(t, []string{"creditor_name"}, report.Rows[2].Missing)
	assert.Equal(t, []string{"payment_amount"}, report.Rows[2].InvalidColumns())
	assert.Equal(t, "N/A", report.Rows[2].Invalid[0].Value)

	err := report.Err()
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrEmptyInput))
	assert.Contains(t, err.Error(), "row 3: missing [creditor_name]; invalid [payment_amount]")
}

func TestIncludeHeaderRowAppliesTransactionRules(t *testing.T) {
	records := []types.FlatRecord{
		{"id": "1", "date": "2024-02-27"},
	}

	excluded := Validate(records, testContract)
	assert.True(t, excluded.Valid)

	contract := testContract
	contract.IncludeHeaderRow = true
	included := Validate(records, contract)
	require.False(t, included.Valid)
	assert.ElementsMatch(t, []string{"payment_amount", "creditor_name"}, included.Rows[0].Missing)
}

func TestOptionalColumnsTypeCheckedWhenPresent(t *testing.T) {
	records := []types.FlatRecord{{"id": "1", "date": "2024-02-27", "batch_booking": "yes"}}

	report := Validate(records, testContract)

	require.False(t, report.Valid)
	assert.Empty(t, report.Rows[0].Missing)
	assert.Equal(t, []string{"batch_booking"}, report.Rows[0].InvalidColumns())
}

func TestParseDate(t *testing.T) {
	valid := []string{
		"2024-02-27",
		"2024-02-27T10:15:30",
		"2024-02-27T10:15:30Z",
	}
	for _, v := range valid {
		_, ok := ParseDate(v)
		assert.True(t, ok, v)
	}

	invalid := []string{
		"27/02/2024",
		"2024-13-01",
		"2024-02-27 10:15",
		"tomorrow",
		"2024-01-01T10:00:00+05:00",
		"2024-01-01T10:00:00-07:00",
		"2024-02-27T10:15:30+00:00",
		"2024-01-01+05:00",
	}
	for _, v := range invalid {
		_, ok := ParseDate(v)
		assert.False(t, ok, v)
	}
}

func TestParseDateZuluIsUTC(t *testing.T) {
	got, ok := ParseDate("2024-02-27T10:15:30Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 27, 10, 15, 30, 0, time.UTC), got)
}

func TestTypeCheckers(t *testing.T) {
	tests := []struct {
		value string
		typ   ColumnType
		ok    bool
	}{
		{"42", TypeInt, true},
		{"-3", TypeInt, true},
		{"4.2", TypeInt, false},
		{"abc", TypeInt, false},
		{"1234.56", TypeDecimal, true},
		{"1e3", TypeDecimal, true},
		{"12,50", TypeDecimal, false},
		{"False", TypeBoolean, true},
		{"1", TypeBoolean, false},
		{"anything", TypeText, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, checkType(tt.value, tt.typ) == "", "%s as %s", tt.value, tt.typ)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, TypeInt, NormalizeType("Integer"))
	assert.Equal(t, TypeDecimal, NormalizeType("money"))
	assert.Equal(t, TypeDate, NormalizeType("DateTime"))
	assert.Equal(t, TypeText, NormalizeType("string"))

	assert.Equal(t, ScopeHeader, NormalizeScope("Header"))
	assert.Equal(t, ScopeTransaction, NormalizeScope("tx"))
	assert.Equal(t, ScopeAll, NormalizeScope(""))

	assert.True(t, NormalizeRequired("Required"))
	assert.False(t, NormalizeRequired("optional"))
}

func TestFormatReport(t *testing.T) {
	report := Validate([]types.FlatRecord{{"id": "x"}}, testContract)

	out := FormatReport(report)

	assert.Contains(t, out, "Validation failed: 1 of 1 row(s)")
	assert.Contains(t, out, "missing: date")
	assert.Contains(t, out, "invalid: id = 'x'")
	assert.Equal(t, "Validation failed: the input contains no rows.", FormatReport(Validate(nil, testContract)))
}
