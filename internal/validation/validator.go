// =============================================================================
// pain.001 File Generator - Record Validator
// =============================================================================
//
// This module checks a batch of flat records against a required-column and
// type contract before any mapping is attempted.
//
// VALIDATION STRATEGY:
//   - Every row is checked; validation never stops at the first failure
//   - "Missing" (absent or blank after trimming) is reported separately from
//     "present but malformed"
//   - Header-scope rules apply to row 0, transaction-scope rules apply to
//     transaction rows (row 0 included when the version says so)
//   - An empty batch is reported distinctly from a row failure
//
// SUPPORTED TYPES:
//   int, decimal, boolean ("true"/"false", any case), date
//   (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS, trailing Z = +00:00) and text.
//
// =============================================================================

package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// =============================================================================
// CONTRACT
// =============================================================================

// ColumnType is the expected type of a column value.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInt     ColumnType = "int"
	TypeDecimal ColumnType = "decimal"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
)

// Scope selects which rows a rule applies to.
type Scope string

const (
	ScopeHeader      Scope = "header"
	ScopeTransaction Scope = "transaction"
	ScopeAll         Scope = "all"
)

// ColumnRule declares one column of the contract.
type ColumnRule struct {
	// Column is the source column name.
	Column string `yaml:"column"`

	// Type is the expected value type.
	Type ColumnType `yaml:"type"`

	// Required columns are reported as missing when absent or blank.
	// Optional columns are only type-checked when they carry a value.
	Required bool `yaml:"required"`

	// Scope selects header row, transaction rows or every row.
	Scope Scope `yaml:"scope"`
}

// Contract is the full set of column rules for one conversion.
type Contract struct {
	Rules []ColumnRule

	// IncludeHeaderRow treats row 0 as a transaction row as well.
	IncludeHeaderRow bool
}

// rulesFor returns the rules that apply to the row at index i.
func (c Contract) rulesFor(i int) []ColumnRule {
	isHeader := i == 0
	isTransaction := i > 0 || c.IncludeHeaderRow

	rules := make([]ColumnRule, 0, len(c.Rules))
	for _, rule := range c.Rules {
		switch rule.Scope {
		case ScopeHeader:
			if isHeader {
				rules = append(rules, rule)
			}
		case ScopeTransaction:
			if isTransaction {
				rules = append(rules, rule)
			}
		default:
			rules = append(rules, rule)
		}
	}
	return rules
}

// =============================================================================
// FINDINGS
// =============================================================================

// ValidationError is a single "present but malformed" finding.
type ValidationError struct {
	// RowNumber is the 1-based input row.
	RowNumber int

	// Column is the column that failed its type check.
	Column string

	// Value is the raw value.
	Value string

	// Rule is the type that was expected.
	Rule ColumnType

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d, column '%s': %s (value: '%s')", e.RowNumber, e.Column, e.Message, e.Value)
}

// RowFindings groups the findings of one row.
type RowFindings struct {
	// Row is the 1-based input row.
	Row int

	// Missing lists required columns that are absent or blank.
	Missing []string

	// Invalid lists columns whose value fails the type check.
	Invalid []*ValidationError
}

// InvalidColumns returns the names of the malformed columns.
func (f RowFindings) InvalidColumns() []string {
	cols := make([]string, len(f.Invalid))
	for i, inv := range f.Invalid {
		cols[i] = inv.Column
	}
	return cols
}

// Report is the result of validating a batch.
type Report struct {
	// Valid is true only when the batch is non-empty and no row has findings.
	Valid bool

	// Empty is true when the batch had no rows.
	Empty bool

	// RowsChecked is the number of rows inspected.
	RowsChecked int

	// Rows holds the findings of every failing row, in input order.
	Rows []RowFindings
}

// Err converts a failing report into a DataValidationError carrying every finding.
// It returns nil for a valid report.
func (r *Report) Err() error {
	if r.Valid {
		return nil
	}
	if r.Empty {
		return types.WrapError(types.KindDataValidation, types.ErrEmptyInput, "no rows to validate")
	}

	details := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		details = append(details, describeRow(row))
	}

	return &types.ConversionError{
		Kind:    types.KindDataValidation,
		Message: fmt.Sprintf("%d of %d row(s) failed validation", len(r.Rows), r.RowsChecked),
		Details: details,
	}
}

func describeRow(row RowFindings) string {
	var parts []string
	if len(row.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %v", row.Missing))
	}
	if len(row.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid %v", row.InvalidColumns()))
	}
	return fmt.Sprintf("row %d: %s", row.Row, strings.Join(parts, "; "))
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks every record against the contract and collects all findings.
//
// PARAMETERS:
//   - records: The batch, header record first.
//   - contract: The column rules and the row-0 policy.
//
// RETURNS:
//   - A Report. Validate never short-circuits; use Report.Err() for the error value.
func Validate(records []types.FlatRecord, contract Contract) *Report {
	report := &Report{RowsChecked: len(records)}

	if len(records) == 0 {
		report.Empty = true
		return report
	}

	for i, record := range records {
		findings := ValidateRecord(record, i, contract.rulesFor(i))
		if len(findings.Missing) > 0 || len(findings.Invalid) > 0 {
			report.Rows = append(report.Rows, findings)
		}
	}

	report.Valid = len(report.Rows) == 0
	return report
}

// ValidateRecord checks one record against a list of rules.
// index is the 0-based position of the record in the batch.
func ValidateRecord(record types.FlatRecord, index int, rules []ColumnRule) RowFindings {
	findings := RowFindings{Row: index + 1}

	for _, rule := range rules {
		raw, present := record[rule.Column]
		value := strings.TrimSpace(raw)

		if !present || value == "" {
			if rule.Required {
				findings.Missing = append(findings.Missing, rule.Column)
			}
			continue
		}

		if msg := checkType(value, rule.Type); msg != "" {
			findings.Invalid = append(findings.Invalid, &ValidationError{
				RowNumber: index + 1,
				Column:    rule.Column,
				Value:     raw,
				Rule:      rule.Type,
				Message:   msg,
			})
		}
	}

	return findings
}

// =============================================================================
// DATA TYPE VALIDATORS
// =============================================================================

// checkType returns an error message when value does not match the type.
func checkType(value string, t ColumnType) string {
	switch t {
	case TypeInt:
		return validateInteger(value)
	case TypeDecimal:
		return validateDecimal(value)
	case TypeBoolean:
		return validateBoolean(value)
	case TypeDate:
		return validateDate(value)
	default:
		return ""
	}
}

func validateInteger(value string) string {
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return "not a valid integer"
	}
	return ""
}

func validateDecimal(value string) string {
	if _, err := decimal.NewFromString(value); err != nil {
		return "not a valid decimal number"
	}
	return ""
}

func validateBoolean(value string) string {
	if strings.EqualFold(value, "true") || strings.EqualFold(value, "false") {
		return ""
	}
	return "not a valid boolean (expected true or false)"
}

// dateLayouts are tried in order after a trailing Z has been removed.
// Explicit offsets such as +05:00 are not accepted.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
}

func validateDate(value string) string {
	if _, ok := ParseDate(value); !ok {
		return "not a valid date (expected YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS)"
	}
	return ""
}

// ParseDate parses a calendar date or local date-time, returned in UTC. A
// trailing "Z" is the only zone designator allowed.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "Z")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeType maps the spellings used in YAML and XLSX contract sheets to a ColumnType.
// Unknown spellings fall back to text.
func NormalizeType(value string) ColumnType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "int", "integer", "numeric", "num", "number":
		return TypeInt
	case "decimal", "dec", "double", "float", "money", "amount":
		return TypeDecimal
	case "bool", "boolean":
		return TypeBoolean
	case "date", "datetime", "localdate":
		return TypeDate
	default:
		return TypeText
	}
}

// NormalizeScope maps contract-sheet spellings to a Scope. Unknown spellings mean every row.
func NormalizeScope(value string) Scope {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "header", "batch", "group":
		return ScopeHeader
	case "transaction", "tx", "row", "payment":
		return ScopeTransaction
	default:
		return ScopeAll
	}
}

// NormalizeRequired interprets a required/optional cell.
func NormalizeRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory":
		return true
	default:
		return false
	}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatReport renders a report for display or for the error log.
func FormatReport(r *Report) string {
	if r.Valid {
		return fmt.Sprintf("Validation passed: %d row(s) checked.", r.RowsChecked)
	}
	if r.Empty {
		return "Validation failed: the input contains no rows."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation failed: %d of %d row(s) have findings:\n\n", len(r.Rows), r.RowsChecked)

	for _, row := range r.Rows {
		fmt.Fprintf(&builder, "Row %d\n", row.Row)
		if len(row.Missing) > 0 {
			fmt.Fprintf(&builder, "  missing: %s\n", strings.Join(row.Missing, ", "))
		}
		for _, inv := range row.Invalid {
			fmt.Fprintf(&builder, "  invalid: %s = '%s' (%s)\n", inv.Column, inv.Value, inv.Message)
		}
	}

	return builder.String()
}
