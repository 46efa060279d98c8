// =============================================================================
// pain.001 File Generator - Record Transformer
// =============================================================================
//
// This module applies profile transformation rules and static fields to the
// loaded records before they are validated. Exports from other systems rarely
// match the column formats the message needs; a profile can, for example,
// turn "1.234,50" into "1234.50" or "15/01/2024" into "2024-01-15".
//
// SUPPORTED TRANSFORMATION TYPES:
//   - prepend_string, append_string
//   - trim, uppercase, lowercase, remove_spaces, normalize_whitespace
//   - replace, regex_replace
//   - substring ("start,end")
//   - pad_zeros_to_length
//   - format_number (decimal places; accepts "1.234,50" and "1,234.50")
//   - format_date ("input_layout|output_layout")
//   - lookup, lookup_with_default
//   - if_empty_use_default, if_empty_use_field
//   - extract_digits, remove_special_chars
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// =============================================================================
// TRANSFORMER STRUCTURE
// =============================================================================

// Transformer applies transformation rules and static fields to records.
type Transformer struct {
	rules        []config.TransformationRule
	staticFields []config.StaticField
}

// NewTransformer creates a transformer for a profile's rules and static fields.
func NewTransformer(rules []config.TransformationRule, static []config.StaticField) *Transformer {
	return &Transformer{rules: rules, staticFields: static}
}

// Apply returns transformed copies of records; the input is not modified.
//
// Static fields are applied first so transformation rules can refer to them.
// A failing action is a DataValidation error naming the 1-based row.
func (t *Transformer) Apply(records []types.FlatRecord) ([]types.FlatRecord, error) {
	out := types.CloneRecords(records)

	for i, record := range out {
		for _, field := range t.staticFields {
			applyStaticField(record, field, i)
		}

		for _, rule := range t.rules {
			value := record[rule.Field]
			for _, action := range rule.Actions {
				transformed, err := ApplyTransformation(value, action, record)
				if err != nil {
					e := types.WrapError(types.KindDataValidation, err,
						"transformation %s of %s failed in row %d", action.Type, rule.Field, i+1)
					e.Row = i + 1
					e.Value = value
					return nil, e
				}
				value = transformed
			}
			record[rule.Field] = value
		}
	}

	return out, nil
}

func applyStaticField(record types.FlatRecord, field config.StaticField, index int) {
	if field.Rows != "all" && index != 0 {
		return
	}
	if field.Overwrite || strings.TrimSpace(record[field.Column]) == "" {
		record[field.Column] = field.Value
	}
}

// =============================================================================
// TRANSFORMATION ACTIONS
// =============================================================================

// ApplyTransformation applies a single action to a value.
//
// PARAMETERS:
//   - value: The current value.
//   - action: The action to apply.
//   - record: The whole record, for actions that read other columns.
//
// RETURNS:
//   - The transformed value.
//   - An error for an unknown action type, a bad action parameter, or a
//     value the action cannot convert.
func ApplyTransformation(value string, action config.TransformationAction, record types.FlatRecord) (string, error) {
	switch action.Type {

	case "prepend_string":
		if value == "" {
			return value, nil
		}
		return action.Value + value, nil

	case "append_string":
		if value == "" {
			return value, nil
		}
		return value + action.Value, nil

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "remove_spaces":
		// IBANs are often exported in groups of four.
		return strings.Join(strings.Fields(value), ""), nil

	case "normalize_whitespace":
		return strings.Join(strings.Fields(value), " "), nil

	case "replace":
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid pattern %q: %w", action.Find, err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "substring":
		// VALUE FORMAT: "start,end" (0-indexed, end exclusive, in characters)
		start, end, err := parseRange(action.Value)
		if err != nil {
			return "", err
		}
		runes := []rune(value)
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			return "", nil
		}
		return string(runes[start:end]), nil

	case "pad_zeros_to_length":
		length, err := strconv.Atoi(strings.TrimSpace(action.Value))
		if err != nil {
			return "", fmt.Errorf("invalid length %q", action.Value)
		}
		if value == "" || len(value) >= length {
			return value, nil
		}
		return strings.Repeat("0", length-len(value)) + value, nil

	case "format_number":
		if value == "" {
			return value, nil
		}
		places, err := strconv.Atoi(strings.TrimSpace(action.Value))
		if err != nil {
			return "", fmt.Errorf("invalid decimal places %q", action.Value)
		}
		d, err := decimal.NewFromString(normalizeNumber(value))
		if err != nil {
			return "", fmt.Errorf("%q is not a number", value)
		}
		return d.StringFixed(int32(places)), nil

	case "format_date":
		// VALUE FORMAT: "input_layout|output_layout" using Go layouts,
		// e.g. "02/01/2006|2006-01-02".
		if value == "" {
			return value, nil
		}
		in, out, ok := strings.Cut(action.Value, "|")
		if !ok {
			return "", fmt.Errorf("invalid date layouts %q", action.Value)
		}
		t, err := time.Parse(strings.TrimSpace(in), value)
		if err != nil {
			return "", fmt.Errorf("%q does not match %q", value, strings.TrimSpace(in))
		}
		return t.Format(strings.TrimSpace(out)), nil

	case "lookup":
		if mapped, ok := action.LookupTable[value]; ok {
			return mapped, nil
		}
		return value, nil

	case "lookup_with_default":
		if mapped, ok := action.LookupTable[value]; ok {
			return mapped, nil
		}
		return action.Value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			return record[action.Value], nil
		}
		return value, nil

	case "extract_digits":
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, value), nil

	case "remove_special_chars":
		return strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
				return r
			}
			return -1
		}, value), nil

	default:
		return "", fmt.Errorf("unknown transformation type %q", action.Type)
	}
}

// IsKnownTransformation reports whether ApplyTransformation supports typ.
func IsKnownTransformation(typ string) bool {
	_, ok := transformationTypes[typ]
	return ok
}

var transformationTypes = map[string]struct{}{
	"prepend_string": {}, "append_string": {},
	"trim": {}, "uppercase": {}, "lowercase": {}, "remove_spaces": {}, "normalize_whitespace": {},
	"replace": {}, "regex_replace": {}, "substring": {}, "pad_zeros_to_length": {},
	"format_number": {}, "format_date": {},
	"lookup": {}, "lookup_with_default": {},
	"if_empty_use_default": {}, "if_empty_use_field": {},
	"extract_digits": {}, "remove_special_chars": {},
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func parseRange(value string) (int, int, error) {
	a, b, ok := strings.Cut(value, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q", value)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(a))
	end, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil || start < 0 {
		return 0, 0, fmt.Errorf("invalid range %q", value)
	}
	return start, end, nil
}

// normalizeNumber turns "1.234,50", "1,234.50" and "1234,5" into a plain
// decimal string. The right-most separator is the decimal point.
func normalizeNumber(value string) string {
	value = strings.Join(strings.Fields(value), "")
	lastDot := strings.LastIndex(value, ".")
	lastComma := strings.LastIndex(value, ",")

	switch {
	case lastComma > lastDot:
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	default:
		value = strings.ReplaceAll(value, ",", "")
	}
	return value
}
