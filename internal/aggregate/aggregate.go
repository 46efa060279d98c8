// =============================================================================
// pain.001 File Generator - Aggregate Calculator
// =============================================================================
//
// This module derives the batch aggregates carried in the group header:
// the number of transactions and the control sum of their amounts.
//
// RULES:
//   - Amounts are summed as exact decimals; rounding happens once, when the
//     control sum is formatted with two fraction digits (half away from zero)
//   - A missing or non-numeric amount on a counted row is fatal and names
//     the 1-based row and the raw value
//   - The declared count in the header is checked against the rows on hand
//
// =============================================================================

package aggregate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// CountField is the header column carrying the declared transaction count.
const CountField = "nb_of_txs"

// CtrlSumField is the header column carrying an optional declared control sum.
const CtrlSumField = "ctrl_sum"

// =============================================================================
// COUNT POLICY
// =============================================================================

// CountPolicy decides what happens when the declared count exceeds the rows on hand.
type CountPolicy string

const (
	// PolicyStrict rejects a declared count above the available rows.
	PolicyStrict CountPolicy = "strict"

	// PolicyClamp lowers a declared count to the available rows.
	PolicyClamp CountPolicy = "clamp"
)

// ParseCountPolicy maps a config value to a policy. Empty means strict.
func ParseCountPolicy(value string) (CountPolicy, error) {
	switch CountPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyClamp:
		return PolicyClamp, nil
	default:
		return "", fmt.Errorf("unknown count policy '%s' (expected strict or clamp)", value)
	}
}

// ResolveDeclaredCount works out how many transaction rows to build.
//
// PARAMETERS:
//   - header: Row 0 of the batch.
//   - available: The number of transaction rows on hand.
//   - policy: What to do when the declared count exceeds available.
//
// RETURNS:
//   - The count to build. An absent or unparsable declared count yields available.
//   - An AggregateComputation error when the count is not positive, or exceeds
//     available under the strict policy.
func ResolveDeclaredCount(header types.FlatRecord, available int, policy CountPolicy) (int, error) {
	raw := strings.TrimSpace(header.Get(CountField))

	declared := available
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			declared = n
		}
	}

	if declared <= 0 {
		return 0, &types.ConversionError{
			Kind:    types.KindAggregateComputation,
			Message: fmt.Sprintf("transaction count must be a positive integer, got %d (declared %q, %d row(s) available)", declared, raw, available),
			Row:     1,
			Value:   raw,
		}
	}

	if declared > available {
		if policy == PolicyClamp {
			return available, nil
		}
		return 0, &types.ConversionError{
			Kind:    types.KindAggregateComputation,
			Message: fmt.Sprintf("declared %s=%d exceeds the %d transaction row(s) available", CountField, declared, available),
			Row:     1,
			Value:   raw,
		}
	}

	return declared, nil
}

// =============================================================================
// TOTALS
// =============================================================================

// Totals holds the aggregates of the counted rows.
type Totals struct {
	Count int
	Sum   decimal.Decimal
}

// CtrlSum formats the sum with exactly two fraction digits.
func (t Totals) CtrlSum() string {
	return t.Sum.StringFixed(2)
}

// NbOfTxs formats the count.
func (t Totals) NbOfTxs() string {
	return strconv.Itoa(t.Count)
}

// Compute counts the rows and sums their amount field.
//
// PARAMETERS:
//   - rows: The counted transaction rows, in order.
//   - amountField: The source column holding the amount.
//   - firstRow: The 0-based input index of rows[0], used for error messages.
//
// RETURNS:
//   - The totals, or an AggregateComputation error naming the first row whose
//     amount is unparsable or negative.
func Compute(rows []types.FlatRecord, amountField string, firstRow int) (Totals, error) {
	totals := Totals{Sum: decimal.Zero}

	for i, row := range rows {
		raw := row.Get(amountField)
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err == nil && amount.IsNegative() {
			err = errors.New("amount is negative")
		}
		if err != nil {
			rowNumber := firstRow + i + 1
			return Totals{}, &types.ConversionError{
				Kind:    types.KindAggregateComputation,
				Message: fmt.Sprintf("invalid %s in row %d: %q", amountField, rowNumber, raw),
				Row:     rowNumber,
				Value:   raw,
				Err:     err,
			}
		}
		totals.Sum = totals.Sum.Add(amount)
		totals.Count++
	}

	return totals, nil
}

// CanonicalAmount rewrites an amount in plain decimal notation, keeping its
// fraction digits: "1e2" becomes "100" and "500.50" stays "500.50". Text that
// does not parse is returned unchanged.
func CanonicalAmount(raw string) string {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	places := int32(0)
	if amount.Exponent() < 0 {
		places = -amount.Exponent()
	}
	return amount.StringFixed(places)
}

// DeclaredCtrlSumMismatch compares a header's declared ctrl_sum with the computed one.
// It returns the declared value and true when both are numeric and differ.
func DeclaredCtrlSumMismatch(header types.FlatRecord, totals Totals) (string, bool) {
	raw := strings.TrimSpace(header.Get(CtrlSumField))
	if raw == "" {
		return "", false
	}
	declared, err := decimal.NewFromString(raw)
	if err != nil {
		return raw, false
	}
	return raw, !declared.Equal(totals.Sum)
}
