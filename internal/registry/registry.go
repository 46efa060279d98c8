// =============================================================================
// pain.001 File Generator - Version Registry
// =============================================================================
//
// This module holds the closed set of supported pain.001 message versions.
// Each version is described by data only: a header projection list, a
// transaction projection list, the row-0 policy and the template to render.
//
// The table is built once at package initialisation and never mutated, so
// lookups are safe from any number of goroutines.
//
// =============================================================================

package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// NamespacePrefix is prepended to a version identifier to form its XML namespace.
const NamespacePrefix = "urn:iso:std:iso:20022:tech:xsd:"

// DefaultAmountField is the source column summed into the control sum.
const DefaultAmountField = "payment_amount"

// =============================================================================
// TYPES
// =============================================================================

// Projection maps one source column onto one target document field.
type Projection struct {
	// Source is the input column name.
	Source string

	// Target is the field name exposed to the template.
	Target string

	// Default is used when the source column is absent or blank.
	Default string
}

// Apply projects the record through a list of projections.
func Apply(record types.FlatRecord, projections []Projection) map[string]string {
	out := make(map[string]string, len(projections))
	for _, p := range projections {
		value := strings.TrimSpace(record.Get(p.Source))
		if value == "" {
			value = p.Default
		}
		out[p.Target] = value
	}
	return out
}

// Spec describes one supported message version.
type Spec struct {
	// ID is the version identifier, e.g. "pain.001.001.03".
	ID string

	// Namespace is the XML namespace of the version.
	Namespace string

	// SchemaLocation is the xsi:schemaLocation value.
	SchemaLocation string

	// TemplateID names the template rendered for this version.
	TemplateID string

	// Header is projected once from row 0.
	Header []Projection

	// Transaction is projected from every transaction row.
	Transaction []Projection

	// IncludeHeaderRow makes row 0 the first transaction as well.
	IncludeHeaderRow bool

	// AmountField is the source column summed into the control sum.
	AmountField string
}

// FirstTransactionRow returns the index of the first transaction row.
func (s *Spec) FirstTransactionRow() int {
	if s.IncludeHeaderRow {
		return 0
	}
	return 1
}

// AvailableTransactions returns how many transaction rows a batch of n records offers.
func (s *Spec) AvailableTransactions(n int) int {
	avail := n - s.FirstTransactionRow()
	if avail < 0 {
		return 0
	}
	return avail
}

// =============================================================================
// PROJECTION TABLE
// =============================================================================

func p(source string) Projection { return Projection{Source: source, Target: source} }

func rename(target, source string) Projection { return Projection{Source: source, Target: target} }

func withDefault(target, source, def string) Projection {
	return Projection{Source: source, Target: target, Default: def}
}

func concat(lists ...[]Projection) []Projection {
	var out []Projection
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

var currency = withDefault("payment_currency", "currency", "EUR")

func party(prefix string) []Projection {
	return []Projection{
		p(prefix + "_name"),
		p(prefix + "_street_name"),
		p(prefix + "_building_number"),
		p(prefix + "_postal_code"),
		p(prefix + "_town_name"),
		p(prefix + "_country_code"),
	}
}

// shortParty uses the abbreviated street/town/country targets of .04 onwards.
func shortParty(prefix string) []Projection {
	return []Projection{
		p(prefix + "_name"),
		rename(prefix+"_street", prefix+"_street_name"),
		p(prefix + "_building_number"),
		p(prefix + "_postal_code"),
		rename(prefix+"_town", prefix+"_town_name"),
		rename(prefix+"_country", prefix+"_country_code"),
	}
}

var (
	header03 = concat(
		[]Projection{p("id"), p("date"), p("payment_information_id")},
		party("initiator"),
		[]Projection{p("payment_id"), p("payment_method"), p("batch_booking"), p("requested_execution_date")},
		party("debtor"),
		[]Projection{p("debtor_account_IBAN"), p("debtor_agent_BIC"), p("charge_bearer")},
	)

	transaction03 = concat(
		[]Projection{p("payment_id"), p(DefaultAmountField), currency, p("charge_bearer"), p("creditor_agent_BIC")},
		party("creditor"),
		[]Projection{p("creditor_account_IBAN"), p("purpose_code"), p("reference_number"), p("reference_date"), p("remittance_information")},
	)

	header04 = concat(
		[]Projection{p("id"), p("date")},
		shortParty("initiator"),
		[]Projection{p("payment_information_id"), p("payment_method"), p("batch_booking"), p("requested_execution_date")},
		shortParty("debtor"),
		[]Projection{
			p("debtor_account_IBAN"), p("debtor_agent_BIC"), p("debtor_agent_account_IBAN"),
			p("instruction_for_debtor_agent"), p("charge_bearer"), p("charge_account_IBAN"), p("charge_agent_BICFI"),
		},
	)

	transaction04 = []Projection{
		rename("payment_instruction_id", "payment_id"),
		rename("payment_end_to_end_id", "reference_number"),
		currency,
		p(DefaultAmountField),
		p("charge_bearer"),
		p("creditor_agent_BIC"),
		p("creditor_name"),
		rename("creditor_street", "creditor_street_name"),
		p("creditor_building_number"),
		p("creditor_postal_code"),
		rename("creditor_town", "creditor_town_name"),
		p("creditor_account_IBAN"),
		p("purpose_code"),
		p("reference_number"),
		p("reference_date"),
		p("remittance_information"),
	}

	header05 = concat(header04, []Projection{p("ultimate_debtor_name"), p("service_level_code")})

	transaction05 = concat(transaction04, []Projection{
		rename("creditor_country", "creditor_country_code"),
		rename("creditor_agent_BICFI", "creditor_agent_BIC"),
	})

	transaction06 = []Projection{
		p("payment_id"),
		p(DefaultAmountField),
		currency,
		p("charge_bearer"),
		p("creditor_agent_BIC"),
		p("creditor_name"),
		p("creditor_account_IBAN"),
		rename("creditor_remittance_information", "remittance_information"),
	}

	header08 = []Projection{
		p("id"), p("date"), p("payment_information_id"), p("payment_method"), p("batch_booking"),
		p("requested_execution_date"), p("charge_bearer"),
		p("initiator_name"), p("debtor_name"), p("debtor_account_IBAN"), p("debtor_agent_BIC"),
	}

	header09 = []Projection{
		p("id"), p("date"), p("initiator_name"), p("payment_information_id"), p("payment_method"),
		p("requested_execution_date"), p("debtor_name"), p("debtor_account_IBAN"), p("debtor_agent_BIC"),
		p("charge_bearer"),
	}

	transaction09 = []Projection{
		p("payment_id"),
		p(DefaultAmountField),
		currency,
		p("charge_bearer"),
		rename("creditor_agent_BICFI", "creditor_agent_BIC"),
		p("creditor_name"),
		p("creditor_account_IBAN"),
		p("remittance_information"),
	}
)

// .06 and .07 share the .04 header.
var header06 = header04

func newSpec(id string, header, transaction []Projection, includeHeaderRow bool) *Spec {
	ns := NamespacePrefix + id
	return &Spec{
		ID:               id,
		Namespace:        ns,
		SchemaLocation:   fmt.Sprintf("%s %s.xsd", ns, id),
		TemplateID:       id + ".xml.tmpl",
		Header:           header,
		Transaction:      transaction,
		IncludeHeaderRow: includeHeaderRow,
		AmountField:      DefaultAmountField,
	}
}

var specs = func() map[string]*Spec {
	list := []*Spec{
		newSpec("pain.001.001.03", header03, transaction03, true),
		newSpec("pain.001.001.04", header04, transaction04, true),
		newSpec("pain.001.001.05", header05, transaction05, true),
		newSpec("pain.001.001.06", header06, transaction06, true),
		newSpec("pain.001.001.07", header06, transaction06, true),
		newSpec("pain.001.001.08", header08, transaction06, true),
		newSpec("pain.001.001.09", header09, transaction09, false),
	}
	m := make(map[string]*Spec, len(list))
	for _, s := range list {
		m[s.ID] = s
	}
	return m
}()

// =============================================================================
// LOOKUP
// =============================================================================

// Lookup returns the description of a supported version.
//
// PARAMETERS:
//   - id: The version identifier, e.g. "pain.001.001.03".
//
// RETURNS:
//   - The version's spec, shared and read-only.
//   - An UnsupportedVersion error for any other identifier.
func Lookup(id string) (*Spec, error) {
	s, ok := specs[strings.TrimSpace(id)]
	if !ok {
		return nil, types.NewError(types.KindUnsupportedVersion,
			"'%s' is not one of %s", id, strings.Join(Versions(), ", "))
	}
	return s, nil
}

// IsSupported reports whether id names a supported version.
func IsSupported(id string) bool {
	_, ok := specs[strings.TrimSpace(id)]
	return ok
}

// Versions lists the supported identifiers in ascending order.
func Versions() []string {
	ids := make([]string, 0, len(specs))
	for id := range specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
