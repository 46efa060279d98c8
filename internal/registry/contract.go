package registry

import "github.com/vinaygupta2050/painFileGenerator/internal/validation"

var defaultRules = []validation.ColumnRule{
	{Column: "id", Type: validation.TypeInt, Required: true, Scope: validation.ScopeHeader},
	{Column: "date", Type: validation.TypeDate, Required: true, Scope: validation.ScopeHeader},
	{Column: "nb_of_txs", Type: validation.TypeInt, Required: true, Scope: validation.ScopeHeader},
	{Column: "ctrl_sum", Type: validation.TypeDecimal, Required: true, Scope: validation.ScopeHeader},
	{Column: "initiator_name", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "payment_information_id", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "payment_method", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "batch_booking", Type: validation.TypeBoolean, Required: true, Scope: validation.ScopeHeader},
	{Column: "service_level_code", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "requested_execution_date", Type: validation.TypeDate, Required: true, Scope: validation.ScopeHeader},
	{Column: "debtor_name", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "debtor_account_IBAN", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "debtor_agent_BIC", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "forwarding_agent_BIC", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},
	{Column: "charge_bearer", Type: validation.TypeText, Required: true, Scope: validation.ScopeHeader},

	{Column: "payment_id", Type: validation.TypeText, Required: true, Scope: validation.ScopeTransaction},
	{Column: "payment_amount", Type: validation.TypeDecimal, Required: true, Scope: validation.ScopeTransaction},
	{Column: "currency", Type: validation.TypeText, Required: true, Scope: validation.ScopeTransaction},
	{Column: "creditor_agent_BIC", Type: validation.TypeText, Required: true, Scope: validation.ScopeTransaction},
	{Column: "creditor_name", Type: validation.TypeText, Required: true, Scope: validation.ScopeTransaction},
	{Column: "creditor_account_IBAN", Type: validation.TypeText, Required: true, Scope: validation.ScopeTransaction},
	{Column: "remittance_information", Type: validation.TypeText, Required: true, Scope: validation.ScopeTransaction},
}

// DefaultRules returns a copy of the built-in column rules.
func DefaultRules() []validation.ColumnRule {
	out := make([]validation.ColumnRule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Contract returns the default validation contract for the version.
func (s *Spec) Contract() validation.Contract {
	return s.ContractWith(nil)
}

// ContractWith applies the version's row-0 policy to a rule list.
// A nil or empty list selects the default rules.
func (s *Spec) ContractWith(rules []validation.ColumnRule) validation.Contract {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return validation.Contract{Rules: rules, IncludeHeaderRow: s.IncludeHeaderRow}
}
