// =============================================================================
// pain.001 File Generator - Shared Types
// =============================================================================
//
// This package contains the data model shared by the loaders, the validator,
// the document builder and the renderer. Keeping it here avoids import cycles
// between those packages.
//
// DATA FLOW:
//   []FlatRecord  ->  DocumentModel  ->  rendered XML
//
// =============================================================================

package types

// =============================================================================
// SOURCE RECORDS
// =============================================================================

// FlatRecord is one input row: column name -> raw value.
// Row 0 of a batch is the header record carrying batch-level attributes.
type FlatRecord map[string]string

// Get returns the value of a column, or "" when the column is absent.
func (r FlatRecord) Get(column string) string {
	if r == nil {
		return ""
	}
	return r[column]
}

// Clone returns an independent copy of the record.
func (r FlatRecord) Clone() FlatRecord {
	out := make(FlatRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRecords deep-copies a record list so callers can mutate it freely.
func CloneRecords(records []FlatRecord) []FlatRecord {
	out := make([]FlatRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// =============================================================================
// DOCUMENT MODEL
// =============================================================================

// TransactionBlock holds the projected payment-level fields of one transaction.
type TransactionBlock struct {
	// SourceRow is the 1-based position of the row in the input.
	SourceRow int

	// Fields maps target field name -> projected value.
	Fields map[string]string
}

// DocumentModel is the in-memory hierarchical document for one conversion:
// header fields, ordered transactions and the derived aggregates.
type DocumentModel struct {
	// Version is the message version identifier, e.g. "pain.001.001.03".
	Version string

	// Namespace and SchemaLocation are derived from the version.
	Namespace      string
	SchemaLocation string

	// Header maps target field name -> projected header value.
	Header map[string]string

	// Transactions preserves input row order.
	Transactions []TransactionBlock

	// NbOfTxs is the number of transaction blocks actually built.
	NbOfTxs string

	// CtrlSum is the exact sum of counted amounts, two fraction digits.
	CtrlSum string
}

// Flatten turns the model into the generic key/value-and-list structure
// handed to the template renderer. Header fields become top-level keys.
func (m *DocumentModel) Flatten() map[string]any {
	data := make(map[string]any, len(m.Header)+6)
	for k, v := range m.Header {
		data[k] = v
	}

	transactions := make([]map[string]string, len(m.Transactions))
	for i, tx := range m.Transactions {
		fields := make(map[string]string, len(tx.Fields))
		for k, v := range tx.Fields {
			fields[k] = v
		}
		transactions[i] = fields
	}

	data["transactions"] = transactions
	data["nb_of_txs"] = m.NbOfTxs
	data["ctrl_sum"] = m.CtrlSum
	data["namespace"] = m.Namespace
	data["schema_location"] = m.SchemaLocation
	data["message_version"] = m.Version

	return data
}
