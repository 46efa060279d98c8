// =============================================================================
// pain.001 File Generator - Document Model Builder
// =============================================================================
//
// This module turns a validated batch of flat records into the hierarchical
// document model of one message version.
//
// BUILD SEQUENCE:
//   1. Project the header fields from row 0
//   2. Resolve the declared transaction count against the rows on hand
//   3. Project the counted transaction rows, in input order
//   4. Compute the control sum over exactly those rows
//
// A call yields one complete model or an error; nothing partial escapes.
//
// =============================================================================

package model

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/vinaygupta2050/painFileGenerator/internal/aggregate"
	"github.com/vinaygupta2050/painFileGenerator/internal/registry"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// Builder builds document models.
type Builder struct {
	policy aggregate.CountPolicy
	logger logrus.FieldLogger
}

// NewBuilder creates a builder using the given count policy.
// A nil logger discards log output.
func NewBuilder(policy aggregate.CountPolicy, logger logrus.FieldLogger) *Builder {
	if policy == "" {
		policy = aggregate.PolicyStrict
	}
	if logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		logger = l
	}
	return &Builder{policy: policy, logger: logger}
}

// Build produces the document model of records for the given version.
//
// PARAMETERS:
//   - records: The validated batch, header record first.
//   - spec: The version's projection rules.
//
// RETURNS:
//   - The document model.
//   - A DataValidation error for an empty batch, or an AggregateComputation error
//     for a bad declared count or amount.
func (b *Builder) Build(records []types.FlatRecord, spec *registry.Spec) (*types.DocumentModel, error) {
	if len(records) == 0 {
		return nil, types.WrapError(types.KindDataValidation, types.ErrEmptyInput, "cannot build %s", spec.ID)
	}

	header := records[0]
	first := spec.FirstTransactionRow()
	available := spec.AvailableTransactions(len(records))

	count, err := aggregate.ResolveDeclaredCount(header, available, b.policy)
	if err != nil {
		return nil, err
	}

	counted := records[first : first+count]

	totals, err := aggregate.Compute(counted, spec.AmountField, first)
	if err != nil {
		return nil, err
	}

	log := b.logger.WithField("version", spec.ID)
	if declared, mismatch := aggregate.DeclaredCtrlSumMismatch(header, totals); mismatch {
		log.WithFields(logrus.Fields{
			"declared": declared,
			"computed": totals.CtrlSum(),
		}).Warn("Declared ctrl_sum differs from computed control sum")
	}
	if count < available {
		log.WithFields(logrus.Fields{
			"counted":   count,
			"available": available,
		}).Debug("Ignoring rows beyond the declared transaction count")
	}

	transactions := make([]types.TransactionBlock, len(counted))
	for i, row := range counted {
		fields := registry.Apply(row, spec.Transaction)
		if amount, ok := fields[spec.AmountField]; ok {
			fields[spec.AmountField] = aggregate.CanonicalAmount(amount)
		}
		transactions[i] = types.TransactionBlock{
			SourceRow: first + i + 1,
			Fields:    fields,
		}
	}

	return &types.DocumentModel{
		Version:        spec.ID,
		Namespace:      spec.Namespace,
		SchemaLocation: spec.SchemaLocation,
		Header:         registry.Apply(header, spec.Header),
		Transactions:   transactions,
		NbOfTxs:        totals.NbOfTxs(),
		CtrlSum:        totals.CtrlSum(),
	}, nil
}
