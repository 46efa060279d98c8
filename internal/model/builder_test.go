package model

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaygupta2050/painFileGenerator/internal/aggregate"
	"github.com/vinaygupta2050/painFileGenerator/internal/registry"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

func mustSpec(t *testing.T, id string) *registry.Spec {
	t.Helper()
	spec, err := registry.Lookup(id)
	require.NoError(t, err)
	return spec
}

func scenarioRecords() []types.FlatRecord {
	return []types.FlatRecord{
		{"id": "1", "date": "2024-02-27", "nb_of_txs": "2", "initiator_name": "John Doe"},
		{"payment_id": "P-1", "payment_amount": "500.50", "creditor_name": "ACME"},
		{"payment_id": "P-2", "payment_amount": "250.25", "creditor_name": "Globex"},
	}
}

func TestBuildHeaderPlusTransactions(t *testing.T) {
	m, err := NewBuilder(aggregate.PolicyStrict, nil).Build(scenarioRecords(), mustSpec(t, "pain.001.001.09"))
	require.NoError(t, err)

	assert.Equal(t, "2", m.NbOfTxs)
	assert.Equal(t, "750.75", m.CtrlSum)
	assert.Equal(t, "John Doe", m.Header["initiator_name"])
	assert.Equal(t, "urn:iso:std:iso:20022:tech:xsd:pain.001.001.09", m.Namespace)

	require.Len(t, m.Transactions, 2)
	assert.Equal(t, 2, m.Transactions[0].SourceRow)
	assert.Equal(t, "P-1", m.Transactions[0].Fields["payment_id"])
	assert.Equal(t, "EUR", m.Transactions[0].Fields["payment_currency"])
	assert.Equal(t, "P-2", m.Transactions[1].Fields["payment_id"])
}

func TestBuildRowZeroIsTransaction(t *testing.T) {
	records := []types.FlatRecord{
		{"id": "1", "nb_of_txs": "2", "payment_id": "P-0", "payment_amount": "10.00"},
		{"payment_id": "P-1", "payment_amount": "5.005"},
	}

	m, err := NewBuilder("", nil).Build(records, mustSpec(t, "pain.001.001.03"))
	require.NoError(t, err)

	assert.Equal(t, "2", m.NbOfTxs)
	assert.Equal(t, "15.01", m.CtrlSum)
	assert.Equal(t, 1, m.Transactions[0].SourceRow)
	assert.Equal(t, "P-0", m.Transactions[0].Fields["payment_id"])
}

func TestBuildWritesAmountsInPlainNotation(t *testing.T) {
	records := []types.FlatRecord{
		{"id": "1", "nb_of_txs": "2", "payment_id": "P-0", "payment_amount": "1e2"},
		{"payment_id": "P-1", "payment_amount": "250.50"},
	}

	m, err := NewBuilder("", nil).Build(records, mustSpec(t, "pain.001.001.03"))
	require.NoError(t, err)

	assert.Equal(t, "350.50", m.CtrlSum)
	assert.Equal(t, "100", m.Transactions[0].Fields["payment_amount"])
	assert.Equal(t, "250.50", m.Transactions[1].Fields["payment_amount"])
	assert.Equal(t, "1e2", records[0]["payment_amount"], "input records are left alone")
}

func TestBuildPreservesOrderAndSumIsCommutative(t *testing.T) {
	spec := mustSpec(t, "pain.001.001.09")
	forward := scenarioRecords()
	reversed := []types.FlatRecord{forward[0], forward[2], forward[1]}

	a, err := NewBuilder("", nil).Build(forward, spec)
	require.NoError(t, err)
	b, err := NewBuilder("", nil).Build(reversed, spec)
	require.NoError(t, err)

	assert.Equal(t, a.CtrlSum, b.CtrlSum)
	assert.Equal(t, "P-1", a.Transactions[0].Fields["payment_id"])
	assert.Equal(t, "P-2", b.Transactions[0].Fields["payment_id"])
}

func TestBuildDeclaredCountExceedsRows(t *testing.T) {
	records := scenarioRecords()
	records[0]["nb_of_txs"] = "5"

	m, err := NewBuilder(aggregate.PolicyStrict, nil).Build(records, mustSpec(t, "pain.001.001.09"))
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrAggregateComputation))
	assert.Contains(t, err.Error(), "nb_of_txs=5")

	clamped, err := NewBuilder(aggregate.PolicyClamp, nil).Build(records, mustSpec(t, "pain.001.001.09"))
	require.NoError(t, err)
	assert.Equal(t, "2", clamped.NbOfTxs)
}

func TestBuildCountsOnlyDeclaredRows(t *testing.T) {
	records := scenarioRecords()
	records[0]["nb_of_txs"] = "1"
	records[2]["payment_amount"] = "not counted"

	m, err := NewBuilder("", nil).Build(records, mustSpec(t, "pain.001.001.09"))
	require.NoError(t, err)

	assert.Equal(t, "1", m.NbOfTxs)
	assert.Equal(t, "500.50", m.CtrlSum)
	assert.Len(t, m.Transactions, 1)
}

func TestBuildUnparsableCountFallsBack(t *testing.T) {
	records := scenarioRecords()
	records[0]["nb_of_txs"] = "two"

	m, err := NewBuilder("", nil).Build(records, mustSpec(t, "pain.001.001.09"))
	require.NoError(t, err)
	assert.Equal(t, "2", m.NbOfTxs)
}

func TestBuildBadAmount(t *testing.T) {
	records := scenarioRecords()
	records[2]["payment_amount"] = "N/A"

	_, err := NewBuilder("", nil).Build(records, mustSpec(t, "pain.001.001.09"))
	require.Error(t, err)

	var ce *types.ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.KindAggregateComputation, ce.Kind)
	assert.Equal(t, 3, ce.Row)
	assert.Equal(t, "N/A", ce.Value)
}

func TestBuildEmptyInput(t *testing.T) {
	_, err := NewBuilder("", nil).Build(nil, mustSpec(t, "pain.001.001.03"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmptyInput))
}

func TestBuildWarnsOnCtrlSumMismatch(t *testing.T) {
	logger, hook := test.NewNullLogger()
	records := scenarioRecords()
	records[0]["ctrl_sum"] = "999.99"

	m, err := NewBuilder("", logger).Build(records, mustSpec(t, "pain.001.001.09"))
	require.NoError(t, err)
	assert.Equal(t, "750.75", m.CtrlSum)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "999.99", hook.LastEntry().Data["declared"])
}
