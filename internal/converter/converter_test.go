package converter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/xmlpath.v2"

	"github.com/vinaygupta2050/painFileGenerator/internal/config"
	"github.com/vinaygupta2050/painFileGenerator/internal/conformance"
	"github.com/vinaygupta2050/painFileGenerator/internal/metrics"
	"github.com/vinaygupta2050/painFileGenerator/internal/storage"
	"github.com/vinaygupta2050/painFileGenerator/internal/storage/mocks"
	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

const v03 = "pain.001.001.03"

var columns = []string{
	"id", "date", "nb_of_txs", "ctrl_sum", "initiator_name", "payment_information_id",
	"payment_method", "batch_booking", "service_level_code", "requested_execution_date",
	"debtor_name", "debtor_account_IBAN", "debtor_agent_BIC", "forwarding_agent_BIC", "charge_bearer",
	"payment_id", "payment_amount", "currency", "creditor_agent_BIC", "creditor_name",
	"creditor_account_IBAN", "remittance_information",
}

func headerRow(nbOfTxs string) []string {
	return []string{
		"1", "2024-02-27", nbOfTxs, "750.75", "John Doe", "PMT-1",
		"TRF", "true", "SEPA", "2024-03-01",
		"John Doe", "DE89370400440532013000", "COBADEFFXXX", "COBADEFFXXX", "SLEV",
		"P-1", "500.50", "EUR", "DEUTDEFF", "ACME",
		"DE44500105175407324931", "Invoice 1",
	}
}

func secondRow() []string {
	row := make([]string, 15)
	return append(row, "P-2", "250.25", "EUR", "BNPAFRPP", "Globex", "FR1420041010050500013M02606", "Invoice 2")
}

func writeCSV(t *testing.T, dir string, rows ...[]string) string {
	t.Helper()
	lines := []string{strings.Join(columns, ",")}
	for _, r := range rows {
		lines = append(lines, strings.Join(r, ","))
	}
	path := filepath.Join(dir, "payments.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func writeSchema(t *testing.T, dir, version string) string {
	t.Helper()
	ns := "urn:iso:std:iso:20022:tech:xsd:" + version
	xsd := `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="` + ns + `">
  <xs:element name="Document" type="xs:anyType"/>
</xs:schema>
`
	path := filepath.Join(dir, version+".xsd")
	require.NoError(t, os.WriteFile(path, []byte(xsd), 0644))
	return path
}

func newConverter(t *testing.T, opts Options) *Converter {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func readXML(t *testing.T, path string) *xmlpath.Node {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	root, err := xmlpath.Parse(f)
	require.NoError(t, err)
	return root
}

func xpath(t *testing.T, root *xmlpath.Node, path string) string {
	t.Helper()
	v, ok := xmlpath.MustCompile(path).String(root)
	require.True(t, ok, path)
	return v
}

func TestRunConvertsCSV(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())
	schema := writeSchema(t, dir, v03)

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	c := newConverter(t, Options{Checker: conformance.NewSchemaChecker("", nil), Metrics: rec})
	result := c.Run(context.Background(), Request{
		Version:    v03,
		DataPath:   data,
		SchemaPath: schema,
		OutputPath: filepath.Join(dir, "out", "result.xml"),
	})

	require.NoError(t, result.Error)
	assert.NoError(t, result.ConformanceError)
	assert.True(t, result.Success)
	assert.True(t, result.Conformant)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, filepath.Join(dir, "out", "result_pain_001_001_03.xml"), result.OutputFile)
	assert.Equal(t, 2, result.Stats.RowsLoaded)
	assert.Equal(t, 2, result.Stats.Transactions)
	assert.Equal(t, "750.75", result.Stats.CtrlSum)

	root := readXML(t, result.OutputFile)
	assert.Equal(t, "2", xpath(t, root, "/Document/CstmrCdtTrfInitn/GrpHdr/NbOfTxs"))
	assert.Equal(t, "750.75", xpath(t, root, "/Document/CstmrCdtTrfInitn/GrpHdr/CtrlSum"))
	assert.Equal(t, "Globex", xpath(t, root, "/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf[2]/Cdtr/Nm"))

	count, err := testutil.GatherAndCount(reg, "pain001_conversions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunDefaultOutputLocation(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())
	outDir := filepath.Join(dir, "output")

	result := newConverter(t, Options{OutputDir: outDir}).Run(context.Background(), Request{Version: v03, DataPath: data})

	require.NoError(t, result.Error)
	assert.Equal(t, filepath.Join(outDir, "payments_pain_001_001_03.xml"), result.OutputFile)
	assert.FileExists(t, result.OutputFile)
	assert.False(t, result.Conformant)
}

func TestRunUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{
		Version:  "pain.001.001.99",
		DataPath: filepath.Join(dir, "absent.csv"),
	})

	assert.True(t, errors.Is(result.Error, types.ErrUnsupportedVersion))
	assert.False(t, result.Success)
	assert.Empty(t, result.OutputFile)
}

func TestRunMissingInputs(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())
	c := newConverter(t, Options{OutputDir: dir})

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"template", Request{Version: v03, DataPath: data, TemplatePath: filepath.Join(dir, "t.tmpl")}, "template '"},
		{"schema", Request{Version: v03, DataPath: data, SchemaPath: filepath.Join(dir, "s.xsd")}, "schema '"},
		{"data", Request{Version: v03, DataPath: filepath.Join(dir, "d.csv")}, "data '"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Run(context.Background(), tt.req)
			require.Error(t, result.Error)
			assert.True(t, errors.Is(result.Error, types.ErrMissingInput))
			assert.Contains(t, result.Error.Error(), tt.want)
			assert.Contains(t, result.Error.Error(), "' does not exist")
		})
	}
}

func TestRunValidationFailure(t *testing.T) {
	dir := t.TempDir()
	bad := secondRow()
	bad[16] = "abc"
	data := writeCSV(t, dir, headerRow("2"), bad)

	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data})

	assert.True(t, errors.Is(result.Error, types.ErrDataValidation))
	assert.Contains(t, result.Error.Error(), "row 2")
	assert.Empty(t, result.OutputFile)
}

func TestRunEmptyInput(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir)

	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data})

	assert.True(t, errors.Is(result.Error, types.ErrDataValidation))
	assert.True(t, errors.Is(result.Error, types.ErrEmptyInput))
}

func TestRunDeclaredCountTooHigh(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("5"), secondRow())

	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data})
	assert.True(t, errors.Is(result.Error, types.ErrAggregateComputation))

	profile := config.DefaultProfile(v03)
	profile.CountPolicy = "clamp"
	result = newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data, Profile: profile})
	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.Stats.Transactions)
}

func TestRunNonConformantKeepsArtifact(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())
	schema := writeSchema(t, dir, "pain.001.001.09")

	logger, hook := test.NewNullLogger()
	c := newConverter(t, Options{OutputDir: dir, Checker: conformance.NewSchemaChecker("", logger), Logger: logger})
	result := c.Run(context.Background(), Request{Version: v03, DataPath: data, SchemaPath: schema})

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.False(t, result.Conformant)
	assert.True(t, errors.Is(result.ConformanceError, types.ErrConformance))
	assert.False(t, IsFatal(result.ConformanceError))
	assert.FileExists(t, result.OutputFile)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Artifact is not conformant" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRunWithProfileTransformations(t *testing.T) {
	dir := t.TempDir()
	first := headerRow("2")
	first[16] = `"500,5"`
	first[17] = ""
	second := secondRow()
	second[20] = "FR14 2004 1010 0505 0001 3M02 606"
	data := writeCSV(t, dir, first, second)

	profile := config.DefaultProfile(v03)
	profile.StaticFields = []config.StaticField{{Column: "currency", Value: "CHF", Rows: "header"}}
	profile.TransformationRules = []config.TransformationRule{
		{Field: "payment_amount", Actions: []config.TransformationAction{{Type: "format_number", Value: "2"}}},
		{Field: "creditor_account_IBAN", Actions: []config.TransformationAction{{Type: "remove_spaces"}}},
	}

	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data, Profile: profile})
	require.NoError(t, result.Error)

	root := readXML(t, result.OutputFile)
	assert.Equal(t, "500.50", xpath(t, root, "/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf[1]/Amt/InstdAmt"))
	assert.Equal(t, "CHF", xpath(t, root, "/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf[1]/Amt/InstdAmt/@Ccy"))
	assert.Equal(t, "FR1420041010050500013M02606", xpath(t, root, "/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf[2]/CdtrAcct/Id/IBAN"))
}

func TestRunExplicitTemplate(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())
	tmpl := filepath.Join(dir, "custom.xml.tmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte(`<Document xmlns="{{.namespace}}"><N>{{.nb_of_txs}}</N><S>{{.ctrl_sum}}</S></Document>`), 0644))

	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data, TemplatePath: tmpl})
	require.NoError(t, result.Error)

	out, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.001.001.03"><N>2</N><S>750.75</S></Document>`, string(out))
}

func TestRunXLSXInput(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	for i, row := range [][]string{columns, headerRow("2"), secondRow()} {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &cells))
	}
	data := filepath.Join(dir, "payments.xlsx")
	require.NoError(t, f.SaveAs(data))
	require.NoError(t, f.Close())

	result := newConverter(t, Options{OutputDir: dir}).Run(context.Background(), Request{Version: v03, DataPath: data})
	require.NoError(t, result.Error)
	assert.Equal(t, "750.75", result.Stats.CtrlSum)
}

func TestRunPublishesArtifact(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())

	store := new(mocks.MockStorage)
	store.On("Put", mock.Anything, "pain001/payments_pain_001_001_03.xml", mock.Anything,
		mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == storage.XMLContentType && opt.Metadata["version"] == v03 && opt.Metadata["run-id"] != ""
		})).
		Return(func(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
			_, _ = io.Copy(io.Discard, r)
			return storage.ObjectInfo{Key: key}
		}, nil)

	c := newConverter(t, Options{OutputDir: dir, Storage: store, StoragePrefix: "pain001"})
	result := c.Run(context.Background(), Request{Version: v03, DataPath: data})

	require.NoError(t, result.Error)
	assert.Equal(t, "pain001/payments_pain_001_001_03.xml", result.ObjectKey)
	store.AssertExpectations(t)
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, headerRow("2"), secondRow())

	store := new(mocks.MockStorage)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("connection refused"))

	result := newConverter(t, Options{OutputDir: dir, Storage: store}).Run(context.Background(), Request{Version: v03, DataPath: data})

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Empty(t, result.ObjectKey)
}

func TestValidateOnly(t *testing.T) {
	dir := t.TempDir()
	bad := headerRow("2")
	bad[7] = "maybe"
	data := writeCSV(t, dir, bad, secondRow())

	report, err := newConverter(t, Options{}).Validate(context.Background(), Request{Version: v03, DataPath: data})
	require.NoError(t, err)

	assert.False(t, report.Valid)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 1, report.Rows[0].Row)
	assert.Equal(t, []string{"batch_booking"}, report.Rows[0].InvalidColumns())

	_, err = newConverter(t, Options{}).Validate(context.Background(), Request{Version: "pain.001.001.02", DataPath: data})
	assert.True(t, errors.Is(err, types.ErrUnsupportedVersion))
}
