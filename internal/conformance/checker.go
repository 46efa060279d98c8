// =============================================================================
// pain.001 File Generator - Conformance Checker
// =============================================================================
//
// This module checks a written artifact against the schema of its version.
//
// CHECKS (all run, findings collected):
//   1. The schema's targetNamespace is the version namespace
//   2. The root element is Document in the version namespace
//   3. The group header, payment information and at least one credit
//      transfer transaction are present
//   4. GrpHdr/NbOfTxs and GrpHdr/CtrlSum agree with the transactions
//   5. An optional external validator command accepts the file
//
// A failing report never removes the artifact; the caller decides.
//
// =============================================================================

package conformance

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/xmlpath.v2"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// Checker validates an artifact against a schema.
type Checker interface {
	Check(ctx context.Context, artifactPath, schemaPath, namespace string) (*Report, error)
}

// Report is the outcome of a conformance check.
type Report struct {
	// Conformant is true when no violation was found.
	Conformant bool

	// Violations lists every finding.
	Violations []string
}

// Err returns a non-fatal Conformance error for a failing report, or nil.
func (r *Report) Err() error {
	if r.Conformant {
		return nil
	}
	return &types.ConversionError{
		Kind:    types.KindConformance,
		Message: fmt.Sprintf("%d violation(s)", len(r.Violations)),
		Details: r.Violations,
	}
}

func (r *Report) add(format string, args ...any) {
	r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
}

// =============================================================================
// SCHEMA CHECKER
// =============================================================================

var (
	schemaNamespacePath = xmlpath.MustCompile("/schema/@targetNamespace")
	nbOfTxsPath         = xmlpath.MustCompile("/Document/CstmrCdtTrfInitn/GrpHdr/NbOfTxs")
	ctrlSumPath         = xmlpath.MustCompile("/Document/CstmrCdtTrfInitn/GrpHdr/CtrlSum")
	transactionPath     = xmlpath.MustCompile("/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf")
	instructedAmtPath   = xmlpath.MustCompile("/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf/Amt/InstdAmt")
)

// requiredPaths must each match at least once.
var requiredPaths = []string{
	"/Document/CstmrCdtTrfInitn/GrpHdr/MsgId",
	"/Document/CstmrCdtTrfInitn/GrpHdr/CreDtTm",
	"/Document/CstmrCdtTrfInitn/GrpHdr/NbOfTxs",
	"/Document/CstmrCdtTrfInitn/GrpHdr/InitgPty",
	"/Document/CstmrCdtTrfInitn/PmtInf/PmtInfId",
	"/Document/CstmrCdtTrfInitn/PmtInf/PmtMtd",
	"/Document/CstmrCdtTrfInitn/PmtInf/ReqdExctnDt",
	"/Document/CstmrCdtTrfInitn/PmtInf/Dbtr",
	"/Document/CstmrCdtTrfInitn/PmtInf/DbtrAcct",
	"/Document/CstmrCdtTrfInitn/PmtInf/DbtrAgt",
	"/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf/PmtId/EndToEndId",
	"/Document/CstmrCdtTrfInitn/PmtInf/CdtTrfTxInf/Amt/InstdAmt",
}

var compiledRequired = func() []*xmlpath.Path {
	out := make([]*xmlpath.Path, len(requiredPaths))
	for i, p := range requiredPaths {
		out[i] = xmlpath.MustCompile(p)
	}
	return out
}()

// SchemaChecker is the built-in Checker.
type SchemaChecker struct {
	// Command is an optional external validator, e.g.
	// "xmllint --noout --schema {schema} {file}". Empty disables it.
	Command string

	Logger logrus.FieldLogger
}

// NewSchemaChecker creates a checker with an optional external command.
func NewSchemaChecker(command string, logger logrus.FieldLogger) *SchemaChecker {
	if logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		logger = l
	}
	return &SchemaChecker{Command: strings.TrimSpace(command), Logger: logger}
}

// Check runs every check and returns the collected report.
//
// PARAMETERS:
//   - ctx: Bounds the external validator command.
//   - artifactPath: The written XML file.
//   - schemaPath: The XSD for the version.
//   - namespace: The version namespace.
//
// RETURNS:
//   - The report. The error is reserved for I/O failures reading either file.
func (c *SchemaChecker) Check(ctx context.Context, artifactPath, schemaPath, namespace string) (*Report, error) {
	report := &Report{}
	log := c.Logger.WithFields(logrus.Fields{"file": artifactPath, "schema": schemaPath})

	if err := c.checkSchema(schemaPath, namespace, report); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", artifactPath, err)
	}

	if !checkRoot(data, namespace, report) {
		report.Conformant = false
		return report, nil
	}

	root, err := xmlpath.Parse(bytes.NewReader(data))
	if err != nil {
		report.add("artifact is not well-formed: %v", err)
		return report, nil
	}

	checkRequired(root, report)
	checkAggregates(root, report)

	if c.Command != "" {
		c.runCommand(ctx, artifactPath, schemaPath, report)
	}

	report.Conformant = len(report.Violations) == 0
	if report.Conformant {
		log.Debug("Artifact conforms to schema")
	} else {
		log.WithField("violations", len(report.Violations)).Warn("Artifact failed conformance")
	}
	return report, nil
}

func (c *SchemaChecker) checkSchema(schemaPath, namespace string, report *Report) error {
	f, err := os.Open(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to open schema %s: %w", schemaPath, err)
	}
	defer f.Close()

	root, err := xmlpath.Parse(f)
	if err != nil {
		report.add("schema %s is not well-formed: %v", schemaPath, err)
		return nil
	}

	target, ok := schemaNamespacePath.String(root)
	if !ok {
		report.add("schema %s declares no targetNamespace", schemaPath)
		return nil
	}
	if target != namespace {
		report.add("schema targetNamespace %q does not match %q", target, namespace)
	}
	return nil
}

// checkRoot reads the first start element with namespace information,
// which xmlpath does not expose.
func checkRoot(data []byte, namespace string, report *Report) bool {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			report.add("artifact has no root element: %v", err)
			return false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "Document" {
			report.add("root element is %q, expected Document", start.Name.Local)
		}
		if start.Name.Space != namespace {
			report.add("root namespace %q does not match %q", start.Name.Space, namespace)
		}
		return true
	}
}

func checkRequired(root *xmlpath.Node, report *Report) {
	for i, path := range compiledRequired {
		if !path.Exists(root) {
			report.add("required element %s is missing", requiredPaths[i])
		}
	}
}

func checkAggregates(root *xmlpath.Node, report *Report) {
	count := 0
	iter := transactionPath.Iter(root)
	for iter.Next() {
		count++
	}

	if raw, ok := nbOfTxsPath.String(root); ok {
		declared, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			report.add("GrpHdr/NbOfTxs %q is not an integer", raw)
		case declared != count:
			report.add("GrpHdr/NbOfTxs is %d but %d CdtTrfTxInf present", declared, count)
		}
	}

	sum := decimal.Zero
	amounts := instructedAmtPath.Iter(root)
	for amounts.Next() {
		raw := strings.TrimSpace(amounts.Node().String())
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			report.add("InstdAmt %q is not a decimal", raw)
			return
		}
		sum = sum.Add(amount)
	}

	if raw, ok := ctrlSumPath.String(root); ok {
		declared, err := decimal.NewFromString(strings.TrimSpace(raw))
		switch {
		case err != nil:
			report.add("GrpHdr/CtrlSum %q is not a decimal", raw)
		case !declared.Equal(sum.Round(2)):
			report.add("GrpHdr/CtrlSum is %s but the amounts sum to %s", declared.String(), sum.StringFixed(2))
		}
	}
}

// runCommand substitutes {schema} and {file} in the configured command and runs it.
func (c *SchemaChecker) runCommand(ctx context.Context, artifactPath, schemaPath string, report *Report) {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return
	}
	for i, f := range fields {
		f = strings.ReplaceAll(f, "{schema}", schemaPath)
		fields[i] = strings.ReplaceAll(f, "{file}", artifactPath)
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(output.String())
		if msg == "" {
			msg = err.Error()
		}
		report.add("%s: %s", fields[0], msg)
	}
}
