// =============================================================================
// pain.001 File Generator - Render Dispatcher
// =============================================================================
//
// This module hands a document model to the template renderer, checks that
// the result is well-formed XML and writes the artifact.
//
// DOCUMENT SHAPE:
//
//   <Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.001.001.NN">
//     <CstmrCdtTrfInitn>
//       <GrpHdr>                 <!-- MsgId, CreDtTm, NbOfTxs, CtrlSum, InitgPty -->
//       <PmtInf>                 <!-- debtor, account, agent, execution date -->
//         <CdtTrfTxInf>          <!-- one per transaction, input order -->
//         <CdtTrfTxInf>
//       </PmtInf>
//     </CstmrCdtTrfInitn>
//   </Document>
//
// CUSTOMIZATION:
//   - Place <version>.xml.tmpl files in templates_dir to replace a built-in template
//   - Pass --template to render one conversion with an explicit file
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/xmlpath.v2"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// Dispatcher renders document models through a Renderer.
type Dispatcher struct {
	renderer Renderer
}

// NewDispatcher creates a dispatcher over the given renderer.
func NewDispatcher(renderer Renderer) *Dispatcher {
	return &Dispatcher{renderer: renderer}
}

// Render flattens the model, renders it and checks well-formedness.
//
// PARAMETERS:
//   - model: The document model; it is not modified.
//   - templateID: The template to render.
//
// RETURNS:
//   - The rendered XML.
//   - A TemplateRender error wrapping the cause when rendering fails or the
//     output is not well-formed.
func (d *Dispatcher) Render(model *types.DocumentModel, templateID string) ([]byte, error) {
	out, err := d.renderer.Render(templateID, model.Flatten())
	if err != nil {
		if types.KindOf(err) == types.KindUnknown {
			return nil, types.WrapError(types.KindTemplateRender, err, "failed to render %s", templateID)
		}
		return nil, err
	}

	if err := CheckWellFormed(out); err != nil {
		return nil, err
	}

	return out, nil
}

// CheckWellFormed parses data as XML.
func CheckWellFormed(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.NewError(types.KindTemplateRender, "rendered output is empty")
	}
	if _, err := xmlpath.Parse(bytes.NewReader(data)); err != nil {
		return types.WrapError(types.KindTemplateRender, err, "rendered output is not well-formed XML")
	}
	return nil
}

// WriteArtifact writes data to path, creating the parent directory.
func WriteArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
