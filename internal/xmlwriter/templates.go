package xmlwriter

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

// TemplateSuffix is the file suffix of a template; the rest of the file name is its ID stem.
const TemplateSuffix = ".xml.tmpl"

//go:embed templates/*.xml.tmpl
var embeddedTemplates embed.FS

// Renderer renders a flattened document model with a named template.
type Renderer interface {
	Render(templateID string, data map[string]any) ([]byte, error)
}

// TemplateSet holds one parsed template per ID.
// It is safe for concurrent Render calls once loading has finished.
type TemplateSet struct {
	templates map[string]*template.Template
}

// NewTemplateSet loads the built-in templates, then any *.xml.tmpl files in
// overrideDir, which replace built-ins of the same name. An empty overrideDir
// loads only the built-ins.
func NewTemplateSet(overrideDir string) (*TemplateSet, error) {
	set := &TemplateSet{templates: make(map[string]*template.Template)}

	entries, err := fs.Glob(embeddedTemplates, "templates/*"+TemplateSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to list built-in templates: %w", err)
	}
	for _, name := range entries {
		text, err := embeddedTemplates.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in template %s: %w", name, err)
		}
		if err := set.add(filepath.Base(name), string(text)); err != nil {
			return nil, err
		}
	}

	if overrideDir == "" {
		return set, nil
	}

	files, err := filepath.Glob(filepath.Join(overrideDir, "*"+TemplateSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %s: %w", overrideDir, err)
	}
	for _, file := range files {
		if err := set.AddFile(filepath.Base(file), file); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// AddFile parses the template at path and registers it under id.
func (s *TemplateSet) AddFile(id, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewError(types.KindMissingInput, "template '%s' does not exist", path)
		}
		return fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return s.add(id, string(text))
}

func (s *TemplateSet) add(id, text string) error {
	tmpl, err := template.New(id).
		Option("missingkey=error").
		Funcs(templateFuncs).
		Parse(text)
	if err != nil {
		return types.WrapError(types.KindTemplateRender, err, "failed to parse template %s", id)
	}
	s.templates[id] = tmpl
	return nil
}

// Has reports whether a template is registered under id.
func (s *TemplateSet) Has(id string) bool {
	_, ok := s.templates[id]
	return ok
}

// IDs lists the registered template IDs.
func (s *TemplateSet) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Render executes the template registered under id.
func (s *TemplateSet) Render(id string, data map[string]any) ([]byte, error) {
	tmpl, ok := s.templates[id]
	if !ok {
		return nil, types.NewError(types.KindTemplateRender, "no template registered as %s", id)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, types.WrapError(types.KindTemplateRender, err, "failed to render %s", id)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// TEMPLATE HELPERS
// =============================================================================

var templateFuncs = template.FuncMap{
	"xml":      escapeXML,
	"datetime": formatDateTime,
	"isodate":  formatDate,
	"bool":     formatBool,
}

// formatDateTime turns a calendar date into a local date-time at midnight.
// Values that already carry a time are returned unchanged.
func formatDateTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.Contains(value, "T") {
		return value
	}
	return value + "T00:00:00"
}

// formatDate keeps the calendar-date part of a date or date-time.
func formatDate(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, 'T'); i > 0 {
		return value[:i]
	}
	return value
}

func formatBool(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
