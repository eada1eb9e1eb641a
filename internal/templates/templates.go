// Package templates renders the skeleton phase documents written into a new
// feature folder.
//
// Templates are embedded at build time and parsed once. Each phase has one
// document; type-specific sections (bug reproduction steps, verification)
// are switched on the Type field rather than kept in separate files.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

//go:embed files/*.md.tmpl
var files embed.FS

// Template names, one per phase document.
const (
	Planning       = "planning.md.tmpl"
	Refinement     = "refinement.md.tmpl"
	Implementation = "implementation.md.tmpl"
	Testing        = "testing.md.tmpl"
)

// ForPhase returns the template that renders the document of phase p.
func ForPhase(p ledger.Phase) (string, bool) {
	switch p {
	case ledger.PhasePlanning:
		return Planning, true
	case ledger.PhaseRefinement:
		return Refinement, true
	case ledger.PhaseImplementation:
		return Implementation, true
	case ledger.PhaseTesting:
		return Testing, true
	}
	return "", false
}

// FeatureData is the input to every template.
type FeatureData struct {
	ID          string
	Title       string
	Type        ledger.FeatureType
	ExternalID  string
	Description string
	Created     string
}

// NewFeatureData builds template input from a ledger record.
func NewFeatureData(f *ledger.Feature) FeatureData {
	return FeatureData{
		ID:          f.ID,
		Title:       f.Title,
		Type:        f.Type,
		ExternalID:  f.ExternalID,
		Description: f.Description,
		Created:     f.CreatedAt.Format("2006-01-02"),
	}
}

// Renderer renders a named template with data.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// EmbedRenderer renders the embedded templates.
type EmbedRenderer struct {
	tmpl *template.Template
}

var _ Renderer = (*EmbedRenderer)(nil)

// NewRenderer parses every embedded template.
func NewRenderer() (*EmbedRenderer, error) {
	tmpl, err := template.New("").Option("missingkey=error").ParseFS(files, "files/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &EmbedRenderer{tmpl: tmpl}, nil
}

// Render executes the named template.
func (r *EmbedRenderer) Render(name string, data any) (string, error) {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
