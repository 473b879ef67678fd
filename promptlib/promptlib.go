package promptlib

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Library holds the parsed set of prompt templates.
type Library struct {
	tmpl *template.Template
}

// New parses every embedded template asset. It panics only at package
// init via Default — callers constructing their own Library get the
// error back.
func New() (*Library, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("promptlib: parse embedded templates: %w", err)
	}
	return &Library{tmpl: tmpl}, nil
}

// Render executes the named template (its base filename without the
// .tmpl extension) against data and returns the resulting prompt text.
func (l *Library) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := l.tmpl.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("promptlib: render %q: %w", name, err)
	}
	return buf.String(), nil
}

// Default is the process-wide library every component renders prompts
// through. Template assets are static and compiled in, so parse failure
// here indicates a packaging defect, not a runtime condition callers
// should need to handle.
var Default = mustNew()

func mustNew() *Library {
	lib, err := New()
	if err != nil {
		panic(err)
	}
	return lib
}

// Render renders a template from the Default library.
func Render(name string, data any) (string, error) {
	return Default.Render(name, data)
}
