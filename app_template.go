package webrouter

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateRenderer produces the bytes of template name found under dir, executed with
// data. Missing templates and data/template mismatches are reported as errors.
type TemplateRenderer interface {
	Render(dir string, name string, data any) ([]byte, error)
}

// HTMLTemplates renders html/template files named <dir>/<name><Extension>. Parsed
// templates are cached per file unless DisableCache is set, in which case every
// render re-reads the file from disk.
type HTMLTemplates struct {
	Extension    string
	DisableCache bool
	Funcs        template.FuncMap

	cache sync.Map // file path -> *template.Template
}

// NewHTMLTemplates creates a renderer with the default helper functions: title,
// upper and lower, all Unicode-aware.
func NewHTMLTemplates(extension string, disableCache bool) *HTMLTemplates {
	if extension == "" {
		extension = ".html"
	}
	return &HTMLTemplates{
		Extension:    extension,
		DisableCache: disableCache,
		Funcs:        defaultTemplateFuncs(),
	}
}

func defaultTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"title": func(s string) string { return cases.Title(language.Und).String(s) },
		"upper": func(s string) string { return cases.Upper(language.Und).String(s) },
		"lower": func(s string) string { return cases.Lower(language.Und).String(s) },
	}
}

func (h *HTMLTemplates) Render(dir string, name string, data any) ([]byte, error) {
	tmpl, err := h.lookup(filepath.Join(dir, name+h.Extension))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (h *HTMLTemplates) lookup(file string) (*template.Template, error) {
	if !h.DisableCache {
		if cached, ok := h.cache.Load(file); ok {
			return cached.(*template.Template), nil
		}
	}
	tmpl, err := template.New(filepath.Base(file)).Funcs(h.Funcs).ParseFiles(file)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if !h.DisableCache {
		h.cache.Store(file, tmpl)
	}
	return tmpl, nil
}
