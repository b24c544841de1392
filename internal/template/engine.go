package template

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders named text templates with the sprig function library.
// Parsed templates are cached by name; parsing the same name with a
// different body replaces the cached entry.
type Engine struct {
	mu        sync.RWMutex
	templates map[string]*entry
}

type entry struct {
	source string
	tmpl   *template.Template
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		templates: make(map[string]*entry),
	}
}

// Render executes the template body registered under name against data.
// Missing map keys are an error rather than "<no value>".
func (e *Engine) Render(name, body string, data interface{}) (string, error) {
	tmpl, err := e.parse(name, body)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return buf.String(), nil
}

// MustRender is Render for built-in templates, which are known to be valid.
func (e *Engine) MustRender(name, body string, data interface{}) string {
	out, err := e.Render(name, body, data)
	if err != nil {
		panic(err)
	}
	return out
}

func (e *Engine) parse(name, body string) (*template.Template, error) {
	e.mu.RLock()
	cached, ok := e.templates[name]
	e.mu.RUnlock()
	if ok && cached.source == body {
		return cached.tmpl, nil
	}

	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
	}

	e.mu.Lock()
	e.templates[name] = &entry{source: body, tmpl: tmpl}
	e.mu.Unlock()
	return tmpl, nil
}
