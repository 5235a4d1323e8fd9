// Package template renders instruction strings against the variables set
// during a run.
//
// Rendering goes through a pluggable Engine. The default "jinja" engine
// understands the {{ name }} and {% if %} syntax scenario files are written
// in; the "go" engine uses text/template.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	gotemplate "text/template"

	"github.com/flosch/pongo2/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrTemplate is returned when a template fails to parse or execute.
var ErrTemplate = errors.New("template error")

// Engine names accepted by NewEngine.
const (
	EngineJinja = "jinja"
	EngineGo    = "go"
)

// Engine renders a template string with the given variable bindings.
type Engine interface {
	Render(tmpl string, vars map[string]any) (string, error)
}

// NewEngine returns the engine registered under name. An empty name selects
// the jinja engine.
func NewEngine(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineJinja:
		return NewJinja(), nil
	case EngineGo:
		return NewGo(), nil
	default:
		return nil, fmt.Errorf("unknown template engine %q (want %s or %s)", name, EngineJinja, EngineGo)
	}
}

// isLiteral reports whether s contains no template markup.
func isLiteral(s string) bool {
	return !strings.Contains(s, "{{") && !strings.Contains(s, "{%") && !strings.Contains(s, "{#")
}

// Jinja renders Jinja-style templates with pongo2. Compiled templates are
// cached; a Jinja is safe for concurrent use.
type Jinja struct {
	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

func NewJinja() *Jinja {
	return &Jinja{cache: make(map[string]*pongo2.Template)}
}

func (j *Jinja) compile(tmpl string) (*pongo2.Template, error) {
	j.mu.RLock()
	tpl, ok := j.cache[tmpl]
	j.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := pongo2.FromString(tmpl)
	if err != nil {
		return nil, err
	}
	j.mu.Lock()
	j.cache[tmpl] = tpl
	j.mu.Unlock()
	return tpl, nil
}

func (j *Jinja) Render(tmpl string, vars map[string]any) (string, error) {
	if isLiteral(tmpl) {
		return tmpl, nil
	}
	tpl, err := j.compile(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: parse %q: %v", ErrTemplate, tmpl, err)
	}
	out, err := tpl.Execute(jinjaContext(vars))
	if err != nil {
		return "", fmt.Errorf("%w: render %q: %v", ErrTemplate, tmpl, err)
	}
	return out, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// jinjaContext drops variables whose names cannot appear in a template;
// pongo2 rejects the whole context otherwise.
func jinjaContext(vars map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(vars))
	for k, v := range vars {
		if identifier.MatchString(k) {
			ctx[k] = v
		}
	}
	return ctx
}

// Go renders text/template templates. Referencing a variable that is not
// set is an error, unlike the jinja engine where it renders empty.
type Go struct {
	mu    sync.RWMutex
	cache map[string]*gotemplate.Template
	funcs gotemplate.FuncMap
}

func NewGo() *Go {
	// Casers keep state, so each call gets its own.
	return &Go{
		cache: make(map[string]*gotemplate.Template),
		funcs: gotemplate.FuncMap{
			"title": func(s string) string { return cases.Title(language.English).String(s) },
			"upper": func(s string) string { return cases.Upper(language.English).String(s) },
			"lower": func(s string) string { return cases.Lower(language.English).String(s) },
		},
	}
}

func (g *Go) compile(tmpl string) (*gotemplate.Template, error) {
	g.mu.RLock()
	tpl, ok := g.cache[tmpl]
	g.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := gotemplate.New("instruction").Funcs(g.funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.cache[tmpl] = tpl
	g.mu.Unlock()
	return tpl, nil
}

func (g *Go) Render(tmpl string, vars map[string]any) (string, error) {
	if isLiteral(tmpl) {
		return tmpl, nil
	}
	tpl, err := g.compile(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: parse %q: %v", ErrTemplate, tmpl, err)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("%w: render %q: %v", ErrTemplate, tmpl, err)
	}
	return sb.String(), nil
}
