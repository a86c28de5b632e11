package sheetdef

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"dss/style"
)

// Values is a struct that holds variables we make available for template
// expansion of definition strings.
type Values struct {
	Vars  map[string]string
	Index int // position of a generated class, 0 elsewhere
	Env   style.Env
}

type expander struct {
	funcs template.FuncMap
	cache map[string]*template.Template
}

func newExpander() *expander {
	return &expander{funcs: sprig.FuncMap(), cache: make(map[string]*template.Template)}
}

// expand executes field as a template. Strings without actions are returned
// unchanged.
func (e *expander) expand(field string, values Values) (string, error) {
	if !strings.Contains(field, "{{") {
		return field, nil
	}
	tmpl, ok := e.cache[field]
	if !ok {
		var err error
		tmpl, err = template.New("field").Funcs(e.funcs).Option("missingkey=error").Parse(field)
		if err != nil {
			return "", fmt.Errorf("unable to parse template %q: %w", field, err)
		}
		e.cache[field] = tmpl
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand template %q: %w", field, err)
	}
	return buf.String(), nil
}
