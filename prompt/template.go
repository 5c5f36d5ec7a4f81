// Package prompt provides the prompt/template engine: named, versioned
// Jinja-compatible templates, a registry contract for resolving them, and a
// slot-ordered Builder for assembling a final message list.
package prompt

import (
	"fmt"
	"regexp"

	"github.com/basalt-ai/basalt/core"
	"github.com/nikolalohinski/gonja"
)

// simpleVarRef matches a bare `{{ name }}` substitution (no filters, no
// dotted lookups) so Render can check it was bound before handing the
// template to gonja.
var simpleVarRef = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// forLoopVar matches the loop variable introduced by `{% for x in ... %}`,
// which simpleVarRef would otherwise flag as an unbound reference.
var forLoopVar = regexp.MustCompile(`\{%\s*for\s+([A-Za-z_][A-Za-z0-9_]*)\s+in\s+`)

// Template is a named, optionally versioned prompt body. Content is
// rendered with a Jinja-compatible subset (github.com/nikolalohinski/gonja):
// {{ expr }} substitution, {% for %}/{% endfor %}, {% if %}/{% endif %},
// and the `|` filter pipe.
type Template struct {
	Name      string
	Version   string
	Content   string
	Variables map[string]string
	Metadata  map[string]any
}

// Validate checks that the template is well-formed: non-empty name and
// content, and parseable Content.
func (t Template) Validate() error {
	if t.Name == "" {
		return core.NewError("prompt.validate", core.ErrInvalidInput, "name is required", nil)
	}
	if t.Content == "" {
		return core.NewError("prompt.validate", core.ErrInvalidInput, "content is required", nil)
	}
	if _, err := gonja.FromString(t.Content); err != nil {
		return core.NewError("prompt.validate", core.ErrTemplateRender, "parse error", err)
	}
	return nil
}

// Render evaluates Content against vars, falling back to Variables for any
// key vars does not supply. It returns a RenderError if Content fails to
// parse or evaluate, or a MissingVariable error if a plain `{{ name }}`
// reference is bound by neither vars nor Variables.
func (t Template) Render(vars map[string]any) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	if err := t.checkRequiredVariables(vars); err != nil {
		return "", err
	}

	tpl, err := gonja.FromString(t.Content)
	if err != nil {
		return "", core.NewError("prompt.render", core.ErrTemplateRender, "parse error", err)
	}

	ctx := gonja.Context{}
	for k, v := range t.Variables {
		ctx[k] = v
	}
	for k, v := range vars {
		ctx[k] = v
	}

	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", core.NewError("prompt.render", core.ErrTemplateRender, "render error", err)
	}
	return out, nil
}

// checkRequiredVariables reports a MissingVariable error for the first
// plain `{{ name }}` reference in Content that is bound by neither vars,
// Variables' defaults, nor an enclosing `{% for name in ... %}` loop.
func (t Template) checkRequiredVariables(vars map[string]any) error {
	bound := make(map[string]bool)
	for _, m := range forLoopVar.FindAllStringSubmatch(t.Content, -1) {
		bound[m[1]] = true
	}
	for _, m := range simpleVarRef.FindAllStringSubmatch(t.Content, -1) {
		name := m[1]
		if bound[name] {
			continue
		}
		if _, ok := vars[name]; ok {
			continue
		}
		if _, ok := t.Variables[name]; ok {
			continue
		}
		return core.NewError("prompt.render", core.ErrMissingVariable, fmt.Sprintf("missing required variable %q", name), nil)
	}
	return nil
}
