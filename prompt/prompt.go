package prompt

import "strings"

// Prompt is either (a) a literal string or (b) a reference to a named,
// versioned template plus a set of named bindings. It is the thing sent
// to an LLM after rendering, shared by the indexing pipeline's document
// prompts and the agent runtime's turn prompts.
//
// A literal Prompt with no template markers and no attached bindings
// short-circuits on Resolve: it returns verbatim without invoking the
// template engine at all, so plain strings (the overwhelming common
// case) pay no templating cost.
type Prompt struct {
	literal   string
	isLiteral bool

	template string
	version  string

	bindings map[string]any
}

// Literal returns a Prompt that renders to text, templated only if text
// itself contains Jinja markers or bindings are later attached via
// WithBindings.
func Literal(text string) Prompt {
	return Prompt{literal: text, isLiteral: true}
}

// FromTemplate returns a Prompt that resolves name (latest version unless
// WithVersion pins one) against a PromptManager, rendered with bindings.
func FromTemplate(name string, bindings map[string]any) Prompt {
	return Prompt{template: name, bindings: bindings}
}

// WithVersion pins a template-reference Prompt to a specific version. It
// has no effect on a literal Prompt.
func (p Prompt) WithVersion(version string) Prompt {
	p.version = version
	return p
}

// WithBindings attaches additional named bindings, merged over any the
// Prompt already carries (a later call's keys win on conflict).
func (p Prompt) WithBindings(bindings map[string]any) Prompt {
	merged := make(map[string]any, len(p.bindings)+len(bindings))
	for k, v := range p.bindings {
		merged[k] = v
	}
	for k, v := range bindings {
		merged[k] = v
	}
	p.bindings = merged
	return p
}

// IsLiteral reports whether p is a literal string rather than a named
// template reference.
func (p Prompt) IsLiteral() bool { return p.isLiteral }

// hasMarkers reports whether text contains Jinja-style template syntax.
func hasMarkers(text string) bool {
	return strings.Contains(text, "{{") || strings.Contains(text, "{%")
}

// Resolve renders p to its final string. A template-reference Prompt is
// looked up by name/version in mgr and rendered with its bindings; a
// literal Prompt with no markers and no bindings is returned verbatim
// (the hot-path short-circuit), otherwise it is rendered as an inline,
// unnamed template so `{{ }}`/`{% %}` syntax embedded in a literal string
// still works.
func (p Prompt) Resolve(mgr PromptManager) (string, error) {
	if p.isLiteral {
		if !hasMarkers(p.literal) && len(p.bindings) == 0 {
			return p.literal, nil
		}
		tmpl := Template{Name: "literal", Content: p.literal}
		return tmpl.Render(p.bindings)
	}

	tmpl, err := mgr.Get(p.template, p.version)
	if err != nil {
		return "", err
	}
	return tmpl.Render(p.bindings)
}
