package prompt

import "github.com/basalt-ai/basalt/schema"

// PromptManager resolves named, versioned templates and renders them into
// a message list. Implementations back this with a file directory, an
// object store, or an in-memory map; see prompt/providers for the bundled
// file-backed implementation.
type PromptManager interface {
	// Get returns the template registered under name at version. An
	// empty version resolves to the latest registered version.
	Get(name, version string) (*Template, error)

	// Render resolves the latest version of name and renders it with
	// vars, wrapping the result in a single system message.
	Render(name string, vars map[string]any) ([]schema.Message, error)

	// List returns metadata for every registered template version.
	List() []TemplateInfo
}

// TemplateInfo is the metadata-only view of a Template returned by List.
type TemplateInfo struct {
	Name     string
	Version  string
	Metadata map[string]any
}
