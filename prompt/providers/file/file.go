// Package file implements prompt.PromptManager backed by a directory of
// JSON-serialized prompt.Template files, one template version per file.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/basalt-ai/basalt/core"
	"github.com/basalt-ai/basalt/prompt"
	"github.com/basalt-ai/basalt/schema"
)

// FileManager loads every *.json file in a directory at construction time,
// validating each as a prompt.Template, and serves lookups from the
// resulting in-memory index. It does not watch the directory for changes.
type FileManager struct {
	mu        sync.RWMutex
	dir       string
	templates map[string][]*prompt.Template
}

var _ prompt.PromptManager = (*FileManager)(nil)

// NewFileManager loads and validates every template in dir.
func NewFileManager(dir string) (*FileManager, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %q: %w", dir, err)
	}

	templates := make(map[string][]*prompt.Template)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}

		var tmpl prompt.Template
		if err := json.Unmarshal(data, &tmpl); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}

		templates[tmpl.Name] = append(templates[tmpl.Name], &tmpl)
	}

	return &FileManager{dir: dir, templates: templates}, nil
}

// Get returns the template registered under name at version, or the
// lexicographically highest version when version is empty.
func (fm *FileManager) Get(name, version string) (*prompt.Template, error) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	versions, ok := fm.templates[name]
	if !ok || len(versions) == 0 {
		return nil, core.NewError("file.Get", core.ErrNotFound, fmt.Sprintf("template %q not found", name), nil)
	}

	if version == "" {
		latest := versions[0]
		for _, t := range versions[1:] {
			if t.Version > latest.Version {
				latest = t
			}
		}
		return latest, nil
	}

	for _, t := range versions {
		if t.Version == version {
			return t, nil
		}
	}
	return nil, core.NewError("file.Get", core.ErrNotFound, fmt.Sprintf("template %q version %q not found", name, version), nil)
}

// Render resolves the latest version of name and renders it into a single
// system message.
func (fm *FileManager) Render(name string, vars map[string]any) ([]schema.Message, error) {
	tmpl, err := fm.Get(name, "")
	if err != nil {
		return nil, err
	}
	rendered, err := tmpl.Render(vars)
	if err != nil {
		return nil, err
	}
	return []schema.Message{schema.NewSystemMessage(rendered)}, nil
}

// List returns every template version, ordered by name ascending then
// version descending.
func (fm *FileManager) List() []prompt.TemplateInfo {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	names := make([]string, 0, len(fm.templates))
	for name := range fm.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var infos []prompt.TemplateInfo
	for _, name := range names {
		versions := append([]*prompt.Template(nil), fm.templates[name]...)
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].Version > versions[j].Version
		})
		for _, t := range versions {
			infos = append(infos, prompt.TemplateInfo{
				Name:     t.Name,
				Version:  t.Version,
				Metadata: t.Metadata,
			})
		}
	}
	return infos
}
