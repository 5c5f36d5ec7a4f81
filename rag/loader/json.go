package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/basalt-ai/basalt/schema"
)

// JSONLoader reads a JSON file. The value at jqPath (or the document
// root, if unset) becomes the set of records: an array yields one
// Document per element, any other value yields a single Document.
type JSONLoader struct {
	contentKey string
	jqPath     string
}

// JSONOption configures a JSONLoader.
type JSONOption func(*JSONLoader)

// WithContentKey names the object field that becomes Document.Content.
// Unset, Content is the JSON encoding of the whole record.
func WithContentKey(key string) JSONOption {
	return func(l *JSONLoader) { l.contentKey = key }
}

// WithJQPath selects a nested value to load records from, addressed as a
// dot-separated path of object keys (e.g. "data.items").
func WithJQPath(path string) JSONOption {
	return func(l *JSONLoader) { l.jqPath = path }
}

// NewJSONLoader returns a JSONLoader configured by opts.
func NewJSONLoader(opts ...JSONOption) *JSONLoader {
	l := &JSONLoader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *JSONLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("loader: invalid JSON in %s: %w", path, err)
	}

	value := root
	if l.jqPath != "" {
		value, err = walkPath(root, l.jqPath)
		if err != nil {
			return nil, err
		}
	}

	var records []any
	if arr, ok := value.([]any); ok {
		records = arr
	} else {
		records = []any{value}
	}

	docs := make([]schema.Document, 0, len(records))
	for i, rec := range records {
		content, metadata := l.renderRecord(rec)
		docs = append(docs, schema.Document{
			ID:       fmt.Sprintf("%s#%d", path, i),
			Content:  content,
			Metadata: metadata,
		})
	}
	return docs, nil
}

func (l *JSONLoader) renderRecord(rec any) (string, map[string]any) {
	obj, isObj := rec.(map[string]any)
	if l.contentKey != "" && isObj {
		if v, ok := obj[l.contentKey]; ok {
			if s, ok := v.(string); ok {
				return s, obj
			}
			b, _ := json.Marshal(v)
			return string(b), obj
		}
	}
	if isObj {
		b, _ := json.Marshal(rec)
		return string(b), obj
	}
	b, _ := json.Marshal(rec)
	return string(b), nil
}

// walkPath descends into root following path's dot-separated keys,
// returning an error as soon as a key is missing or the current value
// isn't an object.
func walkPath(root any, path string) (any, error) {
	cur := root
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("loader: path %q: %q is not an object", path, key)
		}
		v, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("loader: path %q: key %q not found", path, key)
		}
		cur = v
	}
	return cur, nil
}

var _ Loader = (*JSONLoader)(nil)
