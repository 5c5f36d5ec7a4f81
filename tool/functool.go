package tool

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/basalt-ai/basalt/core"
)

// FuncTool adapts a typed Go function into a Tool, deriving its JSON
// input schema from T's struct tags (`json`, `description`, `required`,
// `default`).
type FuncTool[T any] struct {
	name        string
	description string
	fn          func(ctx context.Context, input T) (*Result, error)
	schema      map[string]any
}

// NewFuncTool builds a FuncTool named name, described by description,
// backed by fn. T must be a struct type.
func NewFuncTool[T any](name, description string, fn func(ctx context.Context, input T) (*Result, error)) *FuncTool[T] {
	var zero T
	return &FuncTool[T]{
		name:        name,
		description: description,
		fn:          fn,
		schema:      schemaFor(reflect.TypeOf(zero)),
	}
}

func (f *FuncTool[T]) Name() string              { return f.name }
func (f *FuncTool[T]) Description() string        { return f.description }
func (f *FuncTool[T]) InputSchema() map[string]any { return f.schema }

func (f *FuncTool[T]) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, core.NewError(f.name, core.ErrJSONArgsInvalid, "marshal tool input", err)
	}
	var typed T
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, core.NewError(f.name, core.ErrJSONArgsInvalid, "unmarshal tool input", err)
	}
	return f.fn(ctx, typed)
}

// schemaFor derives a JSON Schema object from a struct type's fields.
func schemaFor(t reflect.Type) map[string]any {
	props := map[string]any{}
	var required []string

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			name := field.Tag.Get("json")
			if idx := strings.Index(name, ","); idx >= 0 {
				name = name[:idx]
			}
			if name == "-" {
				continue
			}
			if name == "" {
				name = field.Name
			}

			prop := map[string]any{"type": jsonTypeFor(field.Type)}
			if desc := field.Tag.Get("description"); desc != "" {
				prop["description"] = desc
			}
			if def := field.Tag.Get("default"); def != "" {
				prop["default"] = def
			}
			props[name] = prop

			if field.Tag.Get("required") == "true" {
				required = append(required, name)
			}
		}
	}

	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func jsonTypeFor(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}
