package agentruntime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/basalt-ai/basalt/core"
)

// parseArgsDedup decodes a tool call's raw JSON argument object into a
// map, keeping the first occurrence of any repeated key rather than the
// last, the way encoding/json's map unmarshal would. It walks the token
// stream with a json.Decoder so every value is still fully decoded (and
// so malformed JSON is still rejected) but a later duplicate key's value
// is parsed and discarded instead of overwriting the first.
func parseArgsDedup(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))

	tok, err := dec.Token()
	if err != nil {
		return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, "invalid JSON", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, "arguments must be a JSON object", nil)
	}

	out := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, "invalid JSON", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, fmt.Sprintf("expected string key, got %v", keyTok), nil)
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, "invalid JSON", err)
		}

		if _, exists := out[key]; !exists {
			out[key] = val
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, "invalid JSON", err)
	}

	// Reject trailing garbage after the closing brace (e.g. a valid
	// object followed by unparsable text).
	if _, err := dec.Token(); err != io.EOF {
		return nil, core.NewError("agentruntime.parse_args", core.ErrJSONArgsInvalid, "unexpected trailing data", err)
	}

	return out, nil
}
