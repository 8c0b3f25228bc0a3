package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// schemaFor derives a JSON schema from a typed args struct, so the struct
// stays the single source of truth for tools with larger parameter sets.
func schemaFor[T any]() map[string]any {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}
	var zero T
	schema := r.Reflect(&zero)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
