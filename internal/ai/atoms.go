package ai

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// atomsSchema validates one atom object from the backend's JSON payload.
// Anything failing validation is dropped rather than propagated.
const atomsSchemaJSON = `{
	"type": "object",
	"required": ["type", "text"],
	"properties": {
		"type": {"type": "string", "enum": ["insight", "opinion", "lesson", "quote"]},
		"text": {"type": "string", "minLength": 1}
	}
}`

var atomSchema = mustCompileSchema(atomsSchemaJSON)

func mustCompileSchema(raw string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(raw))
	if err != nil {
		panic("invalid atom schema: " + err.Error())
	}
	return schema
}

// atomsEnvelope is the JSON shape requested from every backend.
type atomsEnvelope struct {
	Atoms []json.RawMessage `json:"atoms"`
}

// parseAtoms decodes a backend response into atoms. Unparsable output or an
// empty/missing atoms key yields an empty slice, never an error: callers must
// treat "nothing usable" as a valid, if unfortunate, outcome.
func parseAtoms(raw string) []Atom {
	raw = stripFences(raw)
	if raw == "" {
		return nil
	}

	var envelope atomsEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		slog.Warn("Backend returned unparsable atoms payload", "error", err)
		return nil
	}

	atoms := make([]Atom, 0, len(envelope.Atoms))
	for _, rawAtom := range envelope.Atoms {
		var instance map[string]any
		if err := json.Unmarshal(rawAtom, &instance); err != nil {
			continue
		}
		if result := atomSchema.Validate(instance); !result.IsValid() {
			slog.Debug("Dropping atom failing schema validation")
			continue
		}
		var atom Atom
		if err := json.Unmarshal(rawAtom, &atom); err != nil {
			continue
		}
		atoms = append(atoms, atom)
	}
	return atoms
}

// stripFences removes markdown code fences some backends wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
