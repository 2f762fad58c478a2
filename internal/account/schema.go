package account

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/kaptinlin/jsonschema"
)

//go:embed preferences.schema.json
var preferencesSchemaJSON []byte

var preferencesSchema = mustCompile(preferencesSchemaJSON)

func mustCompile(data []byte) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("compile preferences schema: %v", err))
	}
	return schema
}

// FieldErrors maps a field path to what is wrong with it.
type FieldErrors map[string]string

// ParsePreferences validates a raw preferences document and decodes it.
// A non-nil FieldErrors means the document was well-formed JSON but invalid.
func ParsePreferences(raw []byte) (models.Preferences, FieldErrors, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Preferences{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	result := preferencesSchema.Validate(doc)
	if !result.IsValid() {
		fields := FieldErrors{}
		for field, evalErr := range result.Errors {
			fields[field] = evalErr.Error()
		}
		return models.Preferences{}, fields, nil
	}

	var prefs models.Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return models.Preferences{}, nil, fmt.Errorf("invalid preferences: %w", err)
	}

	if prefs.Timezone != "" {
		if _, err := time.LoadLocation(prefs.Timezone); err != nil || prefs.Timezone == "Local" {
			return models.Preferences{}, FieldErrors{"timezone": "unknown IANA timezone"}, nil
		}
	}

	return prefs, nil, nil
}
