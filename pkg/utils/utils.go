// Package utils holds small helpers shared across commands.
package utils

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig reflects a JSON schema from a config struct and
// returns it as an indented JSON string. The struct is expanded in place
// and unknown keys are rejected, matching the simulation config schema.
// Field-level `jsonschema` tags drive titles, descriptions and bounds.
func GetSchemaFromConfig(config any) (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(config)

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
