package ws

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// submitSchema pins down the submit message shape: a known motion kind,
// a finite 2-vector direction, a non-negative magnitude and a known
// priority name.
const submitSchema = `{
	"type": "object",
	"required": ["type", "entityId", "motion"],
	"properties": {
		"type": {"const": "submit"},
		"entityId": {"type": "integer", "minimum": 0},
		"motion": {"enum": ["walk", "dash", "jump", "stop", "impulse"]},
		"direction": {
			"type": "array",
			"items": {"type": "number"},
			"minItems": 2,
			"maxItems": 2
		},
		"magnitude": {"type": "number", "minimum": 0},
		"priority": {"enum": ["low", "normal", "high", "critical"]}
	},
	"additionalProperties": false
}`

var compiledSubmitSchema = jsonschema.MustCompileString("submit.json", submitSchema)

func validateSubmit(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := compiledSubmitSchema.Validate(v); err != nil {
		return err
	}
	return nil
}
