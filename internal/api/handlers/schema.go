package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
)

// createRequestSchema checks the shape of a createRequest argument. Presence
// and content rules are left to the request validator so its messages reach
// the user unchanged.
const createRequestSchema = `{
	"type": "object",
	"properties": {
		"accompanistUid": {"type": "string"},
		"purpose":        {"type": "string"},
		"instrument":     {"type": "string"},
		"repertoire":     {"type": "string"},
		"schedule":       {"type": "string"},
		"location":       {"type": "string"},
		"budgetMin":      {"type": ["integer", "null"]},
		"budgetMax":      {"type": ["integer", "null"]},
		"options": {
			"type": ["object", "null"],
			"properties": {
				"sightReading":     {"type": "boolean"},
				"sameDayRehearsal": {"type": "boolean"},
				"recording":        {"type": "boolean"},
				"provideSheet":     {"type": "boolean"}
			},
			"additionalProperties": false
		},
		"note":         {"type": ["string", "null"]},
		"contactEmail": {"type": "string"}
	},
	"additionalProperties": false
}`

const saveProfileSchema = `{
	"type": "object",
	"properties": {
		"displayName":    {"type": "string"},
		"region":         {"type": "string"},
		"specialties":    {"type": ["array", "null"], "items": {"type": "string"}},
		"purposes":       {"type": ["array", "null"], "items": {"type": "string"}},
		"priceMin":       {"type": "integer", "minimum": 0},
		"priceMax":       {"type": "integer", "minimum": 0},
		"bio":            {"type": "string"},
		"education":      {"type": "string"},
		"experience":     {"type": "string"},
		"portfolioLinks": {"type": ["array", "null"], "items": {"type": "string"}},
		"availableSlots": {"type": "string"},
		"isPublic":       {"type": "boolean"}
	},
	"additionalProperties": false
}`

func mustSchema(raw string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(raw), rs); err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return rs
}

var (
	createRequestArgSchema = mustSchema(createRequestSchema)
	saveProfileArgSchema   = mustSchema(saveProfileSchema)
)

// validateShape returns a readable summary of schema violations, or "" when data conforms.
func validateShape(ctx context.Context, rs *jsonschema.Schema, data []byte) (string, error) {
	verrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return "", err
	}
	if len(verrs) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(verrs))
	for _, ke := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", ke.PropertyPath, ke.Message))
	}
	return strings.Join(parts, "; "), nil
}
