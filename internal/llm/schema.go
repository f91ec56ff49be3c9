package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/civicgrid/civicnav/internal/model"
)

// SchemaFor reflects a JSON schema from a Go struct so prompts can pin the
// model to a typed output shape.
func SchemaFor(v any) string {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ParseJSON cleans and unmarshals a JSON object out of a model reply.
// Handles common quirks like surrounding markdown fences or extra prose.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr := response

	start := -1
	end := -1
	for i, c := range jsonStr {
		if c == '{' {
			start = i
			break
		}
	}
	for i := len(jsonStr) - 1; i >= 0; i-- {
		if jsonStr[i] == '}' {
			end = i + 1
			break
		}
	}

	if start == -1 || end == -1 || start >= end {
		return zero, fmt.Errorf("no JSON object found in response")
	}
	jsonStr = jsonStr[start:end]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// Complete runs a schema-constrained completion: the prompt is extended with
// the JSON schema of T, the reply parsed into T, and one repair round-trip
// attempted before giving up with ErrSchemaViolation.
func Complete[T any](ctx context.Context, c Client, prompt string) (T, error) {
	var zero T
	schema := SchemaFor(zero)

	full := fmt.Sprintf(
		"%s\n\nRespond with a single JSON object conforming to this JSON schema:\n%s\nDo not output any other text.",
		prompt, schema,
	)

	response, err := c.Generate(ctx, full)
	if err != nil {
		return zero, err
	}

	result, parseErr := ParseJSON[T](response)
	if parseErr == nil {
		return result, nil
	}

	// One repair attempt: show the model its own reply and the parse error.
	repair := fmt.Sprintf(
		"%s\n\nYour previous reply could not be parsed (%v):\n%s\n\nReturn only the corrected JSON object.",
		full, parseErr, response,
	)
	response, err = c.Generate(ctx, repair)
	if err != nil {
		return zero, err
	}
	result, parseErr = ParseJSON[T](response)
	if parseErr != nil {
		return zero, fmt.Errorf("%w: %v", model.ErrSchemaViolation, parseErr)
	}
	return result, nil
}
