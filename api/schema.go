package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const chatRequestSchemaURL = "chat_request.json"

// chatRequestSchema accepts the OpenAI chat body. Unknown properties such as
// model or temperature are allowed and ignored.
const chatRequestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["messages"],
	"properties": {
		"messages": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["role", "content"],
				"properties": {
					"role": {"enum": ["system", "user", "assistant"]},
					"content": {"type": "string"}
				}
			}
		},
		"location": {"type": "string"},
		"stream": {"type": "boolean"},
		"conversation_id": {"type": "string", "maxLength": 128}
	}
}`

func compileChatRequestSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(chatRequestSchemaURL, strings.NewReader(chatRequestSchema)); err != nil {
		return nil, err
	}
	return c.Compile(chatRequestSchemaURL)
}

// validateJSON checks raw against schema and returns a one-line reason.
func validateJSON(schema *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid request: body is not valid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("invalid request: %s", leafMessage(ve))
		}
		return fmt.Errorf("invalid request: %w", err)
	}

	return nil
}

// leafMessage reports the deepest cause, which names the offending field.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}
