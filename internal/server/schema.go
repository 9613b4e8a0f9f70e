package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// paymentCreateSchema guards the payment creation contract before any
// binding happens, so schema violations produce field-level messages
// instead of bind errors.
const paymentCreateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "PaymentCreateRequest",
	"type": "object",
	"properties": {
		"amount": { "type": "integer", "minimum": 1 },
		"currency": { "type": "string", "minLength": 3, "maxLength": 3 },
		"confirm": { "type": "boolean" },
		"capture_method": { "enum": ["automatic", "manual"] },
		"customer_id": { "type": "string" },
		"email": { "type": "string" },
		"description": { "type": "string" },
		"return_url": { "type": "string" },
		"payment_method": {
			"type": "object",
			"properties": {
				"type": { "type": "string", "minLength": 1 }
			},
			"required": ["type"]
		}
	},
	"required": ["amount", "currency"]
}`

// ContractValidator validates request bodies against a compiled JSON
// schema.
type ContractValidator struct {
	schema *gojsonschema.Schema
}

func NewContractValidator(schemaJSON string) (*ContractValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compiling request schema: %w", err)
	}
	return &ContractValidator{schema: schema}, nil
}

// Validate returns the list of violations, empty when the body conforms.
func (v *ContractValidator) Validate(body []byte) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}

// FormatViolations joins violations into one user-facing message.
func FormatViolations(violations []string) string {
	return "request validation failed: " + strings.Join(violations, "; ")
}
