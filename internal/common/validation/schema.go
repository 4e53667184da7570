package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schemas for the backend payloads the send pipeline depends on. Only the
// fields the pipeline reads are constrained.
const (
	TemplateSchema = `{
  "type": "object",
  "required": ["id", "template_type", "content", "version"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "version": {"type": "integer", "minimum": 1},
    "template_type": {"type": "string", "enum": ["email", "sms", "letter"]},
    "content": {"type": "string"},
    "subject": {"type": ["string", "null"]},
    "reply_to": {"type": ["string", "null"]},
    "postage": {"type": ["string", "null"]}
  }
}`

	ServiceSchema = `{
  "type": "object",
  "required": ["id", "restricted", "permissions", "message_limit"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "restricted": {"type": "boolean"},
    "permissions": {"type": "array", "items": {"type": "string"}},
    "message_limit": {"type": "integer", "minimum": 0}
  }
}`

	JobSchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "notification_count": {"type": "integer", "minimum": 0}
  }
}`
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var compiled = map[string]*gojsonschema.Schema{}

func init() {
	for name, src := range map[string]string{
		"template": TemplateSchema,
		"service":  ServiceSchema,
		"job":      JobSchema,
	} {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("invalid %s schema: %v", name, err))
		}
		compiled[name] = s
	}
}

// ValidateDocument checks raw JSON against one of the named schemas:
// "template", "service" or "job".
func ValidateDocument(name string, raw []byte) (*ValidationResult, error) {
	schema, ok := compiled[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

// ValidateWithSchema validates a Go value against an ad hoc schema.
func ValidateWithSchema(schema map[string]interface{}, data interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
