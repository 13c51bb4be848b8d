// Package schemas provides JSON Schema validation functionality for the CLI's input and output documents.
package schemas

import (
	"fmt"
	"strings"

	"github.com/jonathan/comment-insights/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateBytes validates raw JSON against one of the embedded schemas
func ValidateBytes(schemaName string, data []byte) error {
	schemaContent, err := schemas.Load(schemaName)
	if err != nil {
		return &SchemaLoadError{Path: schemaName, Message: "embedded schema missing", Cause: err}
	}
	return validate(schemaName, gojsonschema.NewBytesLoader(schemaContent), gojsonschema.NewBytesLoader(data))
}

// ValidateDocument validates a Go value against one of the embedded schemas.
// The value is marshaled with encoding/json, so struct json tags apply.
func ValidateDocument(schemaName string, doc any) error {
	schemaContent, err := schemas.Load(schemaName)
	if err != nil {
		return &SchemaLoadError{Path: schemaName, Message: "embedded schema missing", Cause: err}
	}
	return validate(schemaName, gojsonschema.NewBytesLoader(schemaContent), gojsonschema.NewGoLoader(doc))
}

func validate(schemaPath string, schemaLoader, documentLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaPath,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
