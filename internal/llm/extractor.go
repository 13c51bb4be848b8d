// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "CommentFeatures")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "float", "[\"string\"]"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// RenderSchemaBlock renders the JSON skeleton the LLM is asked to return.
func RenderSchemaBlock(schema ExtractionSchema) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// CommentFeaturesSchema returns the extraction schema for social comment
// engagement features. Numeric fields are probabilities in [0.0, 1.0].
func CommentFeaturesSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "CommentFeatures",
		Description: `You analyze a single user comment on a product video or post and estimate engagement features.
Every numeric value is a probability between 0.0 and 1.0.`,
		Fields: []SchemaField{
			{Name: "purchase_intent", Type: "float", Description: "Is the user interested in buying?", Required: true},
			{Name: "reply_inducing", Type: "float", Description: "Does this provoke a reply or discussion?", Required: true},
			{Name: "constructive_feedback", Type: "float", Description: "Is this detailed, specific feedback?", Required: true},
			{Name: "sentiment_intensity", Type: "float", Description: "How strong is the emotion, positive or negative?", Required: true},
			{Name: "toxicity", Type: "float", Description: "Is this spam or hate speech?", Required: true},
			{Name: "keywords", Type: "[\"string\"]", Description: "Top 2-3 keywords", Required: false},
			{Name: "topics", Type: "[\"string\"]", Description: "Product aspects discussed (price, design, delivery, ...)", Required: false},
		},
	}
}
