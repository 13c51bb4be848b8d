// Package schemas holds the JSON Schemas for the CLI's input and output documents.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names
const (
	Comments      = "comments.schema.json"
	InsightResult = "insight_result.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the raw content of an embedded schema
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("schema %s not found: %w", name, err)
	}
	return data, nil
}

// Names lists the embedded schemas
func Names() []string {
	return []string{Comments, InsightResult}
}
