package schemas_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/comment-insights/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, schemaFile := range schemas.Names() {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(".", schemaFile))
			require.NoError(t, err, "should be able to read schema file")

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &schemaObj), "schema file should be valid JSON: %s", schemaFile)

			_, hasType := schemaObj["type"]
			_, hasSchema := schemaObj["$schema"]
			assert.True(t, hasType && hasSchema, "schema should declare type and $schema")
		})
	}
}

func TestSchemaFiles_Compile(t *testing.T) {
	for _, schemaFile := range schemas.Names() {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := schemas.Load(schemaFile)
			require.NoError(t, err)

			_, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			assert.NoError(t, err)
		})
	}
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	for _, schemaFile := range schemas.Names() {
		embedded, err := schemas.Load(schemaFile)
		require.NoError(t, err)
		onDisk, err := os.ReadFile(schemaFile)
		require.NoError(t, err)
		assert.Equal(t, string(onDisk), string(embedded))
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := schemas.Load("nope.schema.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
