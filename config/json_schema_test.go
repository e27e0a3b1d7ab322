package config

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchema(t *testing.T) {
	schemaJSON, err := JSONSchema()
	require.NoError(t, err)
	require.NotEmpty(t, schemaJSON)

	schema := &jsonschema.Schema{}
	require.NoError(t, schema.UnmarshalJSON(schemaJSON))

	for _, def := range []string{"Config", "StoreConfig", "MemoryConfig", "EmbeddingsConfig"} {
		assert.Contains(t, schema.Definitions, def)
	}
}
