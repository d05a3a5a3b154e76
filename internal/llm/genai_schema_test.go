package llm

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemafiles "github.com/jonathan/resume-importer/schemas"
)

func TestToGenaiSchema_ResumeDraft(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(schemafiles.ResumeDraft(), &doc))

	schema, err := ToGenaiSchema(doc)
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"personalInfo"}, schema.Required)

	personal := schema.Properties["personalInfo"]
	require.NotNil(t, personal)
	assert.Contains(t, personal.Required, "fullName")
	assert.Equal(t, genai.TypeString, personal.Properties["fullName"].Type)
	assert.True(t, personal.Properties["email"].Nullable)

	experiences := schema.Properties["experiences"]
	require.NotNil(t, experiences)
	assert.Equal(t, genai.TypeArray, experiences.Type)
	assert.True(t, experiences.Nullable)
	assert.ElementsMatch(t, []string{"company", "position"}, experiences.Items.Required)
	assert.Equal(t, genai.TypeBoolean, experiences.Items.Properties["current"].Type)

	skillLevel := schema.Properties["skills"].Items.Properties["level"]
	assert.Equal(t, []string{"beginner", "intermediate", "advanced", "expert"}, skillLevel.Enum)
	assert.True(t, skillLevel.Nullable)

	languageLevel := schema.Properties["languages"].Items.Properties["level"]
	assert.Equal(t, genai.TypeString, languageLevel.Type)
	assert.Equal(t, []string{"basic", "conversational", "professional", "fluent", "native"}, languageLevel.Enum)
	assert.True(t, languageLevel.Nullable)
}

func TestToGenaiSchema_TypelessEnum(t *testing.T) {
	tests := []struct {
		name     string
		enum     []any
		nullable bool
	}{
		{"strings", []any{"basic", "native"}, false},
		{"strings and null", []any{"basic", "native", nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := ToGenaiSchema(map[string]any{"enum": tt.enum})
			require.NoError(t, err)
			assert.Equal(t, genai.TypeString, schema.Type)
			assert.Equal(t, []string{"basic", "native"}, schema.Enum)
			assert.Equal(t, tt.nullable, schema.Nullable)
		})
	}
}

func TestToGenaiSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema map[string]any
	}{
		{"missing type", map[string]any{"properties": map[string]any{}}},
		{"union of two types", map[string]any{"type": []any{"string", "number"}}},
		{"only null", map[string]any{"type": []any{"null"}}},
		{"array without items", map[string]any{"type": "array"}},
		{"unknown type", map[string]any{"type": "date"}},
		{"typeless numeric enum", map[string]any{"enum": []any{1, 2}}},
		{"typeless null-only enum", map[string]any{"enum": []any{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToGenaiSchema(tt.schema)
			assert.Error(t, err)
		})
	}
}

func TestToGenaiSchema_Nil(t *testing.T) {
	schema, err := ToGenaiSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, schema)
}
