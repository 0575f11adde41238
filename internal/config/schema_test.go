package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/model"
)

func TestGenerateSchemaKnownToolTypes(t *testing.T) {
	for _, tt := range []model.ToolType{model.ToolFilesystem, model.ToolShell, model.ToolTasklist} {
		doc, err := GenerateSchema(tt)
		require.NoError(t, err, tt)
		assert.Contains(t, string(doc), "properties", tt)
	}
}

func TestGenerateSchemaUnknownToolTypeErrors(t *testing.T) {
	_, err := GenerateSchema(model.ToolExtension)
	assert.Error(t, err)
}

func TestValidateToolConfigAcceptsExtensionUnconditionally(t *testing.T) {
	assert.NoError(t, ValidateToolConfig(model.ToolExtension, []byte(`{"anything":"goes"}`)))
}

func TestValidateToolConfigRejectsMalformedJSON(t *testing.T) {
	err := ValidateToolConfig(model.ToolFilesystem, []byte(`not json`))
	assert.Error(t, err)
}

func TestValidateBoardExportCollectsErrorsAcrossHexes(t *testing.T) {
	b := &BoardExport{
		ID: "board-1",
		Hexes: []HexExport{
			{ID: "fs-1", Category: "tool", EntityType: "filesystem", Config: map[string]any{"rootPath": "/tmp"}},
			{ID: "shell-1", Category: "tool", EntityType: "shell", Config: map[string]any{"timeoutSeconds": "not-a-number!!"}},
			{ID: "agent-1", Category: "agent", EntityType: "coder", Config: map[string]any{"provider": "mock"}},
		},
	}
	errs := ValidateBoardExport(t.Context(), b)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "shell-1")
}
