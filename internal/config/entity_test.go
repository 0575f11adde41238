package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/model"
)

func TestDecodeEntityFoldsSnakeCaseAgentKeys(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"provider":            "anthropic",
		"model_id":            "claude-sonnet",
		"system_prompt_extra": "be terse",
		"temperature":         0.2,
	})
	require.NoError(t, err)

	entity, err := DecodeEntity("agent-1", "coder", model.CategoryAgent, string(model.TemplateCoder), raw)
	require.NoError(t, err)
	require.NotNil(t, entity.Agent)
	assert.Equal(t, "anthropic", entity.Agent.Provider)
	assert.Equal(t, "claude-sonnet", entity.Agent.ModelID)
	assert.Equal(t, "be terse", entity.Agent.SystemPromptExtra)
	assert.InDelta(t, 0.2, entity.Agent.Temperature, 0.0001)
}

func TestDecodeEntityDefaultsAgentTemplateFromEntityType(t *testing.T) {
	entity, err := DecodeEntity("agent-1", "coder", model.CategoryAgent, string(model.TemplateReviewer), []byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, entity.Agent)
	assert.Equal(t, model.TemplateReviewer, entity.Agent.Template)
}

func TestDecodeEntityDefaultsToolTypeFromEntityType(t *testing.T) {
	entity, err := DecodeEntity("tool-1", "fs", model.CategoryTool, string(model.ToolFilesystem), []byte(`{"range":2}`))
	require.NoError(t, err)
	require.NotNil(t, entity.Tool)
	assert.Equal(t, model.ToolFilesystem, entity.Tool.ToolType)
	assert.Equal(t, 2, entity.Tool.Range)
}

func TestDecodeEntityToolConfigFallsBackToRawGeneric(t *testing.T) {
	raw := []byte(`{"rootPath":"/tmp"}`)
	entity, err := DecodeEntity("tool-1", "fs", model.CategoryTool, string(model.ToolFilesystem), raw)
	require.NoError(t, err)
	require.NotNil(t, entity.Tool)
	assert.Equal(t, "/tmp", entity.Tool.Config["rootPath"])
}

func TestDecodeEntityRejectsUnknownCategory(t *testing.T) {
	_, err := DecodeEntity("x", "x", model.EntityCategory("bogus"), "x", []byte(`{}`))
	assert.Error(t, err)
}

func TestDecodeEntityRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeEntity("x", "x", model.CategoryAgent, string(model.TemplateCoder), []byte(`not json`))
	assert.Error(t, err)
}

func TestFingerprintForToolIsRawBytes(t *testing.T) {
	raw := []byte(`{"rootPath":"/a"}`)
	entity, err := DecodeEntity("tool-1", "fs", model.CategoryTool, string(model.ToolFilesystem), raw)
	require.NoError(t, err)
	assert.Equal(t, string(raw), Fingerprint(entity, raw))
}

func TestFingerprintForAgentIgnoresUnrelatedFields(t *testing.T) {
	raw1 := []byte(`{"provider":"anthropic","model_id":"m1"}`)
	raw2 := []byte(`{"provider":"anthropic","model_id":"m1","unrelated":"x"}`)

	e1, err := DecodeEntity("a1", "name-a", model.CategoryAgent, string(model.TemplateCoder), raw1)
	require.NoError(t, err)
	e2, err := DecodeEntity("a1", "name-b", model.CategoryAgent, string(model.TemplateCoder), raw2)
	require.NoError(t, err)

	assert.Equal(t, Fingerprint(e1, raw1), Fingerprint(e2, raw2))
}

func TestFingerprintForAgentChangesWithModelID(t *testing.T) {
	raw1 := []byte(`{"provider":"anthropic","model_id":"m1"}`)
	raw2 := []byte(`{"provider":"anthropic","model_id":"m2"}`)

	e1, err := DecodeEntity("a1", "n", model.CategoryAgent, string(model.TemplateCoder), raw1)
	require.NoError(t, err)
	e2, err := DecodeEntity("a1", "n", model.CategoryAgent, string(model.TemplateCoder), raw2)
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(e1, raw1), Fingerprint(e2, raw2))
}
