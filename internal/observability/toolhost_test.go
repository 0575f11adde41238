package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

type fakeToolHost struct {
	pluginID string
	entityID string
	defs     []toolplugin.ToolDefinition
	result   toolplugin.ToolResult
	gotCtx   toolplugin.ExecutionContext
}

func (f *fakeToolHost) PluginID() string                         { return f.pluginID }
func (f *fakeToolHost) ToolEntityID() string                      { return f.entityID }
func (f *fakeToolHost) Definitions() []toolplugin.ToolDefinition { return f.defs }
func (f *fakeToolHost) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	f.gotCtx = ctx
	return f.result
}

func TestTracingToolHostForwardsExecuteAndResult(t *testing.T) {
	inner := &fakeToolHost{
		pluginID: "filesystem",
		entityID: "fs-1",
		result:   toolplugin.ToolResult{Success: true, Result: "ok", DurationMs: 5},
	}
	wrapped := NewTracingToolHost("agent-1", inner)

	result := wrapped.Execute("read_file", map[string]any{"path": "a.txt"}, toolplugin.ExecutionContext{
		Context: context.Background(),
		AgentID: "agent-1",
	})

	require.True(t, result.Success)
	assert.Equal(t, "ok", result.Result)
	assert.Equal(t, "filesystem", wrapped.PluginID())
	assert.Equal(t, "fs-1", wrapped.ToolEntityID())
	assert.NotNil(t, inner.gotCtx.Context, "the inner host must receive a context carrying the active span")
}

func TestTracingToolHostSurfacesFailure(t *testing.T) {
	inner := &fakeToolHost{result: toolplugin.ToolResult{Success: false, Error: "boom"}}
	wrapped := NewTracingToolHost("agent-1", inner)

	result := wrapped.Execute("read_file", nil, toolplugin.ExecutionContext{Context: context.Background()})
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}
