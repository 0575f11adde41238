package toolplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	id        string
	available bool
	executed  []string
}

func (s *stubPlugin) ID() string          { return s.id }
func (s *stubPlugin) Name() string        { return s.id }
func (s *stubPlugin) Description() string { return "stub" }
func (s *stubPlugin) Icon() string        { return "" }

func (s *stubPlugin) DefaultConfig() map[string]any { return map[string]any{} }
func (s *stubPlugin) ValidateConfig(config map[string]any) ValidationResult {
	return ValidationResult{Valid: true}
}
func (s *stubPlugin) IsAvailable() bool          { return s.available }
func (s *stubPlugin) Initialize(map[string]any) error { return nil }

func (s *stubPlugin) Tools() []ToolDefinition {
	return []ToolDefinition{{Name: "ping", Description: "ping"}}
}

func (s *stubPlugin) Execute(toolName string, params map[string]any, ctx ExecutionContext) ToolResult {
	s.executed = append(s.executed, toolName)
	return ToolResult{Success: true, Result: "pong"}
}

func TestRegisterGetAll(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{id: "b", available: true}))
	require.NoError(t, r.Register(&stubPlugin{id: "a", available: false}))

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID())
	assert.Equal(t, "b", all[1].ID())
}

func TestGetAvailableFiltersUnavailable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{id: "on", available: true}))
	require.NoError(t, r.Register(&stubPlugin{id: "off", available: false}))

	avail := r.GetAvailable()
	require.Len(t, avail, 1)
	assert.Equal(t, "on", avail[0].ID())
}

func TestExecuteUnknownPluginReturnsError(t *testing.T) {
	r := NewRegistry()
	result, err := r.Execute("missing", "ping", nil, ExecutionContext{})
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestExecuteDispatchesAndMeasuresDuration(t *testing.T) {
	r := NewRegistry()
	sp := &stubPlugin{id: "fs", available: true}
	require.NoError(t, r.Register(sp))

	result, err := r.Execute("fs", "ping", map[string]any{}, ExecutionContext{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pong", result.Result)
	assert.Equal(t, []string{"ping"}, sp.executed)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
}

func TestNamespacedName(t *testing.T) {
	assert.Equal(t, "filesystem_read_file", NamespacedName("filesystem", "read_file"))
}

func TestRegisterEmptyIDFails(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&stubPlugin{id: ""})
	assert.Error(t, err)
}
