package plugins

import (
	"fmt"

	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

// TasklistPluginID is the stable id this plugin registers under.
const TasklistPluginID = "tasklist"

// Tasklist is the built-in tasklist tool plugin. It holds no queue state
// of its own: every call is dispatched to the owning tool actor's queue
// via ExecutionContext.GetToolActor, looked up by the hex the call
// targeted.
type Tasklist struct{}

func NewTasklist() *Tasklist { return &Tasklist{} }

func (t *Tasklist) ID() string          { return TasklistPluginID }
func (t *Tasklist) Name() string        { return "Tasklist" }
func (t *Tasklist) Description() string { return "List, inspect, and add tasks on a tool's task queue." }
func (t *Tasklist) Icon() string        { return "checklist" }

func (t *Tasklist) DefaultConfig() map[string]any { return map[string]any{"tasks": []any{}} }

func (t *Tasklist) ValidateConfig(config map[string]any) toolplugin.ValidationResult {
	return toolplugin.ValidationResult{Valid: true}
}

func (t *Tasklist) IsAvailable() bool { return true }

func (t *Tasklist) Initialize(config map[string]any) error { return nil }

func (t *Tasklist) Tools() []toolplugin.ToolDefinition {
	return []toolplugin.ToolDefinition{
		{Name: "list", Description: "List every task in this queue."},
		{Name: "get", Description: "Fetch one task by id.", Parameters: []toolplugin.ToolParameter{
			{Name: "id", Type: "string", Required: true},
		}},
		{Name: "add", Description: "Add a new pending task.", Parameters: []toolplugin.ToolParameter{
			{Name: "title", Type: "string", Required: true},
			{Name: "description", Type: "string", Required: false},
			{Name: "priority", Type: "string", Required: false, Default: "normal"},
		}},
	}
}

func (t *Tasklist) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	if ctx.GetToolActor == nil {
		return errResult("no tool actor accessor available")
	}
	accessor, ok := ctx.GetToolActor(ctx.ToolHexKey)
	if !ok {
		return errResult(fmt.Sprintf("no tasklist actor at hex %q", ctx.ToolHexKey))
	}

	switch toolName {
	case "list":
		return toolplugin.ToolResult{Success: true, Result: accessor.ListTasks()}
	case "get":
		id, _ := params["id"].(string)
		task, found := accessor.GetTask(id)
		if !found {
			return errResult(fmt.Sprintf("no task %q", id))
		}
		return toolplugin.ToolResult{Success: true, Result: task}
	case "add":
		title, _ := params["title"].(string)
		if title == "" {
			return errResult("title is required")
		}
		description, _ := params["description"].(string)
		priority, _ := params["priority"].(string)
		if priority == "" {
			priority = "normal"
		}
		return toolplugin.ToolResult{Success: true, Result: accessor.AddTask(title, description, priority)}
	default:
		return errResult(fmt.Sprintf("unknown tasklist tool %q", toolName))
	}
}
