package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

type stubTaskQueue struct {
	tasks []toolplugin.TaskSnapshot
}

func (q *stubTaskQueue) ListTasks() []toolplugin.TaskSnapshot { return q.tasks }

func (q *stubTaskQueue) GetTask(id string) (toolplugin.TaskSnapshot, bool) {
	for _, t := range q.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return toolplugin.TaskSnapshot{}, false
}

func (q *stubTaskQueue) AddTask(title, description, priority string) toolplugin.TaskSnapshot {
	snap := toolplugin.TaskSnapshot{ID: title, Title: title, Description: description, Priority: priority, Status: "pending"}
	q.tasks = append(q.tasks, snap)
	return snap
}

func ctxWithQueue(q *stubTaskQueue, hexKey string) toolplugin.ExecutionContext {
	return toolplugin.ExecutionContext{
		ToolHexKey: hexKey,
		GetToolActor: func(key string) (toolplugin.TaskQueueAccessor, bool) {
			if key != hexKey {
				return nil, false
			}
			return q, true
		},
	}
}

func TestTasklistAddThenList(t *testing.T) {
	tl := NewTasklist()
	q := &stubTaskQueue{}
	ctx := ctxWithQueue(q, "0,1")

	addResult := tl.Execute("add", map[string]any{"title": "Write /tmp/out.txt", "priority": "normal"}, ctx)
	require.True(t, addResult.Success)

	listResult := tl.Execute("list", nil, ctx)
	require.True(t, listResult.Success)
	tasks, ok := listResult.Result.([]toolplugin.TaskSnapshot)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write /tmp/out.txt", tasks[0].Title)
}

func TestTasklistGetMissingFails(t *testing.T) {
	tl := NewTasklist()
	q := &stubTaskQueue{}
	ctx := ctxWithQueue(q, "0,1")

	result := tl.Execute("get", map[string]any{"id": "nope"}, ctx)
	assert.False(t, result.Success)
}

func TestTasklistNoAccessorConfiguredFails(t *testing.T) {
	tl := NewTasklist()
	result := tl.Execute("list", nil, toolplugin.ExecutionContext{})
	assert.False(t, result.Success)
}

func TestTasklistUnknownHexFails(t *testing.T) {
	tl := NewTasklist()
	q := &stubTaskQueue{}
	ctx := ctxWithQueue(q, "0,1")
	ctx.ToolHexKey = "9,9"

	result := tl.Execute("list", nil, ctx)
	assert.False(t, result.Success)
}
