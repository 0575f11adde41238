package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/obslog"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

func newTestToolActor(t *testing.T) (*ToolActor, *event.Bus) {
	t.Helper()
	bus := event.New()
	ta := NewToolActor("b1", "0,0", "tasklist-1", "tasks", bus, workqueue.New(), obslog.Get())
	return ta, bus
}

func TestToolActorSeedsTasksFromStringList(t *testing.T) {
	ta, _ := newTestToolActor(t)
	ta.Start(map[string]any{"tasks": []any{"write docs", "fix bug"}})
	defer ta.Stop()

	tasks := ta.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "write docs", tasks[0].Title)
	assert.Equal(t, "fix bug", tasks[1].Title)
	assert.Equal(t, string(model.TaskPending), tasks[0].Status)
}

func TestToolActorSeedsTasksFromChecklist(t *testing.T) {
	ta, _ := newTestToolActor(t)
	ta.Start(map[string]any{"tasks": "- [ ] open the PR @priority:p1\n- [x] done already\n- [ ] write tests"})
	defer ta.Stop()

	tasks := ta.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "open the PR", tasks[0].Title)
	assert.Equal(t, "p1", tasks[0].Priority)
	assert.Equal(t, "write tests", tasks[1].Title)
}

func TestClaimCompleteReleaseLifecycle(t *testing.T) {
	ta, _ := newTestToolActor(t)
	ta.Start(map[string]any{"tasks": []any{"ship it"}})
	defer ta.Stop()

	claimed, ok := ta.ClaimNextTask("1,0", "agent-1", "coder")
	require.True(t, ok)
	assert.Equal(t, model.TaskProcessing, claimed.Status)

	_, ok = ta.ClaimNextTask("1,0", "agent-1", "coder")
	assert.False(t, ok, "no second pending task to claim")

	require.NoError(t, ta.CompleteTask(claimed.ID, "1,0"))
	got, ok := ta.GetTask(claimed.ID)
	require.True(t, ok)
	assert.Equal(t, string(model.TaskCompleted), got.Status)
}

func TestCompleteTaskRefusedForWrongClaimant(t *testing.T) {
	ta, _ := newTestToolActor(t)
	ta.Start(map[string]any{"tasks": []any{"ship it"}})
	defer ta.Stop()

	claimed, ok := ta.ClaimNextTask("1,0", "agent-1", "coder")
	require.True(t, ok)

	err := ta.CompleteTask(claimed.ID, "2,0")
	assert.Error(t, err)
}

func TestReleaseTaskReturnsItToPending(t *testing.T) {
	ta, _ := newTestToolActor(t)
	ta.Start(map[string]any{"tasks": []any{"ship it"}})
	defer ta.Stop()

	claimed, ok := ta.ClaimNextTask("1,0", "agent-1", "coder")
	require.True(t, ok)

	require.NoError(t, ta.ReleaseTask(claimed.ID, "1,0"))
	again, ok := ta.ClaimNextTask("1,0", "agent-2", "reviewer")
	require.True(t, ok)
	assert.Equal(t, claimed.ID, again.ID)
}

func TestAddTaskEmitsTaskAdded(t *testing.T) {
	ta, bus := newTestToolActor(t)
	ta.Start(nil)
	defer ta.Stop()

	added := make(chan model.EngineEvent, 1)
	bus.SubscribeType(event.TypeTaskAdded, func(ev model.EngineEvent) { added <- ev })

	snap := ta.AddTask("new task", "desc", "p2")
	assert.NotEmpty(t, snap.ID)

	select {
	case ev := <-added:
		assert.Equal(t, snap.ID, ev.Data["task_id"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task.added event")
	}
}

func TestOnEntityUpdatedSkipsExistingTitles(t *testing.T) {
	ta, _ := newTestToolActor(t)
	ta.Start(map[string]any{"tasks": []any{"existing task"}})
	defer ta.Stop()

	ta.OnEntityUpdated(map[string]any{"tasks": []any{"Existing Task", "brand new task"}})

	tasks := ta.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "existing task", tasks[0].Title)
	assert.Equal(t, "brand new task", tasks[1].Title)
}
