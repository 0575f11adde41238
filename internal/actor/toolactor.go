package actor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/hexerr"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

// DefaultTaskTimeout is how long a claimed task may sit in processing
// before releaseTimedOutTasks reclaims it.
const DefaultTaskTimeout = 5 * time.Minute

const releaseSweepInterval = 30 * time.Second

var checklistLine = regexp.MustCompile(`^\s*-\s*\[( |x|X)\]\s*(.+)$`)
var priorityTag = regexp.MustCompile(`@priority:(\S+)`)

// TasklistAccessor is the broader surface a Tool Actor exposes to the
// Agent Actor's internal claim/complete/release loop. It embeds the
// narrow toolplugin.TaskQueueAccessor used by LLM-facing tasklist tool
// calls, so a *ToolActor satisfies both.
type TasklistAccessor interface {
	toolplugin.TaskQueueAccessor
	ClaimNextTask(hexKey, entityID, displayName string) (model.Task, bool)
	CompleteTask(id, hexKey string) error
	ReleaseTask(id, hexKey string) error
}

// ToolActor runs a tasklist-kind tool: an in-memory queue of tasks
// claimed, completed, and released by agents reaching this hex.
type ToolActor struct {
	*Base

	mu     sync.Mutex
	tasks  map[string]*model.Task
	order  []string
	seq    int

	bus       *event.Bus
	log       *slog.Logger
	stopSweep chan struct{}
}

// NewToolActor constructs a Tool Actor. Its own work inbox is unused for
// tasklist tools (they are addressed directly via TasklistAccessor), but
// it still embeds Base so it reports status and lifecycle uniformly with
// Agent Actors.
func NewToolActor(boardID, hexKey, entityID, displayName string, bus *event.Bus, queue *workqueue.Queue, log *slog.Logger) *ToolActor {
	ta := &ToolActor{
		tasks: make(map[string]*model.Task),
		bus:   bus,
		log:   log,
	}
	ta.Base = newBase(boardID, hexKey, entityID, displayName, bus, queue, log, func(_ context.Context, _ *model.WorkItem) {})
	return ta
}

// Start seeds the task map from the tool's configured "tasks" value and
// starts the timeout sweep. It does not subscribe to entity.updated; tasks
// are re-imported only when OnEntityUpdated is called. config["tasks"] may be a []any of strings or objects
// with title/description/priority/completed, or a single Markdown
// checklist string ("- [ ] ..." lines, with optional "@priority:label").
func (ta *ToolActor) Start(config map[string]any) {
	ta.Base.Start()

	ta.mu.Lock()
	for _, t := range parseInitialTasks(config["tasks"], ta.EntityID()) {
		ta.storeLocked(t)
	}
	ta.mu.Unlock()

	ta.stopSweep = make(chan struct{})
	go ta.sweepLoop()
}

// Stop halts the timeout sweep and the embedded Base lifecycle.
func (ta *ToolActor) Stop() {
	if ta.stopSweep != nil {
		close(ta.stopSweep)
		ta.stopSweep = nil
	}
	ta.Base.Stop()
}

func (ta *ToolActor) sweepLoop() {
	ticker := time.NewTicker(releaseSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ta.releaseTimedOutTasks()
		case <-ta.stopSweep:
			return
		}
	}
}

func (ta *ToolActor) storeLocked(t *model.Task) {
	if _, exists := ta.tasks[t.ID]; !exists {
		ta.order = append(ta.order, t.ID)
	}
	ta.tasks[t.ID] = t
}

func (ta *ToolActor) nextID() string {
	ta.seq++
	return fmt.Sprintf("task-%s-%d-%d", ta.EntityID(), time.Now().UnixNano(), ta.seq)
}

// ListTasks implements toolplugin.TaskQueueAccessor.
func (ta *ToolActor) ListTasks() []toolplugin.TaskSnapshot {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	out := make([]toolplugin.TaskSnapshot, 0, len(ta.order))
	for _, id := range ta.order {
		out = append(out, snapshot(ta.tasks[id]))
	}
	return out
}

// GetTask implements toolplugin.TaskQueueAccessor.
func (ta *ToolActor) GetTask(id string) (toolplugin.TaskSnapshot, bool) {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	t, ok := ta.tasks[id]
	if !ok {
		return toolplugin.TaskSnapshot{}, false
	}
	return snapshot(t), true
}

// AddTask implements toolplugin.TaskQueueAccessor. It appends a pending
// task and announces its availability.
func (ta *ToolActor) AddTask(title, description, priority string) toolplugin.TaskSnapshot {
	ta.mu.Lock()
	t := &model.Task{
		ID:          ta.nextID(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      model.TaskPending,
	}
	ta.storeLocked(t)
	ta.mu.Unlock()

	ta.emit(event.TypeTaskAdded, map[string]any{"task_id": t.ID, "title": t.Title})
	ta.announceAvailable()
	return snapshot(t)
}

// ClaimNextTask claims the oldest pending task for (hexKey, entityID),
// returning false if none is pending.
func (ta *ToolActor) ClaimNextTask(hexKey, entityID, displayName string) (model.Task, bool) {
	ta.mu.Lock()
	var claimed model.Task
	found := false
	for _, id := range ta.order {
		t := ta.tasks[id]
		if t.Status != model.TaskPending {
			continue
		}
		t.Status = model.TaskProcessing
		t.ClaimHexKey = hexKey
		t.ClaimEntityID = entityID
		t.ClaimName = displayName
		t.ClaimedAt = time.Now()
		claimed = *t
		found = true
		break
	}
	ta.mu.Unlock()

	if !found {
		return model.Task{}, false
	}
	ta.emit(event.TypeTaskClaimed, map[string]any{"task_id": claimed.ID, "claimed_by": entityID})
	return claimed, true
}

// CompleteTask marks a task held by hexKey as completed. Completing a
// task not owned by hexKey is refused with a *hexerr.TaskQueueError.
func (ta *ToolActor) CompleteTask(id, hexKey string) error {
	ta.mu.Lock()
	t, ok := ta.tasks[id]
	if !ok {
		ta.mu.Unlock()
		return hexerr.NewTaskQueueError("complete", fmt.Sprintf("task %q not found", id), hexerr.ErrNotFound)
	}
	if t.ClaimHexKey != hexKey {
		ta.mu.Unlock()
		return hexerr.NewTaskQueueError("complete", fmt.Sprintf("task %q is not claimed by %q", id, hexKey), hexerr.ErrNotOwner)
	}
	t.Status = model.TaskCompleted
	ta.mu.Unlock()

	ta.emit(event.TypeTaskCompleted, map[string]any{"task_id": id})
	return nil
}

// ReleaseTask returns a task held by hexKey to pending, for the agent
// that claimed it to give it up (stuck, aborted, or board-stop).
func (ta *ToolActor) ReleaseTask(id, hexKey string) error {
	ta.mu.Lock()
	t, ok := ta.tasks[id]
	if !ok {
		ta.mu.Unlock()
		return hexerr.NewTaskQueueError("release", fmt.Sprintf("task %q not found", id), hexerr.ErrNotFound)
	}
	if t.ClaimHexKey != hexKey {
		ta.mu.Unlock()
		return hexerr.NewTaskQueueError("release", fmt.Sprintf("task %q is not claimed by %q", id, hexKey), hexerr.ErrNotOwner)
	}
	t.Status = model.TaskPending
	t.ClaimHexKey = ""
	t.ClaimEntityID = ""
	t.ClaimName = ""
	t.ClaimedAt = time.Time{}
	ta.mu.Unlock()

	ta.emit(event.TypeTaskReleased, map[string]any{"task_id": id})
	ta.announceAvailable()
	return nil
}

// releaseTimedOutTasks reclaims any task that has sat in processing
// longer than DefaultTaskTimeout, returning it to pending.
func (ta *ToolActor) releaseTimedOutTasks() {
	ta.mu.Lock()
	var timedOut []string
	now := time.Now()
	for _, id := range ta.order {
		t := ta.tasks[id]
		if t.Status == model.TaskProcessing && now.Sub(t.ClaimedAt) > DefaultTaskTimeout {
			t.Status = model.TaskPending
			t.ClaimHexKey = ""
			t.ClaimEntityID = ""
			t.ClaimName = ""
			t.ClaimedAt = time.Time{}
			timedOut = append(timedOut, id)
		}
	}
	ta.mu.Unlock()

	for _, id := range timedOut {
		ta.log.Warn("tasklist reclaimed timed-out task", "task_id", id, "tool_hex", ta.HexKey())
		ta.emit(event.TypeTaskReleased, map[string]any{"task_id": id, "reason": "timeout"})
	}
	if len(timedOut) > 0 {
		ta.announceAvailable()
	}
}

// OnEntityUpdated re-imports the tool's "tasks" config, adding any new
// task matched by title (existing titles are left untouched). Neither
// Start nor the Board Runner connects it to event.TypeEntityUpdated.
func (ta *ToolActor) OnEntityUpdated(config map[string]any) {
	existing := make(map[string]bool)
	ta.mu.Lock()
	for _, id := range ta.order {
		existing[strings.ToLower(ta.tasks[id].Title)] = true
	}
	ta.mu.Unlock()

	var fresh []*model.Task
	for _, t := range parseInitialTasks(config["tasks"], ta.EntityID()) {
		if !existing[strings.ToLower(t.Title)] {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		return
	}

	ta.mu.Lock()
	for _, t := range fresh {
		ta.storeLocked(t)
	}
	ta.mu.Unlock()

	for _, t := range fresh {
		ta.emit(event.TypeTaskAdded, map[string]any{"task_id": t.ID, "title": t.Title})
	}
	ta.announceAvailable()
}

func (ta *ToolActor) announceAvailable() {
	ta.mu.Lock()
	count := 0
	for _, id := range ta.order {
		if ta.tasks[id].Status == model.TaskPending {
			count++
		}
	}
	ta.mu.Unlock()
	ta.emit(event.TypeTasksAvailable, map[string]any{"tool_hex": ta.HexKey(), "count": count})
}

func (ta *ToolActor) emit(eventType string, data map[string]any) {
	ta.Base.emit(eventType, data)
}

func snapshot(t *model.Task) toolplugin.TaskSnapshot {
	return toolplugin.TaskSnapshot{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      string(t.Status),
	}
}

// parseInitialTasks accepts either a []any of strings/objects or a single
// Markdown checklist string and returns the tasks it describes, skipping
// entries already marked completed in a checklist.
func parseInitialTasks(raw any, entityID string) []*model.Task {
	seq := 0
	next := func() string {
		seq++
		return fmt.Sprintf("task-%s-%d-%d", entityID, time.Now().UnixNano(), seq)
	}

	switch v := raw.(type) {
	case []any:
		out := make([]*model.Task, 0, len(v))
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				out = append(out, &model.Task{ID: next(), Title: e, Status: model.TaskPending})
			case map[string]any:
				if completed, _ := e["completed"].(bool); completed {
					continue
				}
				title, _ := e["title"].(string)
				if title == "" {
					continue
				}
				desc, _ := e["description"].(string)
				priority, _ := e["priority"].(string)
				out = append(out, &model.Task{ID: next(), Title: title, Description: desc, Priority: priority, Status: model.TaskPending})
			}
		}
		return out
	case string:
		return parseChecklist(v, next)
	default:
		return nil
	}
}

func parseChecklist(text string, next func() string) []*model.Task {
	var out []*model.Task
	for _, line := range strings.Split(text, "\n") {
		m := checklistLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		checked := strings.EqualFold(m[1], "x")
		if checked {
			continue
		}
		rest := m[2]
		priority := ""
		if pm := priorityTag.FindStringSubmatch(rest); pm != nil {
			priority = pm[1]
			rest = strings.TrimSpace(priorityTag.ReplaceAllString(rest, ""))
		}
		out = append(out, &model.Task{ID: next(), Title: rest, Priority: priority, Status: model.TaskPending})
	}
	return out
}
