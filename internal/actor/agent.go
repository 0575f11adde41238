package actor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/changetracker"
	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/fsctx"
	"github.com/kadirpekel/hexboard/internal/hexcoord"
	"github.com/kadirpekel/hexboard/internal/llmprovider"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/rbac"
	"github.com/kadirpekel/hexboard/internal/reservation"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

// completionSentinel is what a thought's content must contain for the
// reasoning loop to treat the work item as finished.
const completionSentinel = "[COMPLETE]"

// fullHistoryIterations is how many of the most recent iterations keep
// their full thought/observation text before compaction summarizes them.
const fullHistoryIterations = 3

const maxSummaryChars = 200
const maxToolResultChars = 100

// AgentDeps wires an Agent Actor to the coordination singletons and
// upstream resources it needs. Board Runner constructs one per agent
// entity it starts.
type AgentDeps struct {
	BoardID     string
	HexKey      string
	EntityID    string
	DisplayName string
	Coord       hexcoord.Coord
	Attrs       model.AgentAttributes

	Bus           *event.Bus
	Queue         *workqueue.Queue
	FSManager     *fsctx.Manager
	Reservations  *reservation.Manager
	ChangeTracker *changetracker.Tracker
	Provider      llmprovider.Provider
	TokenCounter  *llmprovider.TokenCounter

	// Tools returns every tool reachable from this agent's hex, computed
	// from the board's tool placements as captured at Start. The agent
	// caches the result and calls Tools again only after an entity.updated
	// event for itself.
	Tools func() []ToolBinding

	// GetTasklistActor resolves the tasklist queue behind a tool hex key,
	// used for the pull-based task-claiming loop (claim/complete/release)
	// rather than the narrower LLM-facing toolplugin.TaskQueueAccessor.
	GetTasklistActor func(hexKey string) (TasklistAccessor, bool)

	// BudgetExceeded reports whether the board's budget tracker has
	// already emitted budget.exceeded this run.
	BudgetExceeded func() bool

	Log *slog.Logger
}

// cachedTool is one RBAC-filtered, namespaced tool function an agent may
// currently call.
type cachedTool struct {
	namespacedName string
	pluginID       string
	toolName       string
	toolHexKey     string
	toolEntityID   string
	host           ToolHost
	def            toolplugin.ToolDefinition
}

// Agent is the Agent Actor: a Base-embedding reasoning loop that pulls
// tasks from reachable tasklist tools and drives a think/act/observe
// cycle against an LLM provider with RBAC-filtered tool access.
type Agent struct {
	*Base
	deps AgentDeps

	toolsMu    sync.Mutex
	toolsCache []cachedTool
	toolsDirty bool

	abortMu sync.Mutex
	abort   map[string]context.CancelFunc
}

// NewAgent constructs an Agent Actor. Its processFn is the reasoning
// loop; Base handles inbox sequencing.
func NewAgent(deps AgentDeps) *Agent {
	a := &Agent{deps: deps, toolsDirty: true, abort: make(map[string]context.CancelFunc)}
	a.Base = newBase(deps.BoardID, deps.HexKey, deps.EntityID, deps.DisplayName, deps.Bus, deps.Queue, deps.Log, a.processWorkItem)
	return a
}

// Start begins the actor's lifecycle and subscribes to the events that
// drive pull-based task claiming and tool-cache invalidation.
func (a *Agent) Start() []event.Subscription {
	a.Base.Start()
	subs := []event.Subscription{
		a.deps.Bus.SubscribeType(event.TypeTasksAvailable, a.onTasksAvailable),
		a.deps.Bus.SubscribeHex(a.HexKey(), a.onUserMessage),
		a.deps.Bus.SubscribeType(event.TypeEntityUpdated, a.onEntityUpdated),
		a.deps.Bus.SubscribeType(event.TypeFilesystemChanged, a.onFilesystemChanged),
	}
	go a.tryClaimTask()
	return subs
}

// Stop cancels any in-flight LLM call before stopping the embedded Base.
func (a *Agent) Stop() {
	a.abortMu.Lock()
	for id, cancel := range a.abort {
		cancel()
		delete(a.abort, id)
	}
	a.abortMu.Unlock()
	a.Base.Stop()
}

func (a *Agent) onTasksAvailable(_ model.EngineEvent) { go a.tryClaimTask() }

func (a *Agent) onUserMessage(ev model.EngineEvent) {
	if ev.Type != event.TypeUserMessage {
		return
	}
	content, _ := ev.Data["content"].(string)
	if content == "" {
		return
	}
	item := a.deps.Queue.Create(model.WorkItem{
		BoardID:      a.deps.BoardID,
		SourceHexID:  a.HexKey(),
		CurrentHexID: a.HexKey(),
		Status:       model.WorkPending,
		Payload:      map[string]any{"kind": "user_message", "content": content},
	})
	a.ReceiveWork(item)
}

func (a *Agent) onEntityUpdated(ev model.EngineEvent) {
	if id, _ := ev.Data["entity_id"].(string); id != a.EntityID() {
		return
	}
	a.toolsMu.Lock()
	a.toolsDirty = true
	a.toolsMu.Unlock()
}

func (a *Agent) onFilesystemChanged(_ model.EngineEvent) {
	// Adjacent tool changes don't invalidate the namespace cache; only
	// this agent's own entity.updated does. Filesystem staleness is
	// re-read fresh on every think cycle via FSManager directly.
}

// tryClaimTask pulls the oldest pending task from any reachable tasklist
// tool this agent has read access to, and turns a successful claim into a
// work item.
func (a *Agent) tryClaimTask() {
	if !a.Running() || a.deps.GetTasklistActor == nil {
		return
	}
	for _, binding := range a.deps.Tools() {
		if binding.Placement.HexKey == "" {
			continue
		}
		tl, ok := a.deps.GetTasklistActor(binding.Placement.HexKey)
		if !ok {
			continue
		}
		if !rbac.CheckPermission(a.EntityID(), a.deps.Coord, binding.Placement, model.PermRead).Allowed {
			continue
		}
		task, claimed := tl.ClaimNextTask(a.HexKey(), a.EntityID(), a.deps.DisplayName)
		if !claimed {
			continue
		}
		item := a.deps.Queue.Create(model.WorkItem{
			BoardID:      a.deps.BoardID,
			SourceHexID:  binding.Placement.HexKey,
			CurrentHexID: a.HexKey(),
			Status:       model.WorkPending,
			Payload: map[string]any{
				"kind":        "task",
				"task_id":     task.ID,
				"title":       task.Title,
				"description": task.Description,
				"priority":    task.Priority,
				"source_hex":  binding.Placement.HexKey,
			},
		})
		a.ReceiveWork(item)
		return
	}
}

// getAgentTools rebuilds the RBAC-filtered, namespace-cached tool list
// when dirty, otherwise returns the cached snapshot.
func (a *Agent) getAgentTools() []cachedTool {
	a.toolsMu.Lock()
	defer a.toolsMu.Unlock()
	if !a.toolsDirty && a.toolsCache != nil {
		return a.toolsCache
	}

	var out []cachedTool
	for _, binding := range a.deps.Tools() {
		decision := rbac.CheckPermission(a.EntityID(), a.deps.Coord, binding.Placement, model.PermExecute)
		if !decision.Allowed {
			continue
		}
		for _, def := range binding.Host.Definitions() {
			out = append(out, cachedTool{
				namespacedName: toolplugin.NamespacedName(binding.Host.PluginID(), def.Name),
				pluginID:       binding.Host.PluginID(),
				toolName:       def.Name,
				toolHexKey:     binding.Placement.HexKey,
				toolEntityID:   binding.Host.ToolEntityID(),
				host:           binding.Host,
				def:            def,
			})
		}
	}
	a.toolsCache = out
	a.toolsDirty = false
	return out
}

func (a *Agent) findTool(namespacedName string) (cachedTool, bool) {
	for _, t := range a.getAgentTools() {
		if t.namespacedName == namespacedName {
			return t, true
		}
	}
	return cachedTool{}, false
}

// processWorkItem drives the think -> interpret -> act -> progress loop
// for one work item until it completes, gets stuck, is aborted, or
// errors.
func (a *Agent) processWorkItem(parent context.Context, item *model.WorkItem) {
	if a.deps.BudgetExceeded != nil && a.deps.BudgetExceeded() {
		a.finishFailed(item, "board budget exceeded")
		return
	}

	ctx, cancel := context.WithCancel(parent)
	a.abortMu.Lock()
	a.abort[item.ID] = cancel
	a.abortMu.Unlock()
	defer func() {
		a.abortMu.Lock()
		delete(a.abort, item.ID)
		a.abortMu.Unlock()
		cancel()
	}()

	a.deps.Queue.Update(item.ID, func(w *model.WorkItem) {
		w.Status = model.WorkProcessing
		if w.Reasoning == nil {
			w.Reasoning = &model.AgentState{}
		}
	})

	tools := a.buildToolSpecs()

	for iteration := 0; ; iteration++ {
		if ctx.Err() != nil {
			a.finishAborted(item)
			return
		}

		current, ok := a.deps.Queue.Get(item.ID)
		if !ok {
			return
		}
		state := current.Reasoning
		if state == nil {
			state = &model.AgentState{}
		}

		messages := a.buildMessages(current, state, iteration)
		req := llmprovider.Request{
			Messages:    messages,
			Model:       a.deps.Attrs.ModelID,
			Temperature: a.deps.Attrs.Temperature,
			Tools:       tools,
		}

		a.deps.Bus.Emit(model.EngineEvent{
			Type: event.TypeLLMRequest, HexID: a.HexKey(), BoardID: a.deps.BoardID,
			Data: map[string]any{"work_item_id": item.ID, "iteration": iteration}, Timestamp: time.Now(),
		})

		resp, err := a.deps.Provider.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				a.finishAborted(item)
				return
			}
			a.finishFailed(item, err.Error())
			return
		}
		a.emitLLMResponse(item.ID, resp)

		thought := model.Thought{Content: resp.Content}
		for _, tc := range resp.ToolCalls {
			thought.ToolCalls = append(thought.ToolCalls, model.ToolCallRef{ToolCallID: tc.ToolCallID, ToolName: tc.ToolName, Args: tc.Args})
		}

		premature := isPrematureCompletion(thought, state, len(tools) > 0)
		if premature {
			thought.Content = strings.ReplaceAll(thought.Content, completionSentinel, "")
			state.Injections = append(state.Injections, model.UserInjection{
				Content:           "You have not used any tools yet. Call the appropriate tool before reporting completion.",
				AfterThoughtIndex: len(state.Thoughts),
			})
		}
		containsSentinel := !premature && strings.Contains(thought.Content, completionSentinel)

		state.Thoughts = append(state.Thoughts, thought)

		if len(thought.ToolCalls) > 0 {
			for _, tc := range thought.ToolCalls {
				obs := a.executeToolCall(ctx, item, tc)
				state.Observations = append(state.Observations, obs)
			}
		}

		done := containsSentinel
		if done {
			state.Done = true
			state.FinalResult = strings.TrimSpace(strings.ReplaceAll(thought.Content, completionSentinel, ""))
		}

		a.deps.Queue.Update(item.ID, func(w *model.WorkItem) {
			w.Reasoning = state
			w.Iteration = iteration + 1
		})
		a.deps.Bus.Emit(model.EngineEvent{
			Type: event.TypeHexProgress, HexID: a.HexKey(), BoardID: a.deps.BoardID,
			Data: map[string]any{"work_item_id": item.ID, "iteration": iteration}, Timestamp: time.Now(),
		})

		if done {
			a.finishComplete(item, state)
			return
		}
	}
}

// isPrematureCompletion reports whether a thought claims completion
// without calling a tool while tools are available and no earlier tool call
// in this work item has succeeded, which the loop treats as a mistake to
// correct rather than a true finish.
func isPrematureCompletion(t model.Thought, state *model.AgentState, toolsAvailable bool) bool {
	if !toolsAvailable || len(t.ToolCalls) > 0 || !strings.Contains(t.Content, completionSentinel) {
		return false
	}
	for _, obs := range state.Observations {
		if obs.Success {
			return false
		}
	}
	return true
}

func (a *Agent) emitLLMResponse(workItemID string, resp llmprovider.Response) {
	a.deps.Bus.Emit(model.EngineEvent{
		Type: event.TypeLLMResponse, HexID: a.HexKey(), BoardID: a.deps.BoardID,
		Data: map[string]any{
			"work_item_id":  workItemID,
			"cost_dollars":  resp.Cost.TotalCost,
			"total_tokens":  resp.Usage.TotalTokens,
			"finish_reason": string(resp.FinishReason),
		},
		Timestamp: time.Now(),
	})
}

func (a *Agent) executeToolCall(ctx context.Context, item *model.WorkItem, tc model.ToolCallRef) model.Observation {
	tool, ok := a.findTool(tc.ToolName)
	if !ok {
		return model.Observation{ToolCallID: tc.ToolCallID, ToolName: tc.ToolName, Success: false, Error: fmt.Sprintf("unknown tool %q", tc.ToolName)}
	}

	// Reservation claiming, read-before-write enforcement, and read
	// recording are the filesystem plugin's own responsibility via the
	// FSManager/Reservations handles on ExecutionContext; the loop only
	// dispatches.
	execCtx := toolplugin.ExecutionContext{
		Context:       ctx,
		AgentID:       a.EntityID(),
		AgentName:     a.deps.DisplayName,
		AgentHexKey:   a.HexKey(),
		BoardID:       a.deps.BoardID,
		ToolHexKey:    tool.toolHexKey,
		ToolEntityID:  tool.toolEntityID,
		Bus:           a.deps.Bus,
		FSManager:     a.deps.FSManager,
		Reservations:  a.deps.Reservations,
		ChangeTracker: a.deps.ChangeTracker,
		GetToolActor:  a.getToolActor,
	}

	result := tool.host.Execute(tool.toolName, tc.Args, execCtx)

	obs := model.Observation{ToolCallID: tc.ToolCallID, ToolName: tc.ToolName, Success: result.Success, Error: result.Error}
	obs.Result = fmt.Sprintf("%v", result.Result)
	return obs
}

// getToolActor adapts deps.GetTasklistActor (the broader TasklistAccessor
// used for pull-based claiming) to the narrower toolplugin.TaskQueueAccessor
// the tasklist plugin's Execute dispatches through via
// ExecutionContext.GetToolActor.
func (a *Agent) getToolActor(hexKey string) (toolplugin.TaskQueueAccessor, bool) {
	if a.deps.GetTasklistActor == nil {
		return nil, false
	}
	return a.deps.GetTasklistActor(hexKey)
}

func (a *Agent) finishComplete(item *model.WorkItem, state *model.AgentState) {
	a.deps.Queue.Update(item.ID, func(w *model.WorkItem) {
		w.Status = model.WorkCompleted
		w.Result = map[string]any{"summary": state.FinalResult}
	})
	a.deps.FSManager.ClearAgent(a.EntityID())
	if taskID, _ := item.Payload["task_id"].(string); taskID != "" {
		if sourceHex, _ := item.Payload["source_hex"].(string); sourceHex != "" {
			if tl, ok := a.deps.GetTasklistActor(sourceHex); ok {
				_ = tl.CompleteTask(taskID, a.HexKey())
			}
		}
	}
	a.deps.Bus.Emit(model.EngineEvent{
		Type: event.TypeWorkCompleted, HexID: a.HexKey(), BoardID: a.deps.BoardID,
		Data: map[string]any{"work_item_id": item.ID}, Timestamp: time.Now(),
	})
	go a.tryClaimTask()
}

func (a *Agent) finishFailed(item *model.WorkItem, message string) {
	a.deps.Queue.Update(item.ID, func(w *model.WorkItem) {
		w.Status = model.WorkFailed
		w.FailureError = message
	})
	a.deps.FSManager.ClearAgent(a.EntityID())
	a.releaseOwnedTask(item)
	a.deps.Log.Error("agent work item failed", "work_item_id", item.ID, "error", message)
	go a.tryClaimTask()
}

func (a *Agent) finishAborted(item *model.WorkItem) {
	a.deps.Queue.Update(item.ID, func(w *model.WorkItem) {
		w.Status = model.WorkFailed
		w.FailureError = "aborted"
	})
	a.deps.FSManager.ClearAgent(a.EntityID())
	a.releaseOwnedTask(item)
}

func (a *Agent) releaseOwnedTask(item *model.WorkItem) {
	taskID, _ := item.Payload["task_id"].(string)
	sourceHex, _ := item.Payload["source_hex"].(string)
	if taskID == "" || sourceHex == "" || a.deps.GetTasklistActor == nil {
		return
	}
	if tl, ok := a.deps.GetTasklistActor(sourceHex); ok {
		_ = tl.ReleaseTask(taskID, a.HexKey())
	}
}

func (a *Agent) buildToolSpecs() []llmprovider.ToolSpec {
	var specs []llmprovider.ToolSpec
	for _, t := range a.getAgentTools() {
		params := map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
		props := params["properties"].(map[string]any)
		var required []string
		for _, p := range t.def.Parameters {
			props[p.Name] = map[string]any{"type": p.Type, "description": p.Description}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		params["required"] = required
		specs = append(specs, llmprovider.ToolSpec{Name: t.namespacedName, Description: t.def.Description, Parameters: params})
	}
	return specs
}

// buildMessages assembles the provider-bound conversation: a system
// prompt with context augmentation, then the compacted iteration history.
func (a *Agent) buildMessages(item *model.WorkItem, state *model.AgentState, iteration int) []llmprovider.Message {
	msgs := []llmprovider.Message{{Role: llmprovider.RoleSystem, Content: a.systemPrompt(item)}}
	msgs = append(msgs, llmprovider.Message{Role: llmprovider.RoleUser, Content: a.taskPrompt(item)})

	cutoff := 0
	if n := len(state.Thoughts); n > fullHistoryIterations {
		cutoff = n - fullHistoryIterations
	}
	if cutoff > 0 {
		msgs = append(msgs, llmprovider.Message{Role: llmprovider.RoleUser, Content: summarizeThoughts(state.Thoughts[:cutoff])})
	}

	declaredAt := map[string]int{}
	for ti, t := range state.Thoughts {
		for _, tc := range t.ToolCalls {
			declaredAt[tc.ToolCallID] = ti
		}
	}

	for ti := cutoff; ti < len(state.Thoughts); ti++ {
		t := state.Thoughts[ti]
		content := t.Content
		assistantMsg := llmprovider.Message{Role: llmprovider.RoleAssistant, Content: content}
		for _, tc := range t.ToolCalls {
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, llmprovider.ToolCall{ToolCallID: tc.ToolCallID, ToolName: tc.ToolName, Args: tc.Args})
		}
		msgs = append(msgs, assistantMsg)

		for _, obs := range state.Observations {
			if declaredAt[obs.ToolCallID] != ti {
				continue
			}
			content := obs.Result
			if obs.Error != "" {
				content = "error: " + obs.Error
			}
			msgs = append(msgs, llmprovider.Message{Role: llmprovider.RoleTool, Content: content, ToolCallID: obs.ToolCallID, ToolName: obs.ToolName})
		}
	}

	for _, inj := range state.Injections {
		if inj.AfterThoughtIndex >= cutoff {
			msgs = append(msgs, llmprovider.Message{Role: llmprovider.RoleUser, Content: inj.Content})
		}
	}

	if iteration > 0 {
		msgs = append(msgs, llmprovider.Message{Role: llmprovider.RoleUser, Content: "Continue. Call the appropriate tools, or respond with " + completionSentinel + " when the task is fully done."})
	}

	return msgs
}

func summarizeThoughts(thoughts []model.Thought) string {
	var b strings.Builder
	b.WriteString("## Earlier Reasoning (compacted)\n")
	for _, t := range thoughts {
		fmt.Fprintf(&b, "- %s\n", truncate(normalizeWhitespace(t.Content), maxSummaryChars))
	}
	return b.String()
}

func (a *Agent) systemPrompt(item *model.WorkItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an agent on a hex board. Use the available tools to complete your assigned work.\n", a.deps.DisplayName)
	if a.deps.Attrs.SystemPromptExtra != "" {
		b.WriteString(a.deps.Attrs.SystemPromptExtra)
		b.WriteString("\n")
	}

	if stale := a.deps.FSManager.GetAllStaleFiles(a.EntityID()); len(stale) > 0 {
		b.WriteString("## Stale Reads\n")
		for _, sf := range stale {
			fmt.Fprintf(&b, "- %s was modified by %s after you last read it\n", sf.Path, sf.ModifiedBy)
		}
	}

	accessible := make([]string, 0)
	for _, t := range a.getAgentTools() {
		accessible = append(accessible, t.toolEntityID)
	}
	if summary := changetracker.Summary(a.deps.ChangeTracker.Recent(a.EntityID(), accessible)); summary != "" {
		b.WriteString(summary)
	}

	fmt.Fprintf(&b, "\nRespond with %s when the task is fully done.\n", completionSentinel)
	return b.String()
}

func (a *Agent) taskPrompt(item *model.WorkItem) string {
	if title, _ := item.Payload["title"].(string); title != "" {
		desc, _ := item.Payload["description"].(string)
		return fmt.Sprintf("Task: %s\n%s", title, desc)
	}
	if content, _ := item.Payload["content"].(string); content != "" {
		return content
	}
	return "Proceed with the assigned work."
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
