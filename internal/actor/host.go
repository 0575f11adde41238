package actor

import (
	"context"
	"log/slog"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/rbac"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

// ToolHost is how the Agent Actor dispatches one namespaced tool call
// without needing to know whether the hex hosting it runs a generic
// plugin (filesystem, shell, extension) or the tasklist queue.
type ToolHost interface {
	PluginID() string
	ToolEntityID() string
	Definitions() []toolplugin.ToolDefinition
	Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult
}

// ToolBinding pairs a reachable tool's adjacency placement (used for RBAC
// evaluation) with the host that actually executes its calls.
type ToolBinding struct {
	Placement rbac.ToolPlacement
	Host      ToolHost
}

// GenericToolActor hosts a single non-tasklist Plugin instance (filesystem,
// shell, extension) on one hex. Unlike ToolActor it has no queue of its
// own; it is a thin, Base-embedding wrapper so it reports hex.status like
// every other actor while forwarding Execute calls to its Plugin.
type GenericToolActor struct {
	*Base
	plugin toolplugin.Plugin
}

// NewGenericToolActor constructs a GenericToolActor around an
// already-Initialize()d plugin instance. Its own work inbox is unused
// (generic tools are addressed directly via ToolHost), but it embeds Base
// so it reports hex.status and lifecycle uniformly with every other actor.
func NewGenericToolActor(boardID, hexKey, entityID, displayName string, bus *event.Bus, queue *workqueue.Queue, log *slog.Logger, plugin toolplugin.Plugin) *GenericToolActor {
	g := &GenericToolActor{plugin: plugin}
	g.Base = newBase(boardID, hexKey, entityID, displayName, bus, queue, log, func(_ context.Context, _ *model.WorkItem) {})
	return g
}

func (g *GenericToolActor) PluginID() string      { return g.plugin.ID() }
func (g *GenericToolActor) ToolEntityID() string  { return g.EntityID() }
func (g *GenericToolActor) Definitions() []toolplugin.ToolDefinition { return g.plugin.Tools() }

func (g *GenericToolActor) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	return g.plugin.Execute(toolName, params, ctx)
}

// ToolActorHost adapts a *ToolActor (the tasklist queue) to ToolHost via
// the tasklist Plugin, so the Agent Actor dispatches to it the same way it
// dispatches to a GenericToolActor.
type ToolActorHost struct {
	actor  *ToolActor
	plugin toolplugin.Plugin
}

// NewToolActorHost pairs a tasklist-backed ToolActor with its tasklist
// Plugin instance (whose Execute implementation reaches the actor back
// through ExecutionContext.GetToolActor).
func NewToolActorHost(actor *ToolActor, plugin toolplugin.Plugin) *ToolActorHost {
	return &ToolActorHost{actor: actor, plugin: plugin}
}

func (h *ToolActorHost) PluginID() string     { return h.plugin.ID() }
func (h *ToolActorHost) ToolEntityID() string { return h.actor.EntityID() }
func (h *ToolActorHost) Definitions() []toolplugin.ToolDefinition { return h.plugin.Tools() }

func (h *ToolActorHost) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	return h.plugin.Execute(toolName, params, ctx)
}
