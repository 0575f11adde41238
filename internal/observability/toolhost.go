package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/hexboard/internal/actor"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

// TracingToolHost wraps an actor.ToolHost, emitting one span per Execute
// call tagged with the plugin and calling agent so a trace viewer can
// correlate a tool call's latency with both ends of the hex adjacency.
type TracingToolHost struct {
	entityID string
	inner    actor.ToolHost
	tracer   trace.Tracer
}

// NewTracingToolHost wraps h for entityID using the "hexboard.toolhost"
// tracer. Intended as a board.Runner.ToolHostDecorator implementation.
func NewTracingToolHost(entityID string, h actor.ToolHost) actor.ToolHost {
	return &TracingToolHost{entityID: entityID, inner: h, tracer: GetTracer("hexboard.toolhost")}
}

func (t *TracingToolHost) PluginID() string     { return t.inner.PluginID() }
func (t *TracingToolHost) ToolEntityID() string { return t.inner.ToolEntityID() }

func (t *TracingToolHost) Definitions() []toolplugin.ToolDefinition {
	return t.inner.Definitions()
}

func (t *TracingToolHost) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	spanCtx, span := t.tracer.Start(ctx.Context, "toolhost.Execute",
		trace.WithAttributes(
			attribute.String("entity_id", t.entityID),
			attribute.String("plugin_id", t.inner.PluginID()),
			attribute.String("tool_name", toolName),
			attribute.String("agent_id", ctx.AgentID),
		),
	)
	defer span.End()

	ctx.Context = spanCtx
	result := t.inner.Execute(toolName, params, ctx)
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}
	span.SetAttributes(attribute.Int64("duration_ms", result.DurationMs))
	return result
}
