package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/hexboard/internal/llmprovider"
)

// TracingProvider wraps an llmprovider.Provider, emitting one span per
// Complete call tagged with the owning entity id so a trace viewer can
// correlate LLM latency with a specific agent hex.
type TracingProvider struct {
	entityID string
	inner    llmprovider.Provider
	tracer   trace.Tracer
}

// NewTracingProvider wraps p for entityID using the "hexboard.llmprovider"
// tracer. Intended as a board.Runner.ProviderDecorator implementation.
func NewTracingProvider(entityID string, p llmprovider.Provider) llmprovider.Provider {
	return &TracingProvider{entityID: entityID, inner: p, tracer: GetTracer("hexboard.llmprovider")}
}

func (t *TracingProvider) Complete(ctx context.Context, req llmprovider.Request) (llmprovider.Response, error) {
	ctx, span := t.tracer.Start(ctx, "llmprovider.Complete",
		trace.WithAttributes(
			attribute.String("entity_id", t.entityID),
			attribute.String("model", req.Model),
			attribute.Int("message_count", len(req.Messages)),
		),
	)
	defer span.End()

	resp, err := t.inner.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		attribute.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
		attribute.Float64("cost_dollars", resp.Cost.TotalCost),
	)
	return resp, nil
}
