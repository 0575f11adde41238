package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func boardIDAttr(boardID string) attribute.KeyValue {
	return attribute.String("board_id", boardID)
}

// Metrics collects board-runner-lifecycle counters via the OpenTelemetry
// metrics API, exported through a Prometheus registry. A nil *Metrics is
// valid and every method on it is a no-op, matching the nil-receiver
// convention the Budget Tracker's own metrics type uses, so the board
// runner can carry an optional *Metrics field without branching at every
// call site.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	boardsStarted metric.Int64Counter
	actorsStarted metric.Int64Counter
	workRouted    metric.Int64Counter
}

// NewMetrics builds a Metrics backed by its own Prometheus registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("observability: build prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("hexboard.board")

	boardsStarted, err := meter.Int64Counter("hexboard_boards_started_total",
		metric.WithDescription("Number of board start lifecycles completed."))
	if err != nil {
		return nil, fmt.Errorf("observability: register boards_started counter: %w", err)
	}
	actorsStarted, err := meter.Int64Counter("hexboard_actors_started_total",
		metric.WithDescription("Number of hex actors started across all boards."))
	if err != nil {
		return nil, fmt.Errorf("observability: register actors_started counter: %w", err)
	}
	workRouted, err := meter.Int64Counter("hexboard_work_routed_total",
		metric.WithDescription("Number of completed work items routed to an adjacent tool."))
	if err != nil {
		return nil, fmt.Errorf("observability: register work_routed counter: %w", err)
	}

	return &Metrics{
		registry:      registry,
		provider:      provider,
		boardsStarted: boardsStarted,
		actorsStarted: actorsStarted,
		workRouted:    workRouted,
	}, nil
}

// Registry returns the metrics' own Prometheus registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Shutdown flushes and closes the underlying meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) BoardStarted(boardID string) {
	if m == nil {
		return
	}
	m.boardsStarted.Add(context.Background(), 1, metric.WithAttributes(boardIDAttr(boardID)))
}

func (m *Metrics) ActorStarted(boardID string) {
	if m == nil {
		return
	}
	m.actorsStarted.Add(context.Background(), 1, metric.WithAttributes(boardIDAttr(boardID)))
}

func (m *Metrics) WorkRouted(boardID string) {
	if m == nil {
		return
	}
	m.workRouted.Add(context.Background(), 1, metric.WithAttributes(boardIDAttr(boardID)))
}
