package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/store"
)

func newTestTracker(t *testing.T, boardID string, limits Limits) (*Tracker, *event.Bus, *store.MemoryAdapter) {
	t.Helper()
	bus := event.New()
	adapter := store.NewMemoryAdapter()
	require.NoError(t, adapter.CreateBoard(t.Context(), &store.BoardRecord{ID: boardID}))
	tr := New(boardID, bus, adapter, NewMetrics(), limits, Usage{})
	t.Cleanup(tr.Stop)
	return tr, bus, adapter
}

func TestRecordAccumulatesAndEmitsBudgetUpdated(t *testing.T) {
	tr, bus, _ := newTestTracker(t, "b1", Limits{})

	var received []model.EngineEvent
	bus.SubscribeType(event.TypeBudgetUpdated, func(ev model.EngineEvent) {
		received = append(received, ev)
	})

	tr.Record(t.Context(), 1.5, 100)
	tr.Record(t.Context(), 2.5, 50)

	require.Len(t, received, 2)
	usage := tr.Usage()
	assert.Equal(t, 4.0, usage.TotalDollars)
	assert.Equal(t, uint64(150), usage.TotalTokens)
}

func TestBudgetExceededFiresAtMostOncePerRun(t *testing.T) {
	tr, bus, _ := newTestTracker(t, "b1", Limits{MaxDollars: 5})

	var exceededCount int
	bus.SubscribeType(event.TypeBudgetExceeded, func(ev model.EngineEvent) {
		exceededCount++
	})

	tr.Record(t.Context(), 3, 0)
	assert.False(t, tr.Exceeded())
	assert.Equal(t, 0, exceededCount)

	tr.Record(t.Context(), 3, 0) // total 6 > 5
	assert.True(t, tr.Exceeded())
	assert.Equal(t, 1, exceededCount)

	tr.Record(t.Context(), 1, 0) // still over, must not re-fire
	assert.Equal(t, 1, exceededCount)
}

func TestZeroLimitIsUnlimited(t *testing.T) {
	tr, bus, _ := newTestTracker(t, "b1", Limits{})

	var exceededCount int
	bus.SubscribeType(event.TypeBudgetExceeded, func(ev model.EngineEvent) { exceededCount++ })

	tr.Record(t.Context(), 1_000_000, 1_000_000_000)
	assert.False(t, tr.Exceeded())
	assert.Equal(t, 0, exceededCount)
}

func TestLimitsUpdatedResetsExceededWhenBackUnderBudget(t *testing.T) {
	tr, bus, _ := newTestTracker(t, "b1", Limits{MaxDollars: 5})

	tr.Record(t.Context(), 10, 0)
	require.True(t, tr.Exceeded())

	bus.Emit(model.EngineEvent{
		Type:      event.TypeBudgetLimitsUpdated,
		BoardID:   "b1",
		Data:      map[string]any{"max_dollars": 20.0},
		Timestamp: time.Now(),
	})
	assert.False(t, tr.Exceeded())

	var exceededCount int
	bus.SubscribeType(event.TypeBudgetExceeded, func(ev model.EngineEvent) { exceededCount++ })
	tr.Record(t.Context(), 0, 0)
	assert.Equal(t, 0, exceededCount)
}

func TestHandleLLMResponseFiltersByBoardAndExtractsUsage(t *testing.T) {
	tr, bus, _ := newTestTracker(t, "b1", Limits{})

	bus.Emit(model.EngineEvent{
		Type:      event.TypeLLMResponse,
		BoardID:   "other-board",
		Data:      map[string]any{"cost_dollars": 9.0, "total_tokens": uint64(900)},
		Timestamp: time.Now(),
	})
	assert.Zero(t, tr.Usage().TotalDollars)

	bus.Emit(model.EngineEvent{
		Type:      event.TypeLLMResponse,
		BoardID:   "b1",
		Data:      map[string]any{"cost_dollars": 0.25, "total_tokens": uint64(42)},
		Timestamp: time.Now(),
	})
	usage := tr.Usage()
	assert.Equal(t, 0.25, usage.TotalDollars)
	assert.Equal(t, uint64(42), usage.TotalTokens)
}

func TestNilMetricsIsNoOp(t *testing.T) {
	bus := event.New()
	adapter := store.NewMemoryAdapter()
	require.NoError(t, adapter.CreateBoard(t.Context(), &store.BoardRecord{ID: "b1"}))

	tr := New("b1", bus, adapter, nil, Limits{MaxDollars: 1}, Usage{})
	defer tr.Stop()

	assert.NotPanics(t, func() {
		tr.Record(t.Context(), 5, 0)
	})
	assert.True(t, tr.Exceeded())
}

func TestMetricsGatherReflectsUsage(t *testing.T) {
	m := NewMetrics()
	bus := event.New()
	adapter := store.NewMemoryAdapter()
	require.NoError(t, adapter.CreateBoard(t.Context(), &store.BoardRecord{ID: "b1"}))

	tr := New("b1", bus, adapter, m, Limits{}, Usage{})
	defer tr.Stop()
	tr.Record(t.Context(), 2.5, 10)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() == "hexboard_board_total_dollars" {
			found = true
			require.Len(t, fam.GetMetric(), 1)
			assert.Equal(t, 2.5, fam.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "expected hexboard_board_total_dollars to be registered")
}
