// Package budget folds llm.response usage into a board's persistent
// spend/token counters and emits budget.updated/budget.exceeded events,
// instrumented with Prometheus gauges and counters.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/obslog"
	"github.com/kadirpekel/hexboard/internal/store"
)

// Limits is a board's budget configuration. A zero value on either field
// means that axis is unlimited.
type Limits struct {
	MaxDollars float64
	MaxTokens  uint64
}

// Usage is a board's persistent usage totals.
type Usage struct {
	TotalDollars float64
	TotalTokens  uint64
}

// Subscription mirrors event.Subscription to avoid importing the concrete
// type name into the tracker's public surface.
type Subscription = event.Subscription

// Tracker folds llm.response usage events into persistent counters and
// emits budget.updated/budget.exceeded per board run.
type Tracker struct {
	boardID string
	bus     *event.Bus
	adapter store.Adapter
	metrics *Metrics

	mu       sync.Mutex
	limits   Limits
	usage    Usage
	exceeded bool

	subResponse Subscription
	subLimits   Subscription
}

// New constructs a Tracker for one board run and subscribes it to
// llm.response and budget.limits.updated. metrics may be nil.
func New(boardID string, bus *event.Bus, adapter store.Adapter, metrics *Metrics, limits Limits, initial Usage) *Tracker {
	t := &Tracker{
		boardID: boardID,
		bus:     bus,
		adapter: adapter,
		metrics: metrics,
		limits:  limits,
		usage:   initial,
	}
	t.subResponse = bus.SubscribeType(event.TypeLLMResponse, t.handleLLMResponse)
	t.subLimits = bus.SubscribeType(event.TypeBudgetLimitsUpdated, t.handleLimitsUpdated)

	metrics.setUsage(boardID, initial.TotalDollars, initial.TotalTokens)
	return t
}

// Stop unsubscribes the tracker from the bus.
func (t *Tracker) Stop() {
	if t.subResponse != nil {
		t.subResponse()
	}
	if t.subLimits != nil {
		t.subLimits()
	}
}

func (t *Tracker) handleLimitsUpdated(ev model.EngineEvent) {
	if ev.BoardID != t.boardID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := ev.Data["max_dollars"].(float64); ok {
		t.limits.MaxDollars = v
	}
	if v, ok := ev.Data["max_tokens"].(uint64); ok {
		t.limits.MaxTokens = v
	}
	// Raising a limit above current totals resets the exceeded flag.
	if !t.overLimitLocked() {
		t.exceeded = false
	}
}

func (t *Tracker) handleLLMResponse(ev model.EngineEvent) {
	if ev.BoardID != t.boardID {
		return
	}
	dollars, _ := ev.Data["cost_dollars"].(float64)
	tokens, _ := ev.Data["total_tokens"].(uint64)
	if dollars == 0 && tokens == 0 {
		return
	}
	t.Record(context.Background(), dollars, tokens)
}

// Record applies a usage delta atomically via the storage adapter,
// falling back to local counting on storage failure, then emits
// budget.updated and, at most once per run, budget.exceeded.
func (t *Tracker) Record(ctx context.Context, deltaDollars float64, deltaTokens uint64) {
	newDollars, newTokens, err := t.adapter.AddBoardUsage(ctx, t.boardID, deltaDollars, deltaTokens)

	t.mu.Lock()
	if err != nil {
		obslog.ForBoard(t.boardID).Warn("budget: storage addBoardUsage failed, falling back to local counting", "error", err)
		t.usage.TotalDollars += deltaDollars
		t.usage.TotalTokens += deltaTokens
	} else {
		t.usage.TotalDollars = newDollars
		t.usage.TotalTokens = newTokens
	}
	usage := t.usage
	limits := t.limits
	t.mu.Unlock()

	t.metrics.setUsage(t.boardID, usage.TotalDollars, usage.TotalTokens)

	t.bus.Emit(model.EngineEvent{
		Type:    event.TypeBudgetUpdated,
		BoardID: t.boardID,
		Data: map[string]any{
			"total_dollars": usage.TotalDollars,
			"total_tokens":  usage.TotalTokens,
		},
		Timestamp: time.Now(),
	})

	t.maybeEmitExceeded(usage, limits)
}

func (t *Tracker) maybeEmitExceeded(usage Usage, limits Limits) {
	dollarsOver := limits.MaxDollars != 0 && usage.TotalDollars > limits.MaxDollars
	tokensOver := limits.MaxTokens != 0 && usage.TotalTokens > limits.MaxTokens

	t.mu.Lock()
	alreadyExceeded := t.exceeded
	shouldEmit := (dollarsOver || tokensOver) && !alreadyExceeded
	if shouldEmit {
		t.exceeded = true
	}
	t.mu.Unlock()

	if !shouldEmit {
		return
	}

	t.metrics.incExceeded(t.boardID)
	t.bus.Emit(model.EngineEvent{
		Type:    event.TypeBudgetExceeded,
		BoardID: t.boardID,
		Data: map[string]any{
			"total_dollars": usage.TotalDollars,
			"total_tokens":  usage.TotalTokens,
			"max_dollars":   limits.MaxDollars,
			"max_tokens":    limits.MaxTokens,
			"dollars_over":  dollarsOver,
			"tokens_over":   tokensOver,
		},
		Timestamp: time.Now(),
	})
}

func (t *Tracker) overLimitLocked() bool {
	dollarsOver := t.limits.MaxDollars != 0 && t.usage.TotalDollars > t.limits.MaxDollars
	tokensOver := t.limits.MaxTokens != 0 && t.usage.TotalTokens > t.limits.MaxTokens
	return dollarsOver || tokensOver
}

// Usage returns the tracker's current in-memory view of the totals.
func (t *Tracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Exceeded reports whether the tracker has already emitted
// budget.exceeded this run.
func (t *Tracker) Exceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exceeded
}
