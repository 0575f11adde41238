package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/changetracker"
	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/fsctx"
	"github.com/kadirpekel/hexboard/internal/hexcoord"
	"github.com/kadirpekel/hexboard/internal/llmprovider"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/obslog"
	"github.com/kadirpekel/hexboard/internal/reservation"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

func newTestAgent(t *testing.T, provider llmprovider.Provider, tools func() []ToolBinding) (*Agent, *event.Bus, *workqueue.Queue) {
	t.Helper()
	bus := event.New()
	queue := workqueue.New()
	if tools == nil {
		tools = func() []ToolBinding { return nil }
	}
	deps := AgentDeps{
		BoardID:       "b1",
		HexKey:        "1,0",
		EntityID:      "agent-1",
		DisplayName:   "coder",
		Coord:         hexcoord.Coord{Q: 1, R: 0},
		Attrs:         model.AgentAttributes{ModelID: "mock-model"},
		Bus:           bus,
		Queue:         queue,
		FSManager:     fsctx.New(),
		Reservations:  reservation.New(),
		ChangeTracker: changetracker.New(),
		Provider:      provider,
		Tools:         tools,
		Log:           obslog.Get(),
	}
	return NewAgent(deps), bus, queue
}

func TestAgentCompletesOnSentinelWithNoToolCalls(t *testing.T) {
	a, bus, queue := newTestAgent(t, llmprovider.NewMock(), nil)
	a.Start()
	defer a.Stop()

	completed := make(chan model.EngineEvent, 1)
	bus.SubscribeType(event.TypeWorkCompleted, func(ev model.EngineEvent) { completed <- ev })

	item := queue.Create(model.WorkItem{BoardID: "b1", SourceHexID: "1,0", CurrentHexID: "1,0", Status: model.WorkPending})
	require.True(t, a.ReceiveWork(item))

	select {
	case ev := <-completed:
		assert.Equal(t, item.ID, ev.Data["work_item_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for work.completed event")
	}

	got, ok := queue.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, model.WorkCompleted, got.Status)
}

func TestAgentFailsWhenBudgetAlreadyExceeded(t *testing.T) {
	bus := event.New()
	queue := workqueue.New()
	deps := AgentDeps{
		BoardID:       "b1",
		HexKey:        "1,0",
		EntityID:      "agent-1",
		DisplayName:   "coder",
		Coord:         hexcoord.Coord{Q: 1, R: 0},
		Attrs:         model.AgentAttributes{ModelID: "mock-model"},
		Bus:           bus,
		Queue:         queue,
		FSManager:     fsctx.New(),
		Reservations:  reservation.New(),
		ChangeTracker: changetracker.New(),
		Provider:      llmprovider.NewMock(),
		Tools:         func() []ToolBinding { return nil },
		BudgetExceeded: func() bool { return true },
		Log:           obslog.Get(),
	}
	a := NewAgent(deps)
	a.Start()
	defer a.Stop()

	item := queue.Create(model.WorkItem{BoardID: "b1", Status: model.WorkPending})
	require.True(t, a.ReceiveWork(item))

	require.Eventually(t, func() bool {
		got, ok := queue.Get(item.ID)
		return ok && got.Status == model.WorkFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentFailsWhenProviderErrors(t *testing.T) {
	mock := llmprovider.NewMock()
	mock.SetError(assert.AnError)
	a, _, queue := newTestAgent(t, mock, nil)
	a.Start()
	defer a.Stop()

	item := queue.Create(model.WorkItem{BoardID: "b1", Status: model.WorkPending})
	require.True(t, a.ReceiveWork(item))

	require.Eventually(t, func() bool {
		got, ok := queue.Get(item.ID)
		return ok && got.Status == model.WorkFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := queue.Get(item.ID)
	assert.NotEmpty(t, got.FailureError)
}
