package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/hexboard/internal/actor"
	"github.com/kadirpekel/hexboard/internal/budget"
	"github.com/kadirpekel/hexboard/internal/changetracker"
	"github.com/kadirpekel/hexboard/internal/config"
	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/fsctx"
	"github.com/kadirpekel/hexboard/internal/hexcoord"
	"github.com/kadirpekel/hexboard/internal/hexerr"
	"github.com/kadirpekel/hexboard/internal/llmprovider"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/obslog"
	"github.com/kadirpekel/hexboard/internal/rbac"
	"github.com/kadirpekel/hexboard/internal/reservation"
	"github.com/kadirpekel/hexboard/internal/store"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

// ProviderDecorator wraps a newly resolved llmprovider.Provider for one
// agent entity, e.g. to attach tracing spans. Left nil, providers are
// used as constructed.
type ProviderDecorator func(entityID string, p llmprovider.Provider) llmprovider.Provider

// ToolHostDecorator wraps a newly built actor.ToolHost for one tool
// entity. Left nil, hosts are used as constructed.
type ToolHostDecorator func(entityID string, h actor.ToolHost) actor.ToolHost

// Runner is the process-wide Board Runner: it owns no per-board state
// itself, only the shared singletons (bus, store, provider registry,
// plugin catalog) and a map of currently running boards.
type Runner struct {
	Bus       *event.Bus
	Adapter   store.Adapter
	Providers *llmprovider.Registry
	Plugins   *toolplugin.Registry
	Metrics   *budget.Metrics

	PluginFactory     PluginFactory
	ProviderDecorator ProviderDecorator
	ToolHostDecorator ToolHostDecorator

	mu     sync.Mutex
	boards map[string]*boardRun
}

// workReceiver is the common surface of every hex actor's inbox,
// satisfied by *actor.Agent, *actor.GenericToolActor, and *actor.ToolActor
// through their embedded *actor.Base.
type workReceiver interface {
	ReceiveWork(*model.WorkItem) bool
	EntityID() string
}

// toolEntry pairs one tool's adjacency placement with its dispatch host,
// the local equivalent of actor.ToolBinding but also carrying the entity
// id needed for hex-occupancy lookups.
type toolEntry struct {
	entityID  string
	placement rbac.ToolPlacement
	host      actor.ToolHost
}

// boardRun is the live state of one running board: its coordination
// singletons, its instantiated actors, and the bookkeeping the runner
// needs to stop it cleanly or detect configuration drift.
type boardRun struct {
	boardID string
	runner  *Runner

	queue         *workqueue.Queue
	reservations  *reservation.Manager
	changeTracker *changetracker.Tracker
	fsManager     *fsctx.Manager
	budgetTracker *budget.Tracker

	mu               sync.Mutex
	status           model.BoardStatus
	receivers        map[string]workReceiver    // entityID -> inbox
	categoryByEntity map[string]model.EntityCategory
	hexKeyToEntity   map[string]string
	tools            []toolEntry
	fingerprints     map[string]string

	actorStarts []func() []event.Subscription
	actorStops  []func()
	subs        []event.Subscription
	watchUnsub  func()
}

// NewRunner constructs a Runner. providers and plugins may be pre-seeded
// by the caller (builtin plugins registered via plugins.RegisterBuiltins,
// provider instances registered under their config name); metrics may be
// nil. PluginFactory defaults to DefaultPluginFactory.
func NewRunner(bus *event.Bus, adapter store.Adapter, providers *llmprovider.Registry, pluginCatalog *toolplugin.Registry, metrics *budget.Metrics) *Runner {
	return &Runner{
		Bus:           bus,
		Adapter:       adapter,
		Providers:     providers,
		Plugins:       pluginCatalog,
		Metrics:       metrics,
		PluginFactory: DefaultPluginFactory,
		boards:        make(map[string]*boardRun),
	}
}

// Status reports a running board's lifecycle status.
func (r *Runner) Status(boardID string) (model.BoardStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.boards[boardID]
	if !ok {
		return "", false
	}
	br.mu.Lock()
	defer br.mu.Unlock()
	return br.status, true
}

// Start runs the Board Runner's eight-step startup lifecycle for boardID:
// clear and subscribe the coordination singletons, instantiate one actor
// per placed entity, start every actor concurrently, start the Budget
// Tracker, subscribe to persisted configuration drift, and transition to
// running.
func (r *Runner) Start(ctx context.Context, boardID string) error {
	r.mu.Lock()
	if _, running := r.boards[boardID]; running {
		r.mu.Unlock()
		return hexerr.NewBoardError("start", fmt.Sprintf("board %q is already running", boardID), nil)
	}
	br := &boardRun{
		boardID:          boardID,
		runner:           r,
		queue:            workqueue.New(),
		reservations:     reservation.New(),
		changeTracker:    changetracker.New(),
		fsManager:        fsctx.New(),
		receivers:        make(map[string]workReceiver),
		categoryByEntity: make(map[string]model.EntityCategory),
		hexKeyToEntity:   make(map[string]string),
		fingerprints:     make(map[string]string),
	}
	r.boards[boardID] = br
	r.mu.Unlock()

	log := obslog.ForBoard(boardID)
	r.Bus.Emit(boardEvent(boardID, event.TypeBoardStarting, nil))

	br.reservations.ClearAll()
	br.changeTracker.Start(r.Bus)
	br.fsManager.Start(r.Bus)

	rec, err := r.Adapter.GetBoard(ctx, boardID)
	if err != nil {
		r.failStart(boardID, br, fmt.Errorf("load board: %w", err))
		return hexerr.NewBoardError("start", "failed to load board record", err)
	}

	hexes, err := r.Adapter.ListHexes(ctx, boardID)
	if err != nil {
		r.failStart(boardID, br, fmt.Errorf("list hexes: %w", err))
		return hexerr.NewBoardError("start", "failed to list board hexes", err)
	}

	if err := r.instantiateEntities(br, hexes, log); err != nil {
		r.failStart(boardID, br, err)
		return hexerr.NewBoardError("start", "failed to instantiate entities", err)
	}

	eg, _ := errgroup.WithContext(ctx)
	var subsMu sync.Mutex
	for _, start := range br.actorStarts {
		start := start
		eg.Go(func() error {
			subs := start()
			subsMu.Lock()
			br.subs = append(br.subs, subs...)
			subsMu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	bt := budget.New(boardID, r.Bus, r.Adapter, r.Metrics, budget.Limits{
		MaxDollars: rec.MaxDollars,
		MaxTokens:  rec.MaxTokens,
	}, budget.Usage{
		TotalDollars: rec.TotalDollars,
		TotalTokens:  rec.TotalTokens,
	})
	br.mu.Lock()
	br.budgetTracker = bt
	br.mu.Unlock()

	br.subs = append(br.subs,
		r.Bus.SubscribeType(event.TypeBudgetExceeded, func(ev model.EngineEvent) {
			if ev.BoardID != boardID {
				return
			}
			log.Warn("budget exceeded, stopping board")
			go r.Stop(boardID)
		}),
		r.Bus.SubscribeType(event.TypeWorkCompleted, func(ev model.EngineEvent) {
			if ev.BoardID != boardID {
				return
			}
			br.routeWorkToAdjacent(ev)
		}),
	)

	br.watchUnsub = r.Adapter.Watch(boardID, func(hexID string) {
		br.handleConfigDrift(ctx, hexID)
	})

	br.mu.Lock()
	br.status = model.BoardRunning
	br.mu.Unlock()
	r.Bus.Emit(boardEvent(boardID, event.TypeBoardStarted, nil))
	return nil
}

func (r *Runner) failStart(boardID string, br *boardRun, cause error) {
	r.mu.Lock()
	delete(r.boards, boardID)
	r.mu.Unlock()
	br.changeTracker.Stop()
	br.fsManager.Stop()
	br.mu.Lock()
	br.status = model.BoardError
	br.mu.Unlock()
	r.Bus.Emit(boardEvent(boardID, event.TypeBoardError, map[string]any{"error": cause.Error()}))
}

// instantiateEntities snapshots placed entities, decodes each one's
// config, and builds the actor plus start/stop closures for it. A single
// entity's instantiation failure is logged and skipped rather than
// aborting the whole board start, matching how a partially misconfigured
// board is still worth bringing up.
func (r *Runner) instantiateEntities(br *boardRun, hexes []*store.HexRecord, log interface {
	Warn(string, ...any)
	Error(string, ...any)
}) error {
	for _, h := range hexes {
		coord := hexcoord.Coord{Q: h.PositionQ, R: h.PositionR}
		hexKey := coord.Key()
		category := model.EntityCategory(h.Category)

		entity, err := config.DecodeEntity(h.ID, h.Name, category, h.EntityType, h.Config)
		if err != nil {
			log.Error("board: skipping entity with undecodable config", "entity_id", h.ID, "error", err)
			continue
		}

		br.mu.Lock()
		br.categoryByEntity[h.ID] = category
		br.hexKeyToEntity[hexKey] = h.ID
		br.fingerprints[h.ID] = config.Fingerprint(entity, h.Config)
		br.mu.Unlock()

		switch category {
		case model.CategoryTool:
			if err := r.instantiateTool(br, h, hexKey, coord, entity); err != nil {
				log.Error("board: skipping tool entity", "entity_id", h.ID, "error", err)
			}
		case model.CategoryAgent:
			if err := r.instantiateAgent(br, h, hexKey, coord, entity, log); err != nil {
				log.Error("board: skipping agent entity", "entity_id", h.ID, "error", err)
			}
		default:
			log.Warn("board: unknown entity category, skipping", "entity_id", h.ID, "category", h.Category)
		}
	}
	return nil
}

func (r *Runner) instantiateTool(br *boardRun, h *store.HexRecord, hexKey string, coord hexcoord.Coord, entity model.Entity) error {
	attrs := entity.Tool
	factory := r.PluginFactory
	if factory == nil {
		factory = DefaultPluginFactory
	}
	plugin, ok := factory(attrs.ToolType)
	if !ok {
		return errUnknownToolType(attrs.ToolType)
	}
	if err := plugin.Initialize(attrs.Config); err != nil {
		return fmt.Errorf("initialize plugin %q: %w", attrs.ToolType, err)
	}

	toolLog := obslog.ForHex(br.boardID, h.ID)
	var host actor.ToolHost
	var start func() []event.Subscription
	var stop func()

	if attrs.ToolType == model.ToolTasklist {
		ta := actor.NewToolActor(br.boardID, hexKey, h.ID, h.Name, r.Bus, br.queue, toolLog)
		host = actor.NewToolActorHost(ta, plugin)
		br.mu.Lock()
		br.receivers[h.ID] = ta
		br.mu.Unlock()
		start = func() []event.Subscription { ta.Start(attrs.Config); return nil }
		stop = ta.Stop
	} else {
		gta := actor.NewGenericToolActor(br.boardID, hexKey, h.ID, h.Name, r.Bus, br.queue, toolLog, plugin)
		host = gta
		br.mu.Lock()
		br.receivers[h.ID] = gta
		br.mu.Unlock()
		start = func() []event.Subscription { gta.Start(); return nil }
		stop = gta.Stop
	}

	if r.ToolHostDecorator != nil {
		host = r.ToolHostDecorator(h.ID, host)
	}

	br.mu.Lock()
	br.tools = append(br.tools, toolEntry{
		entityID:  h.ID,
		placement: rbac.ToolPlacement{HexKey: hexKey, Coord: coord, Attrs: *attrs},
		host:      host,
	})
	br.actorStarts = append(br.actorStarts, start)
	br.actorStops = append(br.actorStops, stop)
	br.mu.Unlock()
	return nil
}

func (r *Runner) instantiateAgent(br *boardRun, h *store.HexRecord, hexKey string, coord hexcoord.Coord, entity model.Entity, log interface {
	Warn(string, ...any)
	Error(string, ...any)
}) error {
	attrs := entity.Agent
	provider, ok := r.Providers.Get(attrs.Provider)
	if !ok {
		return fmt.Errorf("no provider registered under name %q", attrs.Provider)
	}
	if r.ProviderDecorator != nil {
		provider = r.ProviderDecorator(h.ID, provider)
	}

	var tokenCounter *llmprovider.TokenCounter
	if tc, err := llmprovider.NewTokenCounter(attrs.ModelID); err != nil {
		log.Warn("board: token counter unavailable for model, falling back to provider-reported usage only", "model", attrs.ModelID, "error", err)
	} else {
		tokenCounter = tc
	}

	deps := actor.AgentDeps{
		BoardID:          br.boardID,
		HexKey:           hexKey,
		EntityID:         h.ID,
		DisplayName:      h.Name,
		Coord:            coord,
		Attrs:            *attrs,
		Bus:              r.Bus,
		Queue:            br.queue,
		FSManager:        br.fsManager,
		Reservations:     br.reservations,
		ChangeTracker:    br.changeTracker,
		Provider:         provider,
		TokenCounter:     tokenCounter,
		Tools:            func() []actor.ToolBinding { return br.reachableTools(coord) },
		GetTasklistActor: br.getTasklistActor,
		BudgetExceeded:   br.isBudgetExceeded,
		Log:              obslog.ForAgent(br.boardID, hexKey, h.ID),
	}
	ag := actor.NewAgent(deps)

	br.mu.Lock()
	br.receivers[h.ID] = ag
	br.actorStarts = append(br.actorStarts, func() []event.Subscription { return ag.Start() })
	br.actorStops = append(br.actorStops, ag.Stop)
	br.mu.Unlock()
	return nil
}

func (br *boardRun) reachableTools(agentCoord hexcoord.Coord) []actor.ToolBinding {
	br.mu.Lock()
	entries := append([]toolEntry(nil), br.tools...)
	br.mu.Unlock()

	var out []actor.ToolBinding
	for _, e := range entries {
		if _, ok := rbac.Reaches(e.placement, agentCoord); ok {
			out = append(out, actor.ToolBinding{Placement: e.placement, Host: e.host})
		}
	}
	return out
}

func (br *boardRun) getTasklistActor(hexKey string) (actor.TasklistAccessor, bool) {
	br.mu.Lock()
	entityID, ok := br.hexKeyToEntity[hexKey]
	if !ok {
		br.mu.Unlock()
		return nil, false
	}
	receiver, ok := br.receivers[entityID]
	br.mu.Unlock()
	if !ok {
		return nil, false
	}
	accessor, ok := receiver.(actor.TasklistAccessor)
	return accessor, ok
}

func (br *boardRun) isBudgetExceeded() bool {
	br.mu.Lock()
	bt := br.budgetTracker
	br.mu.Unlock()
	if bt == nil {
		return false
	}
	return bt.Exceeded()
}

// Stop runs the Board Runner's five-step shutdown lifecycle: stop the
// Budget Tracker, stop every actor concurrently (aborting in-flight LLM
// calls), clear the coordination singletons, and transition to stopped.
func (r *Runner) Stop(boardID string) error {
	r.mu.Lock()
	br, ok := r.boards[boardID]
	if !ok {
		r.mu.Unlock()
		return hexerr.NewBoardError("stop", fmt.Sprintf("board %q is not running", boardID), nil)
	}
	delete(r.boards, boardID)
	r.mu.Unlock()

	r.Bus.Emit(boardEvent(boardID, event.TypeBoardStopping, nil))

	if br.watchUnsub != nil {
		br.watchUnsub()
	}
	if br.budgetTracker != nil {
		br.budgetTracker.Stop()
	}

	var eg errgroup.Group
	br.mu.Lock()
	stops := append([]func(){}, br.actorStops...)
	br.mu.Unlock()
	for _, stop := range stops {
		stop := stop
		eg.Go(func() error { stop(); return nil })
	}
	_ = eg.Wait()

	for _, sub := range br.subs {
		sub()
	}

	br.reservations.ClearAll()
	br.changeTracker.Stop()
	br.fsManager.Stop()

	br.mu.Lock()
	br.status = model.BoardStopped
	br.mu.Unlock()
	r.Bus.Emit(boardEvent(boardID, event.TypeBoardStopped, nil))
	return nil
}

func boardEvent(boardID, eventType string, data map[string]any) model.EngineEvent {
	return model.EngineEvent{Type: eventType, BoardID: boardID, Data: data, Timestamp: time.Now()}
}
