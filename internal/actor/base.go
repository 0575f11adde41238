// Package actor implements the hex actor hierarchy: a common single-inbox
// base, the Agent Actor reasoning loop, and the Tool Actor tasklist queue.
package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/workqueue"
)

const (
	maxProcessedIDs     = 1000
	trimProcessedIDsTo  = 500
)

// ProcessFunc is the subclass hook Base invokes for each popped work item.
type ProcessFunc func(ctx context.Context, item *model.WorkItem)

// Base is the common skeleton every hex actor embeds: a single inbox
// processed single-flighted, with continuations scheduled as fresh
// goroutines rather than recursive calls so a long-running actor never
// grows its call stack.
type Base struct {
	boardID     string
	hexKey      string
	entityID    string
	displayName string

	bus   *event.Bus
	queue *workqueue.Queue
	log   *slog.Logger

	processFn ProcessFunc

	mu           sync.Mutex
	running      bool
	isProcessing bool
	inbox        []string
	processedSet map[string]bool
	processedLog []string
}

func newBase(boardID, hexKey, entityID, displayName string, bus *event.Bus, queue *workqueue.Queue, log *slog.Logger, processFn ProcessFunc) *Base {
	return &Base{
		boardID:      boardID,
		hexKey:       hexKey,
		entityID:     entityID,
		displayName:  displayName,
		bus:          bus,
		queue:        queue,
		log:          log,
		processFn:    processFn,
		processedSet: make(map[string]bool),
	}
}

// HexKey returns the actor's hex key.
func (b *Base) HexKey() string { return b.hexKey }

// EntityID returns the actor's entity id.
func (b *Base) EntityID() string { return b.entityID }

// Start marks the actor running and announces idle status.
func (b *Base) Start() {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
	b.emit(event.TypeHexStatus, map[string]any{"status": string(model.EntityIdle)})
}

// Stop clears the running flag and announces disabled status. In-flight
// processing is left to finish; callers that need to abort in-flight work
// (the Agent Actor's LLM call) do so before calling Stop.
func (b *Base) Stop() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
	b.emit(event.TypeHexStatus, map[string]any{"status": string(model.EntityDisabled)})
}

func (b *Base) emit(eventType string, data map[string]any) {
	b.bus.Emit(model.EngineEvent{
		Type:      eventType,
		HexID:     b.hexKey,
		BoardID:   b.boardID,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// ReceiveWork enqueues w for processing. Refused when the actor is
// stopped, when w.ID has already been processed, or when it is already
// queued. On acceptance it emits work.received and schedules a processing
// step on a fresh goroutine.
func (b *Base) ReceiveWork(w *model.WorkItem) bool {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return false
	}
	if b.processedSet[w.ID] {
		b.mu.Unlock()
		return false
	}
	for _, id := range b.inbox {
		if id == w.ID {
			b.mu.Unlock()
			return false
		}
	}
	b.inbox = append(b.inbox, w.ID)
	b.mu.Unlock()

	b.emit(event.TypeWorkReceived, map[string]any{"work_item_id": w.ID})
	go b.step()
	return true
}

// step pops and processes one work item if the actor is not already
// processing one, then schedules another step as a continuation if the
// inbox is non-empty and the actor is still running.
func (b *Base) step() {
	b.mu.Lock()
	if b.isProcessing || !b.running || len(b.inbox) == 0 {
		b.mu.Unlock()
		return
	}
	id := b.inbox[0]
	b.inbox = b.inbox[1:]
	b.markProcessedLocked(id)
	b.isProcessing = true
	b.mu.Unlock()

	b.runOne(id)

	b.mu.Lock()
	b.isProcessing = false
	more := b.running && len(b.inbox) > 0
	b.mu.Unlock()

	if more {
		go b.step()
	}
}

func (b *Base) runOne(id string) {
	item, ok := b.queue.Get(id)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("actor panicked processing work item", "work_item_id", id, "recover", r)
			b.emit(event.TypeError, map[string]any{"work_item_id": id, "error": fmt.Sprintf("%v", r)})
		}
	}()
	b.processFn(context.Background(), item)
}

func (b *Base) markProcessedLocked(id string) {
	if b.processedSet[id] {
		return
	}
	b.processedSet[id] = true
	b.processedLog = append(b.processedLog, id)
	if len(b.processedLog) > maxProcessedIDs {
		drop := b.processedLog[:len(b.processedLog)-trimProcessedIDsTo]
		for _, d := range drop {
			delete(b.processedSet, d)
		}
		b.processedLog = b.processedLog[len(b.processedLog)-trimProcessedIDsTo:]
	}
}

// GetWorkStatus reports inbox length and whether a work item is currently
// being processed, for UI aggregation.
func (b *Base) GetWorkStatus() (inboxLen int, processing int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isProcessing {
		processing = 1
	}
	return len(b.inbox), processing
}

// IsIdle reports whether the actor's inbox is empty and it is not
// currently processing a work item.
func (b *Base) IsIdle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inbox) == 0 && !b.isProcessing
}

// Running reports whether Start has been called without a matching Stop.
func (b *Base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}
