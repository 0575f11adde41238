// Package event implements the typed pub/sub fanout: subscription by
// type, by hex id, by board id, plus a firehose. Handler panics/errors
// are caught and logged without blocking sibling subscribers.
package event

import (
	"sync"

	"github.com/google/uuid"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/obslog"
)

// Handler receives emitted events. It must not panic; if it does, the Bus
// recovers, logs, and continues notifying other subscribers.
type Handler func(model.EngineEvent)

// Subscription is the opaque handle returned by every Subscribe* call.
// Invoking it deregisters the handler.
type Subscription func()

type entry struct {
	id      string
	handler Handler
}

// Bus is the process-wide (per board-run) event fanout. Zero value is not
// usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	byType      map[string][]entry
	byHex       map[string][]entry
	byBoard     map[string][]entry
	firehose    []entry
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		byType:  make(map[string][]entry),
		byHex:   make(map[string][]entry),
		byBoard: make(map[string][]entry),
	}
}

// SubscribeType registers h for every event of the given type.
func (b *Bus) SubscribeType(eventType string, h Handler) Subscription {
	id := uuid.NewString()
	b.mu.Lock()
	b.byType[eventType] = append(b.byType[eventType], entry{id: id, handler: h})
	b.mu.Unlock()
	return func() { b.unsubscribe(&b.byType, eventType, id) }
}

// SubscribeHex registers h for every event carrying the given hex id.
func (b *Bus) SubscribeHex(hexID string, h Handler) Subscription {
	id := uuid.NewString()
	b.mu.Lock()
	b.byHex[hexID] = append(b.byHex[hexID], entry{id: id, handler: h})
	b.mu.Unlock()
	return func() { b.unsubscribe(&b.byHex, hexID, id) }
}

// SubscribeBoard registers h for every event carrying the given board id.
func (b *Bus) SubscribeBoard(boardID string, h Handler) Subscription {
	id := uuid.NewString()
	b.mu.Lock()
	b.byBoard[boardID] = append(b.byBoard[boardID], entry{id: id, handler: h})
	b.mu.Unlock()
	return func() { b.unsubscribe(&b.byBoard, boardID, id) }
}

// SubscribeAll registers h as a firehose subscriber for every event.
func (b *Bus) SubscribeAll(h Handler) Subscription {
	id := uuid.NewString()
	b.mu.Lock()
	b.firehose = append(b.firehose, entry{id: id, handler: h})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.firehose = removeEntry(b.firehose, id)
	}
}

func (b *Bus) unsubscribe(table *map[string][]entry, key, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := (*table)[key]
	list = removeEntry(list, id)
	if len(list) == 0 {
		delete(*table, key)
	} else {
		(*table)[key] = list
	}
}

func removeEntry(list []entry, id string) []entry {
	out := list[:0:0]
	for _, e := range list {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Emit delivers ev to type-specific subscribers first, then hex- and
// board-scoped subscribers, then firehose subscribers. Subscriber sets are
// snapshotted under lock before invocation so that a handler unsubscribing
// mid-emit never skips an unrelated subscriber.
func (b *Bus) Emit(ev model.EngineEvent) {
	b.mu.RLock()
	typeSubs := append([]entry(nil), b.byType[ev.Type]...)
	var hexSubs, boardSubs []entry
	if ev.HexID != "" {
		hexSubs = append([]entry(nil), b.byHex[ev.HexID]...)
	}
	if ev.BoardID != "" {
		boardSubs = append([]entry(nil), b.byBoard[ev.BoardID]...)
	}
	fire := append([]entry(nil), b.firehose...)
	b.mu.RUnlock()

	invokeAll(ev, typeSubs)
	invokeAll(ev, hexSubs)
	invokeAll(ev, boardSubs)
	invokeAll(ev, fire)
}

func invokeAll(ev model.EngineEvent, subs []entry) {
	for _, e := range subs {
		invokeOne(ev, e.handler)
	}
}

func invokeOne(ev model.EngineEvent, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Get().Error("event handler panicked", "event_type", ev.Type, "hex_id", ev.HexID, "recover", r)
		}
	}()
	h(ev)
}
