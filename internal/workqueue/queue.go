// Package workqueue is the in-memory catalog of work items: keyed by id,
// with per-board and per-hex listing and per-status statistics. It is
// not persisted; state is lost on restart.
package workqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kadirpekel/hexboard/internal/model"
)

// Queue is the in-memory work-item store. Zero value is not usable;
// construct with New.
type Queue struct {
	mu    sync.RWMutex
	items map[string]*model.WorkItem
}

func New() *Queue {
	return &Queue{items: make(map[string]*model.WorkItem)}
}

// Create assigns a fresh opaque id (unless one is already set) and stores
// the item, returning the stored copy.
func (q *Queue) Create(item model.WorkItem) *model.WorkItem {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	q.mu.Lock()
	defer q.mu.Unlock()
	stored := item
	q.items[item.ID] = &stored
	return &stored
}

// Get returns the item with the given id, or nil if absent.
func (q *Queue) Get(id string) (*model.WorkItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	item, ok := q.items[id]
	if !ok {
		return nil, false
	}
	cp := *item
	return &cp, true
}

// Update applies mutate to the stored item and bumps UpdatedAt. Returns
// false if the item does not exist.
func (q *Queue) Update(id string, mutate func(*model.WorkItem)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return false
	}
	mutate(item)
	item.UpdatedAt = time.Now()
	return true
}

// Remove deletes the item with the given id.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, id)
}

// ListByBoard returns every item for a board, oldest first.
func (q *Queue) ListByBoard(boardID string) []*model.WorkItem {
	return q.filter(func(w *model.WorkItem) bool { return w.BoardID == boardID })
}

// ListByHex returns every item currently at the given hex, oldest first.
func (q *Queue) ListByHex(hexID string) []*model.WorkItem {
	return q.filter(func(w *model.WorkItem) bool { return w.CurrentHexID == hexID })
}

// ListByStatus returns every item in the given status, oldest first.
func (q *Queue) ListByStatus(status model.WorkItemStatus) []*model.WorkItem {
	return q.filter(func(w *model.WorkItem) bool { return w.Status == status })
}

func (q *Queue) filter(pred func(*model.WorkItem) bool) []*model.WorkItem {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*model.WorkItem, 0)
	for _, item := range q.items {
		if pred(item) {
			cp := *item
			out = append(out, &cp)
		}
	}
	sortByCreated(out)
	return out
}

func sortByCreated(items []*model.WorkItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].CreatedAt.Before(items[j-1].CreatedAt); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// BoardStats is a per-status count for a board.
type BoardStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Stuck      int
	Total      int
}

// Stats computes per-status counts for a board's work items.
func (q *Queue) Stats(boardID string) BoardStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var s BoardStats
	for _, item := range q.items {
		if item.BoardID != boardID {
			continue
		}
		s.Total++
		switch item.Status {
		case model.WorkPending:
			s.Pending++
		case model.WorkProcessing:
			s.Processing++
		case model.WorkCompleted:
			s.Completed++
		case model.WorkFailed:
			s.Failed++
		case model.WorkStuck:
			s.Stuck++
		}
	}
	return s
}
