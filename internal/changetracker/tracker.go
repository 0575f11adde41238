// Package changetracker implements the rolling filesystem-mutation log,
// bounded by entry count and age, filtered for LLM prompt injection by
// accessible filesystem id and excluding the requesting agent.
package changetracker

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
)

const (
	// MaxEntries bounds the rolling log.
	MaxEntries = 30
	// MaxAge bounds the rolling log.
	MaxAge = 10 * time.Minute
)

// Tracker is the per-board-run rolling change log.
type Tracker struct {
	mu      sync.Mutex
	entries []model.ChangeEntry
	now     func() time.Time
	sub     event.Subscription
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{now: time.Now}
}

// Start clears the log and subscribes to filesystem.changed events on bus,
// matching the Board Runner's "clear & subscribe" lifecycle step.
func (t *Tracker) Start(bus *event.Bus) {
	t.Clear()
	t.sub = bus.SubscribeType(event.TypeFilesystemChanged, t.handleChanged)
}

// Stop unsubscribes and clears the log.
func (t *Tracker) Stop() {
	if t.sub != nil {
		t.sub()
		t.sub = nil
	}
	t.Clear()
}

func (t *Tracker) handleChanged(ev model.EngineEvent) {
	agentID, _ := ev.Data["agent_id"].(string)
	agentName, _ := ev.Data["agent_name"].(string)
	template, _ := ev.Data["template"].(string)
	operation, _ := ev.Data["operation"].(string)
	p, _ := ev.Data["path"].(string)
	fsID, _ := ev.Data["filesystem_id"].(string)

	t.Record(model.ChangeEntry{
		AgentID:      agentID,
		AgentName:    agentName,
		Template:     model.AgentTemplate(template),
		Operation:    operation,
		Path:         p,
		FilesystemID: fsID,
		Timestamp:    t.now(),
	})
}

// Record appends a mutation entry, trimming by age and count.
func (t *Tracker) Record(e model.ChangeEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	t.entries = append(t.entries, e)
	t.trimLocked()
}

func (t *Tracker) trimLocked() {
	cutoff := t.now().Add(-MaxAge)
	kept := t.entries[:0:0]
	for _, e := range t.entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) > MaxEntries {
		kept = kept[len(kept)-MaxEntries:]
	}
	t.entries = kept
}

// Clear empties the log.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Recent returns entries excluding the given agent and restricted to the
// supplied accessible filesystem ids, most recent first.
func (t *Tracker) Recent(excludeAgentID string, accessibleFilesystemIDs []string) []model.ChangeEntry {
	allowed := make(map[string]bool, len(accessibleFilesystemIDs))
	for _, id := range accessibleFilesystemIDs {
		allowed[id] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.trimLocked()

	out := make([]model.ChangeEntry, 0, len(t.entries))
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if e.AgentID == excludeAgentID {
			continue
		}
		if !allowed[e.FilesystemID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Summary renders Recent() as a short bullet list suitable for LLM prompt
// injection.
func Summary(entries []model.ChangeEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent Filesystem Changes\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s %s %s (by %s, %s ago)\n",
			e.Operation, e.Path, e.FilesystemID, e.AgentName, time.Since(e.Timestamp).Round(time.Second))
	}
	return b.String()
}
