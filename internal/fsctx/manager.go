// Package fsctx implements the Filesystem Context Manager:
// per-agent read logs and per-path last-modification records used for
// read-before-write enforcement and staleness detection.
package fsctx

import (
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/reservation"
)

type readKey struct {
	filesystemID string
	agentID      string
	path         string
}

type modKey struct {
	filesystemID string
	path         string
}

// Manager holds the nested read/modification maps for one board run.
type Manager struct {
	mu       sync.Mutex
	reads    map[readKey]model.FileReadRecord
	lastMods map[modKey]model.LastModification
	now      func() time.Time
	sub      event.Subscription
}

func New() *Manager {
	return &Manager{
		reads:    make(map[readKey]model.FileReadRecord),
		lastMods: make(map[modKey]model.LastModification),
		now:      time.Now,
	}
}

// Start subscribes to filesystem.changed and clears prior state, matching
// the Board Runner's "clear & subscribe" lifecycle step.
func (m *Manager) Start(bus *event.Bus) {
	m.ClearAll()
	m.sub = bus.SubscribeType(event.TypeFilesystemChanged, m.handleChanged)
}

// Stop unsubscribes and clears state.
func (m *Manager) Stop() {
	if m.sub != nil {
		m.sub()
		m.sub = nil
	}
	m.ClearAll()
}

func (m *Manager) handleChanged(ev model.EngineEvent) {
	fsID, _ := ev.Data["filesystem_id"].(string)
	p, _ := ev.Data["path"].(string)
	agentID, _ := ev.Data["agent_id"].(string)
	agentName, _ := ev.Data["agent_name"].(string)
	modTime := m.now()
	if mt, ok := ev.Data["mod_time"].(time.Time); ok {
		modTime = mt
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMods[modKey{fsID, normalize(p)}] = model.LastModification{
		FilesystemID: fsID,
		Path:         normalize(p),
		AgentID:      agentID,
		AgentName:    agentName,
		ModTime:      modTime,
	}
}

func normalize(p string) string { return reservation.NormalizePath(p) }

// RecordRead stores the modification time the agent observed for path at
// read time.
func (m *Manager) RecordRead(agentID, filesystemID, path string, mtime time.Time, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[readKey{filesystemID, agentID, normalize(path)}] = model.FileReadRecord{
		AgentID:       agentID,
		FilesystemID:  filesystemID,
		Path:          normalize(path),
		ModTimeAtRead: mtime,
		ReadAt:        m.now(),
		Hash:          hash,
	}
}

// CheckReadBeforeWrite reports whether agentID may write path. A write to
// a file that does not yet exist is always permitted (new file); writing
// an existing file requires a prior read record for the same
// (agent, filesystem, path) triple.
func (m *Manager) CheckReadBeforeWrite(agentID, filesystemID, path string, fileExists bool) bool {
	if !fileExists {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.reads[readKey{filesystemID, agentID, normalize(path)}]
	return ok
}

// StaleFile describes one file an agent's last read is now stale against.
type StaleFile struct {
	FilesystemID  string
	Path          string
	ModifiedBy    string
	ModifiedAt    time.Time
	LastReadAt    time.Time
}

// CheckStaleness reports whether agentID's last read of path is stale: a
// read record exists, a later modification exists, and that modification
// was authored by a different agent. Own-writes never produce staleness.
func (m *Manager) CheckStaleness(agentID, filesystemID, path string) (StaleFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkStalenessLocked(agentID, filesystemID, normalize(path))
}

func (m *Manager) checkStalenessLocked(agentID, filesystemID, path string) (StaleFile, bool) {
	read, ok := m.reads[readKey{filesystemID, agentID, path}]
	if !ok {
		return StaleFile{}, false
	}
	mod, ok := m.lastMods[modKey{filesystemID, path}]
	if !ok {
		return StaleFile{}, false
	}
	if mod.AgentID == agentID {
		return StaleFile{}, false
	}
	if !mod.ModTime.After(read.ModTimeAtRead) {
		return StaleFile{}, false
	}
	return StaleFile{
		FilesystemID: filesystemID,
		Path:         path,
		ModifiedBy:   mod.AgentName,
		ModifiedAt:   mod.ModTime,
		LastReadAt:   read.ReadAt,
	}, true
}

// GetAllStaleFiles aggregates stale files across every filesystem the
// agent has read from.
func (m *Manager) GetAllStaleFiles(agentID string) []StaleFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []StaleFile
	for key := range m.reads {
		if key.agentID != agentID {
			continue
		}
		if sf, stale := m.checkStalenessLocked(agentID, key.filesystemID, key.path); stale {
			out = append(out, sf)
		}
	}
	return out
}

// ClearAgent drops every read record for one agent (e.g. on work-item
// completion), leaving modification history intact.
func (m *Manager) ClearAgent(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.reads {
		if key.agentID == agentID {
			delete(m.reads, key)
		}
	}
}

// ClearAll drops every read and modification record.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = make(map[readKey]model.FileReadRecord)
	m.lastMods = make(map[modKey]model.LastModification)
}
