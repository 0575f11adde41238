package store

import (
	"context"
	"sync"
	"time"

	"github.com/kadirpekel/hexboard/internal/hexerr"
)

// MemoryAdapter is a process-local Adapter implementation used by tests;
// the CLI always opens a SQLAdapter. It satisfies the same atomicity
// guarantee for AddBoardUsage as SQLAdapter via a single mutex.
type MemoryAdapter struct {
	mu          sync.Mutex
	boards      map[string]*BoardRecord
	hexes       map[string]*HexRecord
	connections map[string]*ConnectionRecord
	settings    map[string]string
	watchers    map[string][]func(string)
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		boards:      make(map[string]*BoardRecord),
		hexes:       make(map[string]*HexRecord),
		connections: make(map[string]*ConnectionRecord),
		settings:    make(map[string]string),
		watchers:    make(map[string][]func(string)),
	}
}

func (m *MemoryAdapter) GetBoard(ctx context.Context, id string) (*BoardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return nil, hexerr.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryAdapter) ListBoards(ctx context.Context) ([]*BoardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*BoardRecord, 0, len(m.boards))
	for _, b := range m.boards {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryAdapter) CreateBoard(ctx context.Context, b *BoardRecord) error {
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.boards[b.ID] = &cp
	return nil
}

func (m *MemoryAdapter) UpdateBoard(ctx context.Context, b *BoardRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.boards[b.ID]
	if !ok {
		return hexerr.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now()
	cp := *b
	m.boards[b.ID] = &cp
	return nil
}

func (m *MemoryAdapter) DeleteBoard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, id)
	return nil
}

func (m *MemoryAdapter) GetHex(ctx context.Context, id string) (*HexRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hexes[id]
	if !ok {
		return nil, hexerr.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *MemoryAdapter) ListHexes(ctx context.Context, boardID string) ([]*HexRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*HexRecord
	for _, h := range m.hexes {
		if h.BoardID == boardID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryAdapter) CreateHex(ctx context.Context, h *HexRecord) error {
	now := time.Now()
	h.CreatedAt, h.UpdatedAt = now, now
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	m.hexes[h.ID] = &cp
	return nil
}

func (m *MemoryAdapter) UpdateHex(ctx context.Context, h *HexRecord) error {
	m.mu.Lock()
	existing, ok := m.hexes[h.ID]
	if !ok {
		m.mu.Unlock()
		return hexerr.ErrNotFound
	}
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now()
	cp := *h
	m.hexes[h.ID] = &cp
	watchers := append([]func(string){}, m.watchers[h.BoardID]...)
	m.mu.Unlock()

	for _, fn := range watchers {
		if fn != nil {
			fn(h.ID)
		}
	}
	return nil
}

func (m *MemoryAdapter) DeleteHex(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hexes, id)
	return nil
}

func (m *MemoryAdapter) GetConnection(ctx context.Context, id string) (*ConnectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[id]
	if !ok {
		return nil, hexerr.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryAdapter) ListConnections(ctx context.Context, boardID string) ([]*ConnectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ConnectionRecord
	for _, c := range m.connections {
		if c.BoardID == boardID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryAdapter) CreateConnection(ctx context.Context, c *ConnectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.connections[c.ID] = &cp
	return nil
}

func (m *MemoryAdapter) DeleteConnection(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
	return nil
}

func (m *MemoryAdapter) ReadSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	if !ok {
		return "", hexerr.ErrNotFound
	}
	return v, nil
}

func (m *MemoryAdapter) WriteSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryAdapter) DeleteSetting(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

func (m *MemoryAdapter) ListSettings(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryAdapter) AddBoardUsage(ctx context.Context, boardID string, deltaDollars float64, deltaTokens uint64) (float64, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return 0, 0, hexerr.ErrNotFound
	}
	b.TotalDollars += deltaDollars
	b.TotalTokens += deltaTokens
	b.UpdatedAt = time.Now()
	return b.TotalDollars, b.TotalTokens, nil
}

func (m *MemoryAdapter) ResetBoardUsage(ctx context.Context, boardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return hexerr.ErrNotFound
	}
	b.TotalDollars = 0
	b.TotalTokens = 0
	return nil
}

func (m *MemoryAdapter) Watch(boardID string, fn func(hexID string)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers[boardID] = append(m.watchers[boardID], fn)
	idx := len(m.watchers[boardID]) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.watchers[boardID]
		if idx < len(list) {
			list[idx] = nil
		}
	}
}

func (m *MemoryAdapter) Close() error { return nil }

var _ Adapter = (*MemoryAdapter)(nil)
