package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/hexboard/internal/store"
)

// BoardExport is the human-editable YAML shape of a whole board: its
// limits, its placed hexes, and the visual connections between them. It
// is the file format cmd/hexboard validate reads and the one a serve
// process can import into a fresh store on startup.
type BoardExport struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	MaxDollars  float64            `yaml:"maxDollars"`
	MaxTokens   uint64             `yaml:"maxTokens"`
	Hexes       []HexExport        `yaml:"hexes"`
	Connections []ConnectionExport `yaml:"connections,omitempty"`
}

// HexExport is one placed entity. Config is decoded as generic YAML and
// re-marshaled to JSON for storage, so authors write native YAML nesting
// rather than an escaped JSON string.
type HexExport struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Category   string         `yaml:"category"` // "agent" or "tool"
	EntityType string         `yaml:"entityType"`
	Q          int            `yaml:"q"`
	R          int            `yaml:"r"`
	Config     map[string]any `yaml:"config"`
}

// ConnectionExport is one visual edge between two hexes.
type ConnectionExport struct {
	FromHexID      string `yaml:"from"`
	ToHexID        string `yaml:"to"`
	ConnectionType string `yaml:"type"`
}

// LoadBoardExport reads and parses a board export YAML file.
func LoadBoardExport(path string) (*BoardExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read board export %s: %w", path, err)
	}
	var b BoardExport
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("config: parse board export %s: %w", path, err)
	}
	if b.ID == "" {
		return nil, fmt.Errorf("config: board export %s has no id", path)
	}
	return &b, nil
}

// ImportIntoStore seeds adapter with the board, its hexes, and its
// connections described by b. Ids are not checked against existing rows:
// MemoryAdapter overwrites a board or hex with the same id, while
// SQLAdapter's plain INSERT fails and that error is returned.
func ImportIntoStore(ctx context.Context, adapter store.Adapter, b *BoardExport) error {
	if err := adapter.CreateBoard(ctx, &store.BoardRecord{
		ID:         b.ID,
		Name:       b.Name,
		Status:     "stopped",
		MaxDollars: b.MaxDollars,
		MaxTokens:  b.MaxTokens,
	}); err != nil {
		return fmt.Errorf("config: create board %s: %w", b.ID, err)
	}

	for _, h := range b.Hexes {
		raw, err := json.Marshal(h.Config)
		if err != nil {
			return fmt.Errorf("config: marshal config for hex %s: %w", h.ID, err)
		}
		if err := adapter.CreateHex(ctx, &store.HexRecord{
			ID:         h.ID,
			BoardID:    b.ID,
			Name:       h.Name,
			Category:   h.Category,
			EntityType: h.EntityType,
			PositionQ:  h.Q,
			PositionR:  h.R,
			Config:     raw,
			Status:     "idle",
		}); err != nil {
			return fmt.Errorf("config: create hex %s: %w", h.ID, err)
		}
	}

	for i, c := range b.Connections {
		if err := adapter.CreateConnection(ctx, &store.ConnectionRecord{
			ID:             fmt.Sprintf("%s-conn-%d", b.ID, i),
			BoardID:        b.ID,
			FromHexID:      c.FromHexID,
			ToHexID:        c.ToHexID,
			ConnectionType: store.ConnectionType(c.ConnectionType),
		}); err != nil {
			return fmt.Errorf("config: create connection %s->%s: %w", c.FromHexID, c.ToHexID, err)
		}
	}

	return nil
}
