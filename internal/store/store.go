// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store implements the persistence adapter: boards, hexes (with a
// serialized entity config blob), connections, settings, and the atomic
// addBoardUsage primitive the Budget Tracker depends on. It is backed by
// database/sql with a dialect switch across three SQL drivers: sqlite
// (default/local), postgres, and mysql.
package store

import (
	"context"
	"time"
)

// ConnectionType is the kind of edge drawn between two hexes for UI
// visualization; the CORE runtime does not interpret it.
type ConnectionType string

const (
	ConnFlow      ConnectionType = "flow"
	ConnHierarchy ConnectionType = "hierarchy"
	ConnData      ConnectionType = "data"
)

// BoardRecord is the wire shape of a board row.
type BoardRecord struct {
	ID           string
	Name         string
	Status       string
	MaxDollars   float64
	MaxTokens    uint64
	TotalDollars float64
	TotalTokens  uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HexRecord is the wire shape of a hex-entity row. Config is a single
// serialized JSON blob.
type HexRecord struct {
	ID         string
	BoardID    string
	Name       string
	Category   string
	EntityType string
	PositionQ  int
	PositionR  int
	Config     []byte
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ConnectionRecord is the wire shape of a connection row.
type ConnectionRecord struct {
	ID             string
	BoardID        string
	FromHexID      string
	ToHexID        string
	ConnectionType ConnectionType
}

// Adapter is the Persistence Adapter interface every board runner depends
// on. No cross-entity transactions are assumed; updates are independent.
type Adapter interface {
	GetBoard(ctx context.Context, id string) (*BoardRecord, error)
	ListBoards(ctx context.Context) ([]*BoardRecord, error)
	CreateBoard(ctx context.Context, b *BoardRecord) error
	UpdateBoard(ctx context.Context, b *BoardRecord) error
	DeleteBoard(ctx context.Context, id string) error

	GetHex(ctx context.Context, id string) (*HexRecord, error)
	ListHexes(ctx context.Context, boardID string) ([]*HexRecord, error)
	CreateHex(ctx context.Context, h *HexRecord) error
	UpdateHex(ctx context.Context, h *HexRecord) error
	DeleteHex(ctx context.Context, id string) error

	GetConnection(ctx context.Context, id string) (*ConnectionRecord, error)
	ListConnections(ctx context.Context, boardID string) ([]*ConnectionRecord, error)
	CreateConnection(ctx context.Context, c *ConnectionRecord) error
	DeleteConnection(ctx context.Context, id string) error

	ReadSetting(ctx context.Context, key string) (string, error)
	WriteSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	ListSettings(ctx context.Context) (map[string]string, error)

	// AddBoardUsage atomically adds deltaDollars/deltaTokens to the
	// board's persistent totals and returns the new totals. Must be
	// atomic under concurrent emitters.
	AddBoardUsage(ctx context.Context, boardID string, deltaDollars float64, deltaTokens uint64) (newDollars float64, newTokens uint64, err error)

	// ResetBoardUsage zeroes a board's persistent totals.
	ResetBoardUsage(ctx context.Context, boardID string) error

	// Watch notifies fn whenever a hex's persisted config changes, used
	// by the Board Runner's configuration-drift detection. Returns an unsubscribe function.
	Watch(boardID string, fn func(hexID string)) (unsubscribe func())

	Close() error
}
