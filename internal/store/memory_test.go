package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBoardUsageZeroLeavesTotalsUnchanged(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.CreateBoard(ctx, &BoardRecord{ID: "b1", TotalDollars: 5, TotalTokens: 10}))

	dollars, tokens, err := m.AddBoardUsage(ctx, "b1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, dollars)
	assert.Equal(t, uint64(10), tokens)
}

func TestAddBoardUsageAccumulates(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.CreateBoard(ctx, &BoardRecord{ID: "b1"}))

	_, _, err := m.AddBoardUsage(ctx, "b1", 1.5, 100)
	require.NoError(t, err)
	dollars, tokens, err := m.AddBoardUsage(ctx, "b1", 2.5, 200)
	require.NoError(t, err)
	assert.Equal(t, 4.0, dollars)
	assert.Equal(t, uint64(300), tokens)
}

func TestAddBoardUsageConcurrentIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.CreateBoard(ctx, &BoardRecord{ID: "b1"}))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = m.AddBoardUsage(ctx, "b1", 0, 10)
		}()
	}
	wg.Wait()

	_, tokens, err := m.AddBoardUsage(ctx, "b1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tokens)
}

func TestResetBoardUsage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.CreateBoard(ctx, &BoardRecord{ID: "b1"}))
	_, _, _ = m.AddBoardUsage(ctx, "b1", 3, 30)

	require.NoError(t, m.ResetBoardUsage(ctx, "b1"))
	dollars, tokens, err := m.AddBoardUsage(ctx, "b1", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, dollars)
	assert.Zero(t, tokens)
}

func TestWatchNotifiesOnHexUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.CreateHex(ctx, &HexRecord{ID: "h1", BoardID: "b1"}))

	var notified string
	unsub := m.Watch("b1", func(hexID string) { notified = hexID })
	defer unsub()

	require.NoError(t, m.UpdateHex(ctx, &HexRecord{ID: "h1", BoardID: "b1", Name: "renamed"}))
	assert.Equal(t, "h1", notified)
}
