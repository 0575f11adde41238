package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/fsctx"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/reservation"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

func newFilesystemPlugin(t *testing.T) (*Filesystem, string) {
	t.Helper()
	root := t.TempDir()
	fp := NewFilesystem()
	require.NoError(t, fp.Initialize(map[string]any{"rootPath": root}))
	return fp, root
}

func TestFilesystemWriteThenReadRoundTrips(t *testing.T) {
	fp, _ := newFilesystemPlugin(t)
	ctx := toolplugin.ExecutionContext{AgentID: "a1", AgentName: "Coder"}

	result := fp.Execute("write_file", map[string]any{"path": "out.txt", "content": "hello"}, ctx)
	require.True(t, result.Success)

	result = fp.Execute("read_file", map[string]any{"path": "out.txt"}, ctx)
	require.True(t, result.Success)
	assert.Equal(t, "hello", result.Result)
}

func TestFilesystemWriteRequiresReadFirst(t *testing.T) {
	fp, root := newFilesystemPlugin(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.txt"), []byte("old"), 0o644))

	fsManager := fsctx.New()
	ctx := toolplugin.ExecutionContext{AgentID: "a1", AgentName: "Coder", FSManager: fsManager, ToolEntityID: "fs1"}

	result := fp.Execute("write_file", map[string]any{"path": "x.txt", "content": "new"}, ctx)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "must read")

	readResult := fp.Execute("read_file", map[string]any{"path": "x.txt"}, ctx)
	require.True(t, readResult.Success)

	result = fp.Execute("write_file", map[string]any{"path": "x.txt", "content": "new"}, ctx)
	assert.True(t, result.Success)
}

func TestFilesystemWriteClaimsAndReleasesReservation(t *testing.T) {
	fp, root := newFilesystemPlugin(t)
	reservations := reservation.New()
	ctx := toolplugin.ExecutionContext{AgentID: "a1", AgentName: "Coder", Reservations: reservations}

	result := fp.Execute("write_file", map[string]any{"path": "new.txt", "content": "x"}, ctx)
	require.True(t, result.Success)

	_, held := reservations.Lookup(filepath.Join(root, "new.txt"))
	assert.False(t, held)
}

func TestFilesystemWriteEmitsFilesystemChanged(t *testing.T) {
	fp, _ := newFilesystemPlugin(t)
	bus := event.New()
	var received []model.EngineEvent
	bus.SubscribeType(event.TypeFilesystemChanged, func(ev model.EngineEvent) {
		received = append(received, ev)
	})
	ctx := toolplugin.ExecutionContext{AgentID: "a1", AgentName: "Coder", Bus: bus, ToolHexKey: "1,0", BoardID: "b1", ToolEntityID: "fs1"}
	result := fp.Execute("write_file", map[string]any{"path": "a.txt", "content": "1"}, ctx)
	require.True(t, result.Success)

	require.Len(t, received, 1)
	assert.Equal(t, "a.txt", received[0].Data["path"])
	assert.Equal(t, "fs1", received[0].Data["filesystem_id"])
}

func TestFilesystemResolveRejectsPathEscape(t *testing.T) {
	fp, _ := newFilesystemPlugin(t)
	ctx := toolplugin.ExecutionContext{AgentID: "a1"}
	result := fp.Execute("read_file", map[string]any{"path": "../../etc/passwd"}, ctx)
	assert.False(t, result.Success)
}

func TestFilesystemListDirectoryAndSearch(t *testing.T) {
	fp, root := newFilesystemPlugin(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("needle here"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	ctx := toolplugin.ExecutionContext{}
	listResult := fp.Execute("list_directory", map[string]any{"path": "."}, ctx)
	require.True(t, listResult.Success)
	assert.Contains(t, listResult.Result, "a.txt")
	assert.Contains(t, listResult.Result, "sub/")

	searchResult := fp.Execute("search", map[string]any{"query": "needle"}, ctx)
	require.True(t, searchResult.Success)
	matches, ok := searchResult.Result.([]searchMatch)
	require.True(t, ok)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.txt", matches[0].Path)
}

func TestFilesystemFileExistsAndGetInfo(t *testing.T) {
	fp, root := newFilesystemPlugin(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("abc"), 0o644))

	exists := fp.Execute("file_exists", map[string]any{"path": "a.txt"}, toolplugin.ExecutionContext{})
	require.True(t, exists.Success)
	assert.Equal(t, true, exists.Result)

	missing := fp.Execute("file_exists", map[string]any{"path": "missing.txt"}, toolplugin.ExecutionContext{})
	require.True(t, missing.Success)
	assert.Equal(t, false, missing.Result)

	info := fp.Execute("get_info", map[string]any{"path": "a.txt"}, toolplugin.ExecutionContext{})
	require.True(t, info.Success)
}

func TestFilesystemMoveAndCopy(t *testing.T) {
	fp, root := newFilesystemPlugin(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("abc"), 0o644))

	copyResult := fp.Execute("copy_file", map[string]any{"source": "a.txt", "destination": "b.txt"}, toolplugin.ExecutionContext{})
	require.True(t, copyResult.Success)

	moveResult := fp.Execute("move_file", map[string]any{"source": "b.txt", "destination": "c.txt"}, toolplugin.ExecutionContext{})
	require.True(t, moveResult.Success)

	_, err := os.Stat(filepath.Join(root, "b.txt"))
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(root, "c.txt"))
	assert.NoError(t, err)
}
